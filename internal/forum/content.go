package forum

import (
	"math"
	"net/url"
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/IshaanNene/waywo/internal/config"
)

// contentTagPattern needs a back-reference so the closing tag repeats the
// opening tag name, which RE2 cannot express.
var contentTagPattern = regexp2.MustCompile(
	`\[(img|vid|media|video)[^\]]*?\]([^\[\]]*?)\[/\1\]`,
	regexp2.IgnoreCase,
)

var (
	voteImagePattern = regexp.MustCompile(`(?i)\[img\]http://www\.facepunch\.com/fp/ratings/\S+?\.png\[/img\]`)
	voteWordPattern  = regexp.MustCompile(`(?i)agree|disagree|funny|winner|zing|informative|friendly|useful|programming king|optimistic|artistic|late|dumb|lua king|lua helper`)
	quoteAuthor      = regexp.MustCompile(`\[QUOTE=(.*?);`)
)

// Bell curve over content value: peak 1.0 at preferredContent, floor 0.5.
const (
	multiplierHeight = 0.5
	multiplierFloor  = 0.5
	preferredContent = 1.5
	contentDeviation = 4.0
	minDistinctVotes = 2
)

// scoreContent sums the configured weight of every embedded media tag.
func scoreContent(message string, scoring *config.ScoringConfig) (float64, error) {
	var total float64

	m, err := contentTagPattern.FindStringMatch(message)
	for ; m != nil && err == nil; m, err = contentTagPattern.FindNextMatch(m) {
		groups := m.Groups()
		tag := strings.ToLower(groups[1].String())
		total += scoring.ContentValue(tag, parseAbsoluteURL(groups[2].String()))
	}
	if err != nil {
		return 0, err
	}

	return total, nil
}

// parseAbsoluteURL returns nil unless raw is an absolute URL.
func parseAbsoluteURL(raw string) *url.URL {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() {
		return nil
	}
	return u
}

// isVoteMessage reports whether message is part of a rating ballot exchange.
func isVoteMessage(message string) bool {
	if voteImagePattern.MatchString(message) {
		return true
	}

	seen := make(map[string]struct{})
	for _, word := range voteWordPattern.FindAllString(message, -1) {
		seen[word] = struct{}{}
		if len(seen) >= minDistinctVotes {
			return true
		}
	}
	return false
}

// contentMultiplier weights posts with a moderate amount of media above
// posts with none or with a flood of it.
func contentMultiplier(contentValue float64) float64 {
	d := contentValue - preferredContent
	return multiplierHeight*math.Exp(-(d*d)/(2*contentDeviation*contentDeviation)) + multiplierFloor
}

// quotedUsername returns the author of the first quote block.
func quotedUsername(message string) string {
	m := quoteAuthor.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	return m[1]
}
