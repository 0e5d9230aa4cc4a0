package config

import (
	"net/url"
	"path"
	"slices"
	"strings"
)

// ScoringConfig maps rating labels and content tags to weights.
// Lookups are first-match-wins in declared order. A ScoringConfig is
// read-only once loaded and safe for concurrent use.
type ScoringConfig struct {
	RatingsDefault float64       `mapstructure:"ratingsDefault" yaml:"ratingsDefault"`
	Ratings        []RatingRule  `mapstructure:"ratings"        yaml:"ratings"`
	ContentDefault float64       `mapstructure:"contentDefault" yaml:"contentDefault"`
	Content        []ContentRule `mapstructure:"content"        yaml:"content"`
}

// RatingRule assigns Score to every label in Labels.
type RatingRule struct {
	Score  float64  `mapstructure:"score"  yaml:"score"`
	Labels []string `mapstructure:"labels" yaml:"labels"`
}

// Matches reports whether label is one of the rule's labels (case-sensitive).
func (r RatingRule) Matches(label string) bool {
	return slices.Contains(r.Labels, label)
}

// ContentRule assigns Score to content tags in Tags. When Extensions is
// non-empty the tag's URL must also end in one of them.
type ContentRule struct {
	Score      float64  `mapstructure:"score"      yaml:"score"`
	Tags       []string `mapstructure:"tags"       yaml:"tags"`
	Extensions []string `mapstructure:"extensions" yaml:"extensions"`
}

// Matches reports whether the rule applies to tag with the given URL.
// u may be nil, in which case only rules without extensions match.
func (r ContentRule) Matches(tag string, u *url.URL) bool {
	if !slices.Contains(r.Tags, tag) {
		return false
	}
	if len(r.Extensions) == 0 {
		return true
	}
	if u == nil {
		return false
	}
	return slices.Contains(r.Extensions, strings.ToLower(path.Ext(u.Path)))
}

// RatingValue returns the weight of a rating label.
func (s *ScoringConfig) RatingValue(label string) float64 {
	for _, rule := range s.Ratings {
		if rule.Matches(label) {
			return rule.Score
		}
	}
	return s.RatingsDefault
}

// ContentValue returns the weight of one embedded content tag.
func (s *ScoringConfig) ContentValue(tag string, u *url.URL) float64 {
	for _, rule := range s.Content {
		if rule.Matches(tag, u) {
			return rule.Score
		}
	}
	return s.ContentDefault
}

// DefaultScoring returns the stock Facepunch weights. Unknown ratings
// ("Dumb", "Late", "Disagree", ...) count as junk.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		RatingsDefault: -1,
		Ratings: []RatingRule{
			{Score: 3, Labels: []string{"Programming King", "Lua King"}},
			{Score: 2, Labels: []string{"Winner", "Useful", "Artistic", "Lua Helper"}},
			{Score: 1, Labels: []string{"Funny", "Informative"}},
		},
		ContentDefault: 0,
		Content: []ContentRule{
			{Score: 1.5, Tags: []string{"img"}, Extensions: []string{".gif"}},
			{Score: 1, Tags: []string{"img"}},
			{Score: 2, Tags: []string{"vid", "media", "video"}},
		},
	}
}
