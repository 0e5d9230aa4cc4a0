package forum

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/IshaanNene/waywo/internal/types"
)

// quotePrefixLen is the width of the "<quotes><![CDATA[" marker that opens
// the second line of a getquotes payload.
const quotePrefixLen = 17

// quoteFooterLines is the number of trailing marker lines in a payload.
const quoteFooterLines = 3

// Doer executes one request. fetcher.HTTPFetcher satisfies it.
type Doer interface {
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)
}

// QuoteSource fetches post bodies through the forum's quote action, which
// returns the post as BBCode wrapped in a "[QUOTE=author;id]" block.
type QuoteSource struct {
	doer          Doer
	baseURL       string
	securityToken string
	logger        *slog.Logger
}

// NewQuoteSource creates a MessageSource for the forum at baseURL.
func NewQuoteSource(doer Doer, baseURL, securityToken string, logger *slog.Logger) *QuoteSource {
	return &QuoteSource{
		doer:          doer,
		baseURL:       strings.TrimRight(baseURL, "/"),
		securityToken: securityToken,
		logger:        logger.With("component", "quote_source"),
	}
}

// FetchMessage implements MessageSource.
func (s *QuoteSource) FetchMessage(ctx context.Context, postID int) (string, error) {
	id := strconv.Itoa(postID)
	form := url.Values{
		"do": {"getquotes"},
		"p":  {id},
	}
	if s.securityToken != "" {
		form.Set("securitytoken", s.securityToken)
	}

	req, err := types.NewFormRequest(fmt.Sprintf("%s/ajax.php?do=getquotes&p=%s", s.baseURL, id), form)
	if err != nil {
		return "", &types.PostFetchError{PostID: postID, Err: err}
	}
	req.Tag = types.TagQuote

	s.logger.Info("reading post", "post_id", postID)

	resp, err := s.doer.Fetch(ctx, req)
	if err != nil {
		return "", &types.PostFetchError{PostID: postID, Err: err}
	}

	msg, err := DecodeQuotePayload(resp.Text())
	if err != nil {
		return "", &types.PostFetchError{PostID: postID, Err: err}
	}
	return msg, nil
}

// DecodeQuotePayload extracts the message from a getquotes response: the
// first line and the last three lines are markers, and line two starts
// with a fixed-width prefix. Lines are split on '\n' only.
func DecodeQuotePayload(text string) (string, error) {
	lines := strings.Split(text, "\n")

	var b strings.Builder
	for i, line := range lines {
		if i == 0 || i >= len(lines)-quoteFooterLines {
			continue
		}

		if i == 1 {
			if len(line) < quotePrefixLen {
				return "", fmt.Errorf("%w: first content line has %d bytes, want at least %d",
					types.ErrMalformedQuote, len(line), quotePrefixLen)
			}
			line = line[quotePrefixLen:]
		}

		b.WriteString(line)
		b.WriteByte('\n')
	}

	return strings.TrimSpace(b.String()), nil
}
