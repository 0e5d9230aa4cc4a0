// Package forum models thread posts and the values derived from them.
package forum

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/IshaanNene/waywo/internal/config"
	"github.com/IshaanNene/waywo/internal/types"
)

var errNoSource = errors.New("message not loaded and no message source attached")

// MessageSource retrieves the raw formatted body of a post.
type MessageSource interface {
	FetchMessage(ctx context.Context, postID int) (string, error)
}

// memo holds a value computed at most once.
type memo[T any] struct {
	value T
	set   bool
}

func (m *memo[T]) store(v T) T {
	m.value, m.set = v, true
	return v
}

// Post is one forum post. The message body is fetched on first use and
// every value derived from it is computed once and cached for the
// lifetime of the Post.
type Post struct {
	ID      int
	Ratings map[string]int

	scoring *config.ScoringConfig
	source  MessageSource

	mu                sync.Mutex
	message           memo[string]
	ratingsValue      memo[float64]
	contentValue      memo[float64]
	contentMultiplier memo[float64]
	isVotePost        memo[bool]
	username          memo[string]
}

// NewPost creates a post seed with an unfetched message.
func NewPost(id int, ratings map[string]int, scoring *config.ScoringConfig, source MessageSource) *Post {
	if ratings == nil {
		ratings = make(map[string]int)
	}
	return &Post{
		ID:      id,
		Ratings: ratings,
		scoring: scoring,
		source:  source,
	}
}

// RatingsValue is the weighted sum of the post's rating counts.
func (p *Post) RatingsValue() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ratingsValue.set {
		return p.ratingsValue.value
	}

	var total float64
	for label, count := range p.Ratings {
		total += p.scoring.RatingValue(label) * float64(count)
	}
	return p.ratingsValue.store(total)
}

// Message returns the post body, fetching it on first call. A failed
// fetch is not cached.
func (p *Post) Message(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadMessage(ctx)
}

func (p *Post) loadMessage(ctx context.Context) (string, error) {
	if p.message.set {
		return p.message.value, nil
	}
	if p.source == nil {
		return "", &types.PostFetchError{PostID: p.ID, Err: errNoSource}
	}

	msg, err := p.source.FetchMessage(ctx, p.ID)
	if err != nil {
		var postErr *types.PostFetchError
		if errors.As(err, &postErr) {
			return "", err
		}
		return "", &types.PostFetchError{PostID: p.ID, Err: err}
	}
	return p.message.store(msg), nil
}

// HasMessage reports whether the body has already been fetched.
func (p *Post) HasMessage() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.message.set
}

// ContentValue sums the weights of the media tags embedded in the message.
func (p *Post) ContentValue(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadContentValue(ctx)
}

func (p *Post) loadContentValue(ctx context.Context) (float64, error) {
	if p.contentValue.set {
		return p.contentValue.value, nil
	}

	msg, err := p.loadMessage(ctx)
	if err != nil {
		return 0, err
	}

	v, err := scoreContent(msg, p.scoring)
	if err != nil {
		return 0, &types.PostFetchError{PostID: p.ID, Err: fmt.Errorf("scan content tags: %w", err)}
	}
	return p.contentValue.store(v), nil
}

// ContentMultiplier maps ContentValue onto [0.5, 1.0], peaking at 1.5.
func (p *Post) ContentMultiplier(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.contentMultiplier.set {
		return p.contentMultiplier.value, nil
	}

	cv, err := p.loadContentValue(ctx)
	if err != nil {
		return 0, err
	}
	return p.contentMultiplier.store(contentMultiplier(cv)), nil
}

// IsVotePost reports whether the post is a rating ballot rather than content.
func (p *Post) IsVotePost(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isVotePost.set {
		return p.isVotePost.value, nil
	}

	msg, err := p.loadMessage(ctx)
	if err != nil {
		return false, err
	}
	return p.isVotePost.store(isVoteMessage(msg)), nil
}

// Username is the author named in the message's quote header, or "".
func (p *Post) Username(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.username.set {
		return p.username.value, nil
	}

	msg, err := p.loadMessage(ctx)
	if err != nil {
		return "", err
	}
	return p.username.store(quotedUsername(msg)), nil
}

// Record is the persisted form of a Post. Derived values are not stored.
type Record struct {
	ID      int            `json:"id"                bson:"id"`
	Ratings map[string]int `json:"ratings"           bson:"ratings"`
	Message *string        `json:"message,omitempty" bson:"message,omitempty"`
}

// Record snapshots the post's identity, ratings and message if fetched.
func (p *Post) Record() Record {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec := Record{ID: p.ID, Ratings: maps.Clone(p.Ratings)}
	if p.message.set {
		msg := p.message.value
		rec.Message = &msg
	}
	return rec
}

// Restore rebuilds a Post from its Record.
func Restore(rec Record, scoring *config.ScoringConfig, source MessageSource) *Post {
	p := NewPost(rec.ID, maps.Clone(rec.Ratings), scoring, source)
	if rec.Message != nil {
		p.message.store(*rec.Message)
	}
	return p
}

// Records snapshots a collection of posts.
func Records(posts []*Post) []Record {
	recs := make([]Record, len(posts))
	for i, p := range posts {
		recs[i] = p.Record()
	}
	return recs
}

// RestoreAll rebuilds a collection of posts.
func RestoreAll(recs []Record, scoring *config.ScoringConfig, source MessageSource) []*Post {
	posts := make([]*Post, len(recs))
	for i, rec := range recs {
		posts[i] = Restore(rec, scoring, source)
	}
	return posts
}
