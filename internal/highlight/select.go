// Package highlight ranks a thread's posts and picks the ones worth showing.
package highlight

import (
	"cmp"
	"context"
	"log/slog"
	"math"
	"slices"

	"github.com/IshaanNene/waywo/internal/forum"
)

// candidate pairs a post with the sort key of the current stage.
type candidate struct {
	post  *forum.Post
	score float64
}

// Selector picks highlight posts. Message fetches happen one at a time,
// only for posts that survive the ratings cut.
type Selector struct {
	logger *slog.Logger
}

// NewSelector creates a Selector.
func NewSelector(logger *slog.Logger) *Selector {
	return &Selector{logger: logger.With("component", "highlight")}
}

// Select returns at most desired posts, best first:
//
//  1. sort by ratings value
//  2. keep the top desired*2
//  3. keep posts with embedded content
//  4. drop vote posts
//  5. sort by ratings value times content multiplier
//  6. keep one post per quoted author
//  7. keep the top desired
//
// Sorts are stable. Fewer than desired survivors is not an error. A
// message that cannot be read aborts the selection.
func (s *Selector) Select(ctx context.Context, posts []*forum.Post, desired int) ([]*forum.Post, error) {
	desired = max(desired, 1)

	ranked := make([]candidate, len(posts))
	for i, p := range posts {
		ranked[i] = candidate{post: p, score: p.RatingsValue()}
	}
	sortDescending(ranked)

	limit := math.MaxInt
	if desired <= math.MaxInt/2 {
		limit = desired * 2
	}
	ranked = ranked[:min(len(ranked), limit)]
	s.logger.Debug("ratings cut", "posts", len(posts), "kept", len(ranked))

	kept := ranked[:0]
	for _, c := range ranked {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cv, err := c.post.ContentValue(ctx)
		if err != nil {
			return nil, err
		}
		if cv <= 0 {
			continue
		}

		vote, err := c.post.IsVotePost(ctx)
		if err != nil {
			return nil, err
		}
		if vote {
			s.logger.Debug("skipping vote post", "post_id", c.post.ID)
			continue
		}

		mult, err := c.post.ContentMultiplier(ctx)
		if err != nil {
			return nil, err
		}
		kept = append(kept, candidate{post: c.post, score: c.score * mult})
	}
	sortDescending(kept)

	seen := make(map[string]bool, len(kept))
	result := make([]*forum.Post, 0, min(desired, len(kept)))
	for _, c := range kept {
		name, err := c.post.Username(ctx)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		result = append(result, c.post)
		if len(result) == desired {
			break
		}
	}

	s.logger.Info("highlights selected", "candidates", len(kept), "selected", len(result))
	return result, nil
}

// Select is a convenience wrapper using the default logger.
func Select(ctx context.Context, posts []*forum.Post, desired int) ([]*forum.Post, error) {
	return NewSelector(slog.Default()).Select(ctx, posts, desired)
}

func sortDescending(cs []candidate) {
	slices.SortStableFunc(cs, func(a, b candidate) int {
		return cmp.Compare(b.score, a.score)
	})
}
