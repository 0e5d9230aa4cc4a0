package storage

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"

	"github.com/IshaanNene/waywo/internal/forum"
	"github.com/IshaanNene/waywo/internal/types"
)

// HighlightWriter renders selected posts into the output file.
type HighlightWriter struct {
	logger *slog.Logger
}

// NewHighlightWriter creates a HighlightWriter.
func NewHighlightWriter(logger *slog.Logger) *HighlightWriter {
	return &HighlightWriter{logger: logger.With("component", "output")}
}

// Write stores each post's message followed by a blank line, in order.
// The file is only replaced once every message is in hand, so a failure
// leaves no partial output behind.
func (w *HighlightWriter) Write(ctx context.Context, path string, posts []*forum.Post) error {
	data, err := Render(ctx, posts)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(path, data); err != nil {
		return &types.OutputError{Path: path, Err: err}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	w.logger.Info("highlights written", "path", abs, "posts", len(posts), "bytes", len(data))
	return nil
}

// Render returns the output text. An empty message is a PostFetchError
// wrapping types.ErrEmptyMessage.
func Render(ctx context.Context, posts []*forum.Post) ([]byte, error) {
	var buf bytes.Buffer
	for _, p := range posts {
		msg, err := p.Message(ctx)
		if err != nil {
			return nil, err
		}
		if msg == "" {
			return nil, &types.PostFetchError{PostID: p.ID, Err: types.ErrEmptyMessage}
		}
		buf.WriteString(msg)
		buf.WriteString("\n\n")
	}
	return buf.Bytes(), nil
}
