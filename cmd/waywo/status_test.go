package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/IshaanNene/waywo/internal/types"
)

func TestStatusLine(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&types.ConfigError{Path: "waywo.json", Err: errors.New("bad")}, "Failed to load config"},
		{&types.DiscoveryError{ThreadID: 1, Err: errors.New("404")}, "Invalid thread id"},
		{fmt.Errorf("thread 1: %w", types.ErrNoPosts), "Failed to scrape thread"},
		{&types.PostFetchError{PostID: 3, Err: types.ErrEmptyMessage}, "length is 0"},
		{&types.PostFetchError{PostID: 3, Err: errors.New("timeout")}, "Failed to read posts"},
		{&types.OutputError{Path: "out.txt", Err: errors.New("denied")}, "Failed to write output file"},
		{&types.DiscoveryError{ThreadID: 1, Err: context.Canceled}, "Interrupted"},
		{errors.New("boom"), "Error: boom"},
	}

	for _, tt := range tests {
		if got := statusLine(tt.err); !strings.HasPrefix(got, tt.want) && !strings.Contains(got, tt.want) {
			t.Errorf("statusLine(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
