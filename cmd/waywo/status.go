package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/IshaanNene/waywo/internal/types"
)

// statusLine maps a failed run onto the message shown to the user.
func statusLine(err error) string {
	var (
		cfgErr  *types.ConfigError
		discErr *types.DiscoveryError
		postErr *types.PostFetchError
		outErr  *types.OutputError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return "Interrupted, no output written"
	case errors.As(err, &cfgErr):
		return fmt.Sprintf("Failed to load config: %v", err)
	case errors.As(err, &discErr):
		return fmt.Sprintf("Invalid thread id (couldn't get page count): %v", discErr.Err)
	case errors.Is(err, types.ErrNoPosts):
		return "Failed to scrape thread"
	case errors.Is(err, types.ErrEmptyMessage):
		return "Failed to read post contents (length is 0)"
	case errors.As(err, &postErr):
		return fmt.Sprintf("Failed to read posts: %v", err)
	case errors.As(err, &outErr):
		return fmt.Sprintf("Failed to write output file: %v", outErr.Err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
