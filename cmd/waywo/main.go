package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/waywo/internal/config"
	"github.com/IshaanNene/waywo/internal/engine"
)

var (
	cfgFile    string
	verbose    bool
	threadID   int
	outputPath string
	postCount  int
	useCache   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "waywo --thread <id> --out <file>",
		Short: "Generates highlights for forum threads",
		Long: `waywo reads every page of a "What are you working on" style thread,
scores each post by its ratings and embedded media, and writes the best
posts to a text file, one author per highlight.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runHighlights,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Flags().IntVarP(&threadID, "thread", "t", 0, "thread id to generate highlights for")
	rootCmd.Flags().StringVarP(&outputPath, "out", "o", "", "output file")
	rootCmd.Flags().IntVarP(&postCount, "posts", "n", engine.DefaultPosts, "number of highlights to select")
	rootCmd.Flags().BoolVar(&useCache, "cache", false, "cache thread posts between runs")
	_ = rootCmd.MarkFlagRequired("thread")
	_ = rootCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, statusLine(err))
		os.Exit(1)
	}
}

// runHighlights executes one highlight generation.
func runHighlights(cmd *cobra.Command, args []string) error {
	if threadID < 1 {
		return fmt.Errorf("--thread must be a positive thread id, got %d", threadID)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Warn("shutdown error", "error", err)
		}
	}()

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down...", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := eng.Run(ctx, engine.Options{
		ThreadID: threadID,
		OutPath:  outputPath,
		Posts:    postCount,
		UseCache: useCache,
	})
	if err != nil {
		return err
	}

	source := "scraped"
	if res.FromCache {
		source = "cached"
	}
	fmt.Printf("Done! %d highlights from %d %s posts in %s\n",
		len(res.Highlights), res.Posts, source, res.Duration.Round(time.Millisecond))
	fmt.Printf("   Output:    %s\n", outputPath)
	return nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("waywo %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Forum:\n")
			fmt.Printf("  Base URL:          %s\n", cfg.Forum.BaseURL)
			fmt.Printf("  Encoding:          %s\n", cfg.Forum.Encoding)
			fmt.Printf("  User Agent:        %s\n", cfg.Authentication.UserAgent)
			fmt.Printf("  Cookies:           %d configured\n", len(cfg.Authentication.Cookies))
			fmt.Printf("  Security Token:    %v\n", cfg.Authentication.SecurityToken != "")
			fmt.Printf("\nScoring:\n")
			fmt.Printf("  Rating Rules:      %d (default %g)\n", len(cfg.Ratings), cfg.RatingsDefault)
			for _, r := range cfg.Ratings {
				fmt.Printf("    %5g  %v\n", r.Score, r.Labels)
			}
			fmt.Printf("  Content Rules:     %d (default %g)\n", len(cfg.Content), cfg.ContentDefault)
			for _, r := range cfg.Content {
				fmt.Printf("    %5g  %v %v\n", r.Score, r.Tags, r.Extensions)
			}
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Type:              %s\n", cfg.Fetcher.Type)
			fmt.Printf("  Concurrency:       %d\n", cfg.Fetcher.Concurrency)
			fmt.Printf("  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Politeness Delay:  %s (from %d pages)\n", cfg.Fetcher.PolitenessDelay, cfg.Fetcher.PolitenessThreshold)
			fmt.Printf("\nCache:\n")
			fmt.Printf("  Backend:           %s\n", cfg.Cache.Backend)
			return nil
		},
	}
}

// setupLogger creates a structured logger.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
