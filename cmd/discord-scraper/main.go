// Command discord-scraper archives the full message history of one or
// more Discord channels into a local SQLite file.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"discord-scraper/internal/config"
	"discord-scraper/internal/crawler"
	"discord-scraper/internal/discord"
	"discord-scraper/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		auth   string
		dbPath string
	)
	cmd := &cobra.Command{
		Use:   "discord-scraper [flags] CHANNEL_ID...",
		Short: "Archive the full message history of Discord channels into SQLite",
		Long: `discord-scraper walks each channel's history backward, page by page,
and stores messages, authors and channel metadata in a local SQLite
file. Writes are idempotent, so re-running after an interruption
resumes safely.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd, args, auth, dbPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&auth, "auth", "a", "",
		"Discord authorization token (falls back to DISCORD_AUTH_TOKEN)")
	cmd.Flags().StringVarP(&dbPath, "db-path", "d", "",
		"database path (default ./data/messages.db)")

	cmd.AddCommand(newDumpCmd(&auth))
	return cmd
}

func runCrawl(cmd *cobra.Command, args []string, auth, dbPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	initLogger(cfg.LogLevel)

	// Flags override environment.
	if auth != "" {
		cfg.AuthToken = auth
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if cfg.AuthToken == "" {
		fmt.Fprintln(os.Stderr, "no authorization token found: pass --auth or set DISCORD_AUTH_TOKEN")
		os.Exit(1)
	}

	channels := append(config.ChannelsFromYAML(), args...)
	if len(channels) == 0 {
		return fmt.Errorf("at least one channel ID is required")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	client := discord.New(discord.Config{
		Token:           cfg.AuthToken,
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.HTTPTimeout,
		RetryPad:        cfg.RetryPad,
		MaxThrottleWait: cfg.MaxThrottleWait,
	})

	return crawler.New(client, st).Run(cmd.Context(), channels)
}

func initLogger(level slog.Level) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar})
	}
	slog.SetDefault(slog.New(handler))
}
