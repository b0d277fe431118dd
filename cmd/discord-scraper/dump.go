package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"discord-scraper/internal/config"
	"discord-scraper/internal/discord"
)

// newDumpCmd builds the 'dump' subcommand: fetch recent messages of one
// channel and write them to a JSON file, without touching the store.
// Useful for producing test fixtures and eyeballing API payloads.
func newDumpCmd(auth *string) *cobra.Command {
	var (
		channel string
		count   int
		out     string
	)
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump recent channel messages to a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDump(cmd, *auth, channel, count, out)
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "channel ID to dump")
	cmd.Flags().IntVar(&count, "count", discord.PageLimit, "maximum number of messages to fetch")
	cmd.Flags().StringVar(&out, "out", "", "output JSON file path")
	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runDump(cmd *cobra.Command, auth, channel string, count int, out string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	initLogger(cfg.LogLevel)

	if auth != "" {
		cfg.AuthToken = auth
	}
	if cfg.AuthToken == "" {
		fmt.Fprintln(os.Stderr, "no authorization token found: pass --auth or set DISCORD_AUTH_TOKEN")
		os.Exit(1)
	}

	client := discord.New(discord.Config{
		Token:           cfg.AuthToken,
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.HTTPTimeout,
		RetryPad:        cfg.RetryPad,
		MaxThrottleWait: cfg.MaxThrottleWait,
	})

	var dump []discord.Message
	before := ""
	for len(dump) < count {
		msgs, err := client.Messages(cmd.Context(), channel, before)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			break
		}
		before = msgs[len(msgs)-1].ID
		if remaining := count - len(dump); len(msgs) > remaining {
			msgs = msgs[:remaining]
		}
		dump = append(dump, msgs...)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output %s: %w", out, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	// Keep '&', '<', '>' as-is in message content.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(dump); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
