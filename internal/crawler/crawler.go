// Package crawler drives the full-history crawl: channel metadata first,
// then backward pagination over the message history until exhausted.
package crawler

import (
	"context"
	"fmt"
	"log/slog"

	"discord-scraper/internal/discord"
	"discord-scraper/internal/snowflake"
	"discord-scraper/internal/store"
)

// Crawler walks channels sequentially, one at a time.
type Crawler struct {
	client *discord.Client
	store  *store.Store
}

// New wires a Crawler from its collaborators.
func New(client *discord.Client, st *store.Store) *Crawler {
	return &Crawler{client: client, store: st}
}

// Run crawls each channel to exhaustion. The first error aborts the
// whole run; nothing already committed is rolled back, and because
// writes are idempotent a fresh invocation resumes safely.
func (c *Crawler) Run(ctx context.Context, channelIDs []string) error {
	for _, id := range channelIDs {
		if err := c.crawlChannel(ctx, id); err != nil {
			return fmt.Errorf("channel %s: %w", id, err)
		}
	}
	return nil
}

func (c *Crawler) crawlChannel(ctx context.Context, channelID string) error {
	ch, err := c.client.Channel(ctx, channelID)
	if err != nil {
		return err
	}
	if err := c.store.InsertChannel(ctx, ch); err != nil {
		return err
	}

	var (
		before     string
		prevOldest uint64
		pages      int
		seen       int
	)
	for {
		msgs, err := c.client.Messages(ctx, channelID, before)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			break
		}
		pages++
		seen += len(msgs)

		users := make([]discord.User, 0, len(msgs))
		for _, m := range msgs {
			users = append(users, m.Author)
		}
		if err := c.store.InsertUsers(ctx, users); err != nil {
			return err
		}
		if err := c.store.InsertMessages(ctx, msgs); err != nil {
			return err
		}

		// Cursor is the oldest message of the page (the API returns
		// newest first). A cursor that does not strictly decrease would
		// loop forever, so treat it as a server fault.
		oldest := msgs[len(msgs)-1].ID
		if n, perr := snowflake.Parse(oldest); perr == nil {
			if prevOldest != 0 && n >= prevOldest {
				return fmt.Errorf("pagination cursor did not advance: %s after %d", oldest, prevOldest)
			}
			prevOldest = n
		}
		before = oldest
	}

	logCrawlDone(ch, pages, seen, before)
	return nil
}

func logCrawlDone(ch discord.Channel, pages, seen int, oldestID string) {
	attrs := []any{
		"channel", ch.ID,
		"name", ch.Name,
		"pages", pages,
		"messages", seen,
	}
	if oldestID != "" {
		if ts, err := snowflake.Time(oldestID); err == nil {
			attrs = append(attrs, "oldest", ts)
		}
	}
	slog.Info("channel history exhausted", attrs...)
}
