// Package store persists channels, users and messages in a local SQLite
// file. All writes are insert-or-ignore keyed by the external ID, so the
// store behaves as an append-only set and re-running a crawl is safe.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"discord-scraper/internal/discord"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store wraps the single database handle held for the process lifetime.
type Store struct {
	db *sql.DB
}

// Open creates parent directories as needed, opens the SQLite file and
// applies pending migrations. The connection pool is pinned to one
// connection; SQLite does not benefit from more and the crawl is
// strictly sequential anyway.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite at %s: %w", path, err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// InsertChannel records channel metadata. Re-insertion of a known ID is
// a no-op; the first write wins.
func (s *Store) InsertChannel(ctx context.Context, ch discord.Channel) error {
	slog.Info("inserting 1 channel", "name", ch.Name)
	const q = `INSERT OR IGNORE INTO channel (id, guild_id, name) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, ch.ID, ch.GuildID, ch.Name); err != nil {
		return fmt.Errorf("insert channel %s: %w", ch.ID, err)
	}
	return nil
}

// InsertUsers records one page's authors inside a single transaction.
// Duplicate IDs, within the batch or against earlier pages, are ignored.
func (s *Store) InsertUsers(ctx context.Context, users []discord.User) error {
	slog.Info("inserting users", "count", len(users))

	return s.withTx(ctx, func(tx *sql.Tx) error {
		const q = `INSERT OR IGNORE INTO user (id, username, discriminator) VALUES (?, ?, ?)`
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return fmt.Errorf("prepare user insert: %w", err)
		}
		defer stmt.Close()

		for _, u := range users {
			if _, err := stmt.ExecContext(ctx, u.ID, u.Username, u.Discriminator); err != nil {
				return fmt.Errorf("insert user %s: %w", u.ID, err)
			}
		}
		return nil
	})
}

// InsertMessages records one page of messages inside a single
// transaction: the whole page commits atomically or not at all.
func (s *Store) InsertMessages(ctx context.Context, msgs []discord.Message) error {
	slog.Info("inserting messages", "count", len(msgs))

	return s.withTx(ctx, func(tx *sql.Tx) error {
		const q = `INSERT OR IGNORE INTO message (id, channel_id, author_id, content, timestamp)
VALUES (?, ?, ?, ?, ?)`
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return fmt.Errorf("prepare message insert: %w", err)
		}
		defer stmt.Close()

		for _, m := range msgs {
			if _, err := stmt.ExecContext(ctx, m.ID, m.ChannelID, m.Author.ID, m.Content, m.Timestamp); err != nil {
				return fmt.Errorf("insert message %s: %w", m.ID, err)
			}
		}
		return nil
	})
}

// withTx runs fn inside a transaction, rolling back on any non-commit
// exit. A transaction that hits a busy database is retried whole, which
// is safe because every write is insert-or-ignore.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	b := retry.WithMaxRetries(3, retry.NewFibonacci(100*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return busyRetryable(fmt.Errorf("begin tx: %w", err))
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return busyRetryable(err)
		}
		if err := tx.Commit(); err != nil {
			return busyRetryable(fmt.Errorf("commit: %w", err))
		}
		return nil
	})
}

func busyRetryable(err error) error {
	if strings.Contains(err.Error(), "database is locked") {
		return retry.RetryableError(err)
	}
	return err
}

// Channel reads one channel row back.
func (s *Store) Channel(ctx context.Context, id string) (discord.Channel, error) {
	const q = `SELECT id, guild_id, name FROM channel WHERE id = ?`
	var ch discord.Channel
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&ch.ID, &ch.GuildID, &ch.Name); err != nil {
		return discord.Channel{}, fmt.Errorf("select channel %s: %w", id, err)
	}
	return ch, nil
}

// ChannelCount reports the number of channel rows.
func (s *Store) ChannelCount(ctx context.Context) (int64, error) {
	return s.count(ctx, "channel")
}

// UserCount reports the number of user rows.
func (s *Store) UserCount(ctx context.Context) (int64, error) {
	return s.count(ctx, "user")
}

// MessageCount reports the number of message rows.
func (s *Store) MessageCount(ctx context.Context) (int64, error) {
	return s.count(ctx, "message")
}

func (s *Store) count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
