package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"discord-scraper/internal/discord"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	// Nested path: Open must create missing parent directories.
	path := filepath.Join(t.TempDir(), "data", "messages.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestInsertChannelFirstWriteWins(t *testing.T) {
	t.Parallel()
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertChannel(ctx, discord.Channel{ID: "42", GuildID: "7", Name: "general"}))
	require.NoError(t, s.InsertChannel(ctx, discord.Channel{ID: "42", GuildID: "7", Name: "renamed"}))

	n, err := s.ChannelCount(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	ch, err := s.Channel(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, "general", ch.Name, "conflicting re-insertion must be a no-op")
}

func TestInsertUsersDeduplicates(t *testing.T) {
	t.Parallel()
	s, _ := openTestStore(t)
	ctx := context.Background()

	users := []discord.User{
		{ID: "1", Username: "ana", Discriminator: "0001"},
		{ID: "2", Username: "bo", Discriminator: "0002"},
		{ID: "1", Username: "ana", Discriminator: "0001"}, // dup within the batch
	}
	require.NoError(t, s.InsertUsers(ctx, users))
	require.NoError(t, s.InsertUsers(ctx, users)) // dup across batches

	n, err := s.UserCount(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestInsertMessagesIdempotent(t *testing.T) {
	t.Parallel()
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertChannel(ctx, discord.Channel{ID: "42"}))
	require.NoError(t, s.InsertUsers(ctx, []discord.User{{ID: "1", Username: "ana", Discriminator: "0001"}}))

	msgs := []discord.Message{
		{ID: "10", ChannelID: "42", Author: discord.User{ID: "1"}, Content: "hi", Timestamp: "2023-01-01T00:00:00+00:00"},
		{ID: "11", ChannelID: "42", Author: discord.User{ID: "1"}, Content: "again", Timestamp: "2023-01-01T00:00:01+00:00"},
	}
	require.NoError(t, s.InsertMessages(ctx, msgs))
	require.NoError(t, s.InsertMessages(ctx, msgs))

	n, err := s.MessageCount(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestInsertMessagesRollsBackWhenCanceled(t *testing.T) {
	t.Parallel()
	s, _ := openTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.InsertMessages(ctx, []discord.Message{
		{ID: "10", ChannelID: "42", Author: discord.User{ID: "1"}, Content: "hi", Timestamp: "2023-01-01T00:00:00+00:00"},
	})
	require.Error(t, err)

	n, err := s.MessageCount(context.Background())
	require.NoError(t, err)
	require.Zero(t, n, "no row from a failed page may be visible")
}

func TestReopenExistingStore(t *testing.T) {
	t.Parallel()
	s, path := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertChannel(ctx, discord.Channel{ID: "42", Name: "general"}))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	n, err := s2.ChannelCount(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}
