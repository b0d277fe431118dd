package snowflake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTime(t *testing.T) {
	t.Parallel()

	// Example ID from the API documentation.
	ts, err := Time("175928847299117063")
	require.NoError(t, err)
	require.Equal(t, time.Date(2016, 4, 30, 11, 18, 25, 796e6, time.UTC), ts)
}

func TestParseOrdering(t *testing.T) {
	t.Parallel()

	older, err := Parse("175928847299117063")
	require.NoError(t, err)
	newer, err := Parse("1141203943770722424")
	require.NoError(t, err)
	require.Less(t, older, newer)
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	_, err := Parse("not-a-snowflake")
	require.Error(t, err)
	_, err = Time("")
	require.Error(t, err)
}
