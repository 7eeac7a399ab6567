package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:", nil)
	require.NoError(t, err)
	return j
}

func TestJournal_AppendAndRecent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	seed := int64(42)
	require.NoError(t, j.Append(ctx, &Record{
		JobID:    "job-1",
		Endpoint: "flux-pro-1.1",
		Status:   "ready",
		AssetURL: "https://x/a.png",
		Seed:     &seed,
		Attempts: 3,
	}))
	require.NoError(t, j.Append(ctx, &Record{
		JobID:     "job-2",
		Endpoint:  "flux-kontext-pro",
		Status:    "moderated",
		ErrorCode: "MODERATION",
		CreatedAt: time.Now().Add(time.Second),
	}))

	records, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "job-2", records[0].JobID, "newest first")
	assert.Equal(t, "job-1", records[1].JobID)
	assert.NotEmpty(t, records[1].ID, "Append assigns an id")
	require.NotNil(t, records[1].Seed)
	assert.Equal(t, int64(42), *records[1].Seed)
}

func TestJournal_RecentLimit(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Append(ctx, &Record{Endpoint: "flux-dev", Status: "ready"}))
	}

	records, err := j.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestJournal_CountByStatus(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for _, status := range []string{"ready", "ready", "timeout", "moderated"} {
		require.NoError(t, j.Append(ctx, &Record{Endpoint: "flux-dev", Status: status}))
	}

	counts, err := j.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["ready"])
	assert.Equal(t, int64(1), counts["timeout"])
	assert.Equal(t, int64(1), counts["moderated"])
}
