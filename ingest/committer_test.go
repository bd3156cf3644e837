package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/4Lajf/karczma-wrapped/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	batches [][]string
	failOn  int // 1-based batch number that fails, 0 = never
	calls   int
}

func (w *fakeWriter) CommitBatch(_ context.Context, _ models.ChannelMeta, records []models.Record) error {
	w.calls++
	if w.failOn == w.calls {
		return errors.New("disk full")
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.Message.ID.String()
	}
	w.batches = append(w.batches, ids)
	return nil
}

func rec(id string) models.Record {
	return models.Record{Message: &models.Message{ID: models.Snowflake(id)}}
}

func TestBatcher_FlushesAtSizeInOrder(t *testing.T) {
	ctx := context.Background()
	w := &fakeWriter{}
	b := NewBatcher(w, models.ChannelMeta{ID: "1"}, 2)

	var commits []int64
	b.OnCommit = func(_ int, committed int64) { commits = append(commits, committed) }

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, b.Add(ctx, rec(id)))
	}
	assert.Equal(t, 1, b.Pending())
	require.NoError(t, b.Flush(ctx))

	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, w.batches)
	assert.Equal(t, []int64{2, 4, 5}, commits)
	assert.Equal(t, 3, b.Batches())
	assert.Equal(t, int64(5), b.Committed())
}

func TestBatcher_FlushWithNothingPending(t *testing.T) {
	w := &fakeWriter{}
	b := NewBatcher(w, models.ChannelMeta{}, 10)
	require.NoError(t, b.Flush(context.Background()))
	assert.Zero(t, w.calls)
}

func TestBatcher_DefaultSize(t *testing.T) {
	b := NewBatcher(&fakeWriter{}, models.ChannelMeta{}, 0)
	assert.Equal(t, DefaultBatchSize, b.size)
}

func TestBatcher_FailedCommitIsNotCounted(t *testing.T) {
	ctx := context.Background()
	w := &fakeWriter{failOn: 2}
	b := NewBatcher(w, models.ChannelMeta{}, 2)

	require.NoError(t, b.Add(ctx, rec("a")))
	require.NoError(t, b.Add(ctx, rec("b")))
	require.NoError(t, b.Add(ctx, rec("c")))
	err := b.Add(ctx, rec("d"))
	require.Error(t, err)

	assert.Equal(t, 1, b.Batches())
	assert.Equal(t, int64(2), b.Committed())
	assert.Zero(t, b.Pending())
}

func TestBatcher_CancelledContextStopsBeforeCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &fakeWriter{}
	b := NewBatcher(w, models.ChannelMeta{}, 2)

	require.NoError(t, b.Add(ctx, rec("a")))
	cancel()
	err := b.Add(ctx, rec("b"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, w.calls)
}
