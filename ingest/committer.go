package ingest

import (
	"context"

	"github.com/4Lajf/karczma-wrapped/models"
)

// DefaultBatchSize is used when Options.BatchSize is not positive.
const DefaultBatchSize = 1000

// BatchWriter commits one batch of records for a channel atomically.
type BatchWriter interface {
	CommitBatch(ctx context.Context, channel models.ChannelMeta, records []models.Record) error
}

// Batcher accumulates records of one file and hands them to a BatchWriter in
// fixed-size batches, preserving source order.
type Batcher struct {
	writer  BatchWriter
	channel models.ChannelMeta
	size    int
	pending []models.Record

	batches   int
	committed int64

	// OnCommit, if set, is called after every successful batch commit.
	OnCommit func(batches int, committed int64)
}

// NewBatcher returns a batcher that flushes every size records.
func NewBatcher(w BatchWriter, channel models.ChannelMeta, size int) *Batcher {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Batcher{
		writer:  w,
		channel: channel,
		size:    size,
		pending: make([]models.Record, 0, size),
	}
}

// Add queues rec and commits the batch once it is full.
func (b *Batcher) Add(ctx context.Context, rec models.Record) error {
	b.pending = append(b.pending, rec)
	if len(b.pending) >= b.size {
		return b.Flush(ctx)
	}
	return nil
}

// Flush commits the pending records, if any. A cancelled context stops the
// flush before the transaction starts. Pending records are discarded whether
// or not the commit succeeds.
func (b *Batcher) Flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	batch := b.pending
	b.pending = make([]models.Record, 0, b.size)

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.writer.CommitBatch(ctx, b.channel, batch); err != nil {
		return err
	}

	b.batches++
	b.committed += int64(len(batch))
	if b.OnCommit != nil {
		b.OnCommit(b.batches, b.committed)
	}
	return nil
}

// Batches is the number of batches committed so far.
func (b *Batcher) Batches() int { return b.batches }

// Committed is the number of records committed so far.
func (b *Batcher) Committed() int64 { return b.committed }

// Pending is the number of records waiting for the next flush.
func (b *Batcher) Pending() int { return len(b.pending) }
