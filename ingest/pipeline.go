// Package ingest drives export files through decoding, derivation and
// batched commits into the store, gated by the processed-files ledger.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/4Lajf/karczma-wrapped/export"
	"github.com/4Lajf/karczma-wrapped/models"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Store is what the pipeline needs from the relational store.
type Store interface {
	BatchWriter
	IsProcessed(ctx context.Context, filename string) (bool, error)
	MarkProcessed(ctx context.Context, filename string, at time.Time) error
}

// Options tunes a Pipeline.
type Options struct {
	BatchSize int
	// Workers > 1 ingests that many files at once. Commits are still
	// serialized by the store.
	Workers         int
	ContinueOnError bool
	StatusFile      string
}

// OptionsFromConfig maps the ingest section of the configuration.
func OptionsFromConfig(cfg models.IngestConfig) Options {
	return Options{
		BatchSize:       cfg.BatchSize,
		Workers:         cfg.Workers,
		ContinueOnError: cfg.ContinueOnError,
		StatusFile:      cfg.StatusFile,
	}
}

// Pipeline ingests export files into a Store.
type Pipeline struct {
	store  Store
	opts   Options
	logger *zap.Logger
	status *StatusWriter
	now    func() time.Time
}

// NewPipeline creates a pipeline over an open store. The store's lifecycle
// belongs to the caller.
func NewPipeline(store Store, opts Options, logger *zap.Logger) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		store:  store,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
	if opts.StatusFile != "" {
		p.status = NewStatusWriter(opts.StatusFile)
	}
	return p
}

// Run ingests every export file in dir. Per-file failures are collected in the
// summary; when ContinueOnError is false the first one also stops the run and
// is returned. A cancelled context stops the run between batches and between
// files and is returned as the error.
func (p *Pipeline) Run(ctx context.Context, dir string) (*Summary, error) {
	files, err := export.ListFiles(dir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: p.now(),
		Total:     len(files),
	}
	logger := p.logger.With(zap.String("run_id", summary.RunID))
	logger.Info("Starting ingestion run",
		zap.String("input_dir", dir),
		zap.Int("files", len(files)),
		zap.Int("batch_size", p.opts.BatchSize),
		zap.Int("workers", p.opts.Workers))

	if p.opts.Workers > 1 {
		err = p.runParallel(ctx, logger, files, summary)
	} else {
		err = p.runSequential(ctx, logger, files, summary)
	}

	summary.FinishedAt = p.now()
	logger.Info("Ingestion run finished", zap.String("summary", summary.String()))

	if p.status != nil {
		if serr := p.status.Save(summary, dir); serr != nil {
			logger.Warn("Failed to write status file", zap.String("path", p.opts.StatusFile), zap.Error(serr))
		}
	}
	return summary, err
}

func (p *Pipeline) runSequential(ctx context.Context, logger *zap.Logger, files []string, summary *Summary) error {
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.ingestInto(ctx, logger, path, summary); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runParallel(ctx context.Context, logger *zap.Logger, files []string, summary *Summary) error {
	workers := pool.New().WithMaxGoroutines(p.opts.Workers).WithContext(ctx)
	if !p.opts.ContinueOnError {
		workers = workers.WithCancelOnError().WithFirstError()
	}
	for _, path := range files {
		workers.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return p.ingestInto(ctx, logger, path, summary)
		})
	}
	err := workers.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// ingestInto records the outcome of one file in summary. It returns an error
// only when the run must stop.
func (p *Pipeline) ingestInto(ctx context.Context, logger *zap.Logger, path string, summary *Summary) error {
	name := filepath.Base(path)
	skipped, committed, err := p.ingestFile(ctx, logger, path)
	switch {
	case err == nil && skipped:
		summary.skipped(name)
		return nil
	case err == nil:
		summary.completed(name, committed)
		return nil
	case ctx.Err() != nil:
		var fe *FileError
		if errors.As(err, &fe) {
			logger.Warn("File interrupted", zap.String("file", name), zap.Int("committed_batches", fe.Batches))
		}
		return ctx.Err()
	}

	var fe *FileError
	if !errors.As(err, &fe) {
		fe = &FileError{File: name, Err: err}
	}
	summary.failed(fe)
	logger.Error("File failed",
		zap.String("file", name),
		zap.Int("committed_batches", fe.Batches),
		zap.Int64("committed_messages", fe.Messages),
		zap.Error(fe.Err))

	if p.opts.ContinueOnError {
		return nil
	}
	return fe
}

// IngestFile ingests a single export file. It reports skipped=true without
// reading the file when the ledger already has it. On failure the error is a
// *FileError and the file is not marked processed.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (skipped bool, err error) {
	skipped, _, err = p.ingestFile(ctx, p.logger, path)
	return skipped, err
}

func (p *Pipeline) ingestFile(ctx context.Context, logger *zap.Logger, path string) (bool, int64, error) {
	name := filepath.Base(path)
	logger = logger.With(zap.String("file", name))

	done, err := p.store.IsProcessed(ctx, name)
	if err != nil {
		return false, 0, &FileError{File: name, Err: err}
	}
	if done {
		logger.Debug("Skipping already processed file")
		return true, 0, nil
	}

	meta := export.Resolve(path)
	logger.Debug("Resolved channel metadata",
		zap.String("channel_id", meta.ID),
		zap.String("channel_name", meta.Name),
		zap.String("category", meta.CategoryName),
		zap.String("guild", meta.GuildName))

	f, err := os.Open(path)
	if err != nil {
		return false, 0, &FileError{File: name, Err: fmt.Errorf("failed to open export: %w", err)}
	}
	defer f.Close()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	logger.Info("Processing file", zap.String("size", humanize.Bytes(uint64(size))))

	dec := export.NewDecoder(f)
	batcher := NewBatcher(p.store, meta, p.opts.BatchSize)
	lastPercent := -1
	batcher.OnCommit = func(batches int, committed int64) {
		percent := 100
		if size > 0 {
			percent = int(dec.BytesRead() * 100 / size)
		}
		if percent <= lastPercent {
			return
		}
		lastPercent = percent
		logger.Info("Committed batch",
			zap.Int("batch", batches),
			zap.Int64("messages", committed),
			zap.String("progress", fmt.Sprintf("%s / %s (%d%%)",
				humanize.Bytes(uint64(dec.BytesRead())), humanize.Bytes(uint64(size)), percent)))
	}

	fail := func(err error) (bool, int64, error) {
		return false, batcher.Committed(), &FileError{
			File:     name,
			Batches:  batcher.Batches(),
			Messages: batcher.Committed(),
			Err:      err,
		}
	}

	for {
		msg, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(err)
		}
		rec := models.Record{Message: msg, Derived: export.Derive(msg)}
		if err := batcher.Add(ctx, rec); err != nil {
			return fail(err)
		}
	}
	if err := batcher.Flush(ctx); err != nil {
		return fail(err)
	}

	if err := p.store.MarkProcessed(ctx, name, p.now()); err != nil {
		return fail(err)
	}

	logger.Info("Finished file",
		zap.Int("batches", batcher.Batches()),
		zap.Int64("messages", batcher.Committed()))
	return false, batcher.Committed(), nil
}
