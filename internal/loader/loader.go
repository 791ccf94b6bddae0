// Package loader bulk-loads police.uk street-level crime CSV exports into the warehouse.
package loader

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/crimelens/crime-insights-service/internal/config"
	"github.com/crimelens/crime-insights-service/internal/metrics"
	"github.com/crimelens/crime-insights-service/internal/repository"
)

// Loader row outcomes, used as metric labels
const (
	OutcomeInserted  = "inserted"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "failed"
)

// Summary reports the row counts of a finished run
type Summary struct {
	Files       int
	FailedFiles int64
	Read        int64
	Malformed   int64
	Inserted    int64
	Failed      int64
}

// Loader orchestrates a reader → parser → batch writer pipeline
type Loader struct {
	repo    repository.CrimeRepository
	batch   config.LoaderBatch
	metrics *metrics.Recorder
	log     *zap.Logger
}

// NewLoader creates a new loader
func NewLoader(repo repository.CrimeRepository, batch config.LoaderBatch, recorder *metrics.Recorder, log *zap.Logger) *Loader {
	return &Loader{
		repo:    repo,
		batch:   batch,
		metrics: recorder,
		log:     log,
	}
}

// Run loads every CSV file under root/*/. Malformed rows are skipped; unreadable
// files and rows lost in failed batch inserts make Run return an error after the
// pipeline drains.
func (l *Loader) Run(ctx context.Context, root string) (Summary, error) {
	stats := &Stats{}
	reader := NewReader(root, stats, l.metrics, l.log)

	files, err := reader.Files()
	if err != nil {
		return Summary{}, err
	}
	if len(files) == 0 {
		return Summary{}, fmt.Errorf("no csv files found under %s", root)
	}

	l.log.Info("Loading crime data", zap.String("root", root), zap.Int("files", len(files)))

	parser := NewParserStage(NewCSVRowParser(), stats, l.metrics, l.log)
	batchWriter := NewBatchWriter(l.repo, BatchWriterConfig{
		MaxBatchSize: l.batch.BatchSize,
		FlushTimeout: l.batch.FlushTimeout(),
	}, l.metrics, l.log)

	rawChan := make(chan RawRecord, l.batch.BufferSize)
	envelopeChan := make(chan *Envelope, l.batch.BufferSize)

	var wg sync.WaitGroup
	wg.Add(3)

	// Stage 1: Read rows from the CSV files
	go func() {
		defer wg.Done()
		reader.Start(ctx, files, rawChan)
	}()

	// Stage 2: Parse rows into envelopes
	go func() {
		defer wg.Done()
		parser.Start(ctx, rawChan, envelopeChan)
	}()

	// Stage 3: Batch and write to the repository
	go func() {
		defer wg.Done()
		batchWriter.Start(ctx, envelopeChan)
	}()

	wg.Wait()

	summary := Summary{
		Files:       len(files),
		FailedFiles: stats.FailedFiles.Load(),
		Read:        stats.Read.Load(),
		Malformed:   stats.Malformed.Load(),
		Inserted:    stats.Inserted.Load(),
		Failed:      stats.Failed.Load(),
	}

	l.log.Info("Crime data load finished",
		zap.Int("files", summary.Files),
		zap.Int64("failed_files", summary.FailedFiles),
		zap.Int64("read", summary.Read),
		zap.Int64("malformed", summary.Malformed),
		zap.Int64("inserted", summary.Inserted),
		zap.Int64("failed", summary.Failed))

	if summary.FailedFiles > 0 {
		return summary, fmt.Errorf("%d of %d files could not be read", summary.FailedFiles, summary.Files)
	}
	if summary.Failed > 0 {
		return summary, fmt.Errorf("%d of %d rows failed to insert", summary.Failed, summary.Read)
	}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("load interrupted: %w", err)
	}

	return summary, nil
}
