package loader

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crimelens/crime-insights-service/internal/domain"
	"github.com/crimelens/crime-insights-service/internal/metrics"
	"github.com/crimelens/crime-insights-service/internal/repository"
)

const (
	defaultBatchSize    = 5000
	defaultFlushTimeout = 5 * time.Second
)

// BatchWriterConfig configures the batch writer
type BatchWriterConfig struct {
	MaxBatchSize int
	FlushTimeout time.Duration
}

// BatchWriter handles batching and writing crime records to the repository
type BatchWriter struct {
	repository repository.CrimeRepository
	config     BatchWriterConfig
	metrics    *metrics.Recorder
	log        *zap.Logger
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(repo repository.CrimeRepository, config BatchWriterConfig, recorder *metrics.Recorder, log *zap.Logger) *BatchWriter {
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = defaultBatchSize
	}
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = defaultFlushTimeout
	}

	return &BatchWriter{
		repository: repo,
		config:     config,
		metrics:    recorder,
		log:        log,
	}
}

// Start begins processing envelopes, batching, and writing to the repository
func (w *BatchWriter) Start(ctx context.Context, in <-chan *Envelope) {
	ticker := time.NewTicker(w.config.FlushTimeout)
	defer ticker.Stop()

	batch := make([]*Envelope, 0, w.config.MaxBatchSize)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Batch writer shutting down")
			if len(batch) > 0 {
				// the run context is gone; give the final flush its own deadline
				flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.config.FlushTimeout)
				w.log.Info("Flushing final batch", zap.Int("record_count", len(batch)))
				w.processBatch(flushCtx, batch)
				cancel()
			}
			return

		case envelope, ok := <-in:
			if !ok {
				w.log.Info("Batch writer input channel closed")
				if len(batch) > 0 {
					w.log.Info("Flushing final batch", zap.Int("record_count", len(batch)))
					w.processBatch(ctx, batch)
				}
				return
			}

			batch = append(batch, envelope)

			if len(batch) >= w.config.MaxBatchSize {
				w.log.Debug("Batch size threshold reached", zap.Int("batch_size", len(batch)))
				w.processBatch(ctx, batch)
				batch = make([]*Envelope, 0, w.config.MaxBatchSize)
				ticker.Reset(w.config.FlushTimeout)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.log.Debug("Batch timeout reached", zap.Int("record_count", len(batch)))
				w.processBatch(ctx, batch)
				batch = make([]*Envelope, 0, w.config.MaxBatchSize)
			}
		}
	}
}

// processBatch inserts the batch and acks or nacks every envelope in it
func (w *BatchWriter) processBatch(ctx context.Context, envelopes []*Envelope) {
	if len(envelopes) == 0 {
		return
	}

	records := make([]*domain.CrimeRecord, len(envelopes))
	for i, env := range envelopes {
		records[i] = env.Record
	}

	insertedCount, err := w.repository.InsertCrimeRecords(ctx, records)

	if err != nil {
		w.log.Error("Failed to insert batch",
			zap.Error(err),
			zap.Int("record_count", len(records)),
			zap.String("first_source", envelopes[0].Source),
			zap.Int("first_line", envelopes[0].Line))
		w.metrics.AddLoaderRows(OutcomeFailed, len(records))
		w.nackAll(ctx, envelopes)
		return
	}

	if insertedCount != len(records) {
		w.log.Warn("Partial insert success",
			zap.Int("inserted", insertedCount),
			zap.Int("expected", len(records)))
		w.metrics.AddLoaderRows(OutcomeFailed, len(records))
		w.nackAll(ctx, envelopes)
		return
	}

	w.log.Info("Successfully inserted crime records",
		zap.Int("count", insertedCount))
	w.metrics.AddLoaderRows(OutcomeInserted, insertedCount)
	w.ackAll(ctx, envelopes)
}

func (w *BatchWriter) ackAll(ctx context.Context, envelopes []*Envelope) {
	for _, env := range envelopes {
		if err := env.Ack(ctx); err != nil {
			w.log.Error("Failed to ack envelope", zap.Error(err))
		}
	}
}

func (w *BatchWriter) nackAll(ctx context.Context, envelopes []*Envelope) {
	for _, env := range envelopes {
		if err := env.Nack(ctx); err != nil {
			w.log.Error("Failed to nack envelope", zap.Error(err))
		}
	}
}
