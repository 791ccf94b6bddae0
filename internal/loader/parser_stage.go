package loader

import (
	"context"

	"go.uber.org/zap"

	"github.com/crimelens/crime-insights-service/internal/metrics"
)

// ParserStage turns raw CSV rows into record envelopes, skipping malformed rows
type ParserStage struct {
	parser  RowParser
	stats   *Stats
	metrics *metrics.Recorder
	log     *zap.Logger
}

// NewParserStage creates a new parser stage
func NewParserStage(parser RowParser, stats *Stats, recorder *metrics.Recorder, log *zap.Logger) *ParserStage {
	return &ParserStage{
		parser:  parser,
		stats:   stats,
		metrics: recorder,
		log:     log,
	}
}

// Start begins parsing rows and outputs envelopes
func (p *ParserStage) Start(ctx context.Context, in <-chan RawRecord, out chan<- *Envelope) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Parser stage shutting down")
			return
		case raw, ok := <-in:
			if !ok {
				p.log.Info("Parser stage input channel closed")
				return
			}

			p.stats.Read.Add(1)

			envelope := p.parseRecord(raw)
			if envelope == nil {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- envelope:
			}
		}
	}
}

// parseRecord parses a single row into an envelope, or returns nil for a malformed row
func (p *ParserStage) parseRecord(raw RawRecord) *Envelope {
	record, err := p.parser.Parse(raw.Header, raw.Fields)
	if err != nil {
		p.log.Warn("Skipping malformed row",
			zap.String("file", raw.Source),
			zap.Int("line", raw.Line),
			zap.Error(err))
		p.stats.Malformed.Add(1)
		p.metrics.AddLoaderRows(OutcomeMalformed, 1)
		return nil
	}

	ack := func(context.Context) error {
		p.stats.Inserted.Add(1)
		return nil
	}

	nack := func(context.Context) error {
		p.stats.Failed.Add(1)
		return nil
	}

	return NewEnvelope(record, raw.Source, raw.Line, ack, nack)
}
