package loader

import (
	"context"
	"sync/atomic"

	"github.com/crimelens/crime-insights-service/internal/domain"
)

// Stats counts rows by outcome across a run
type Stats struct {
	Read        atomic.Int64
	Malformed   atomic.Int64
	Inserted    atomic.Int64
	Failed      atomic.Int64
	FailedFiles atomic.Int64
}

// Envelope wraps a parsed crime record with its origin and completion callbacks
type Envelope struct {
	Record *domain.CrimeRecord
	Source string
	Line   int
	ack    func(context.Context) error
	nack   func(context.Context) error
}

// NewEnvelope creates a new record envelope
func NewEnvelope(record *domain.CrimeRecord, source string, line int, ack, nack func(context.Context) error) *Envelope {
	return &Envelope{
		Record: record,
		Source: source,
		Line:   line,
		ack:    ack,
		nack:   nack,
	}
}

// Ack marks the record as stored
func (e *Envelope) Ack(ctx context.Context) error {
	if e.ack != nil {
		return e.ack(ctx)
	}
	return nil
}

// Nack marks the record as lost in a failed batch
func (e *Envelope) Nack(ctx context.Context) error {
	if e.nack != nil {
		return e.nack(ctx)
	}
	return nil
}
