package repository

import (
	"context"

	"github.com/crimelens/crime-insights-service/internal/domain"
	"github.com/crimelens/crime-insights-service/internal/query"
)

// QueryExecutor runs a built query with its bound arguments
type QueryExecutor interface {
	// Execute runs q and returns every result row keyed by column name.
	// Failures are reported as *domain.QueryExecutionError.
	Execute(ctx context.Context, q query.Query) ([]domain.RawRow, error)

	// Ping checks if the warehouse connection is alive
	Ping(ctx context.Context) error
}

// CrimeRepository defines the storage operations used by the bulk loader
type CrimeRepository interface {
	// InsertCrimeRecords inserts a batch of crime records into the storage
	InsertCrimeRecords(ctx context.Context, records []*domain.CrimeRecord) (int, error)

	// InitSchema initializes the database schema (creates tables if they don't exist)
	InitSchema(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// Close closes the repository and releases resources
	Close() error
}
