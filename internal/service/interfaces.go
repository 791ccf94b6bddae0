package service

import (
	"context"

	"github.com/crimelens/crime-insights-service/internal/domain"
	"github.com/crimelens/crime-insights-service/internal/dto"
)

// QueryServicer defines the interface for the query service operations
type QueryServicer interface {
	PredictEvents(ctx context.Context, req *dto.PredictRequest) ([]domain.EnrichedEventRow, error)
	CrimeByLocation(ctx context.Context, req *dto.CrimeByLocationRequest) ([]domain.AggregateRow, error)
	Ping(ctx context.Context) error
}
