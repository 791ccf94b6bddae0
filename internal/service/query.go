package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crimelens/crime-insights-service/internal/decoder"
	"github.com/crimelens/crime-insights-service/internal/domain"
	"github.com/crimelens/crime-insights-service/internal/dto"
	"github.com/crimelens/crime-insights-service/internal/filter"
	"github.com/crimelens/crime-insights-service/internal/metrics"
	"github.com/crimelens/crime-insights-service/internal/prediction"
	"github.com/crimelens/crime-insights-service/internal/query"
	"github.com/crimelens/crime-insights-service/internal/repository"
)

// Options configures QueryService
type Options struct {
	DefaultLimit int
	MaxLimit     int
	QueryTimeout time.Duration
	// Clock supplies the reference time for "upcoming" events; defaults to time.Now
	Clock func() time.Time
}

// QueryService runs the filter → build → execute → decode → enrich pipeline
type QueryService struct {
	builder  *query.Builder
	executor repository.QueryExecutor
	merger   prediction.Merger
	options  Options
	metrics  *metrics.Recorder
	log      *zap.Logger
}

// NewQueryService creates a new query service
func NewQueryService(builder *query.Builder, executor repository.QueryExecutor, merger prediction.Merger, options Options, recorder *metrics.Recorder, log *zap.Logger) *QueryService {
	if options.Clock == nil {
		options.Clock = time.Now
	}

	return &QueryService{
		builder:  builder,
		executor: executor,
		merger:   merger,
		options:  options,
		metrics:  recorder,
		log:      log,
	}
}

// PredictEvents returns upcoming events matching the filters, each enriched with a crime prediction
func (s *QueryService) PredictEvents(ctx context.Context, req *dto.PredictRequest) ([]domain.EnrichedEventRow, error) {
	spec, err := filter.Parse(filter.RawParams{
		Limit:    req.Limit,
		Name:     req.Name,
		Location: req.Location,
		FromDate: req.StartDate,
		ToDate:   req.EndDate,
	}, s.filterOptions())
	if err != nil {
		s.log.Warn("Invalid prediction request", zap.Error(err))
		return nil, err
	}

	q, err := s.builder.EventPrediction(spec, s.today())
	if err != nil {
		return nil, fmt.Errorf("failed to build event query: %w", err)
	}

	raw, err := s.execute(ctx, q)
	if err != nil {
		return nil, err
	}

	rows, err := decoder.EventRows(raw)
	if err != nil {
		s.log.Error("Failed to decode event rows", zap.Int("raw_rows", len(raw)), zap.Error(err))
		return nil, err
	}

	if dropped := len(raw) - len(rows); dropped > 0 {
		s.log.Warn("Dropped event rows without venue coordinates", zap.Int("dropped", dropped))
	}

	enriched, err := s.merger.Merge(ctx, rows)
	if err != nil {
		return nil, err
	}

	s.log.Info("Events enriched with predictions",
		zap.Int("rows", len(enriched)),
		zap.Int("limit", spec.Limit()))

	return enriched, nil
}

// CrimeByLocation returns crime counts grouped by category, area and month, largest first
func (s *QueryService) CrimeByLocation(ctx context.Context, req *dto.CrimeByLocationRequest) ([]domain.AggregateRow, error) {
	spec, err := filter.Parse(filter.RawParams{
		Location: req.LocationSearch,
		FromDate: req.FromDate,
		ToDate:   req.ToDate,
	}, s.filterOptions())
	if err != nil {
		s.log.Warn("Invalid crime analytics request", zap.Error(err))
		return nil, err
	}

	q, err := s.builder.CrimeAggregate(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to build aggregate query: %w", err)
	}

	raw, err := s.execute(ctx, q)
	if err != nil {
		return nil, err
	}

	rows, err := decoder.AggregateRows(raw)
	if err != nil {
		s.log.Error("Failed to decode aggregate rows", zap.Int("raw_rows", len(raw)), zap.Error(err))
		return nil, err
	}

	s.log.Info("Crime counts retrieved",
		zap.String("location_search", req.LocationSearch),
		zap.Int("rows", len(rows)))

	return rows, nil
}

// Ping checks the warehouse connection
func (s *QueryService) Ping(ctx context.Context) error {
	return s.executor.Ping(ctx)
}

// execute runs q under the query timeout. A result that arrives after the
// request was cancelled is discarded.
func (s *QueryService) execute(ctx context.Context, q query.Query) ([]domain.RawRow, error) {
	execCtx := ctx
	if s.options.QueryTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, s.options.QueryTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.executor.Execute(execCtx, q)
	elapsed := time.Since(start)

	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	if err != nil {
		var queryErr *domain.QueryExecutionError
		if !errors.As(err, &queryErr) {
			queryErr = domain.NewQueryExecutionError(string(q.Shape), err)
		}

		outcome := metrics.OutcomeError
		if queryErr.Timeout {
			outcome = metrics.OutcomeTimeout
		}
		s.metrics.ObserveQuery(string(q.Shape), outcome, 0, elapsed)

		s.log.Error("Query execution failed",
			zap.String("shape", string(q.Shape)),
			zap.Bool("timeout", queryErr.Timeout),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, queryErr
	}

	s.metrics.ObserveQuery(string(q.Shape), metrics.OutcomeSuccess, len(raw), elapsed)
	s.log.Debug("Query executed",
		zap.String("shape", string(q.Shape)),
		zap.Int("rows", len(raw)),
		zap.Duration("elapsed", elapsed))

	return raw, nil
}

func (s *QueryService) filterOptions() filter.Options {
	return filter.Options{
		DefaultLimit: s.options.DefaultLimit,
		MaxLimit:     s.options.MaxLimit,
	}
}

// today is the start of the current UTC day; events later today still count as upcoming
func (s *QueryService) today() time.Time {
	now := s.options.Clock().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
