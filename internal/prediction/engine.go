package prediction

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crimelens/crime-insights-service/internal/domain"
	"github.com/crimelens/crime-insights-service/internal/metrics"
)

// Engine submits event rows as one batch and joins predictions back by position
type Engine struct {
	predictor Predictor
	timeout   time.Duration
	metrics   *metrics.Recorder
	log       *zap.Logger
}

// NewEngine creates a merge engine; timeout bounds each batch call and is disabled when zero
func NewEngine(predictor Predictor, timeout time.Duration, recorder *metrics.Recorder, log *zap.Logger) *Engine {
	return &Engine{
		predictor: predictor,
		timeout:   timeout,
		metrics:   recorder,
		log:       log,
	}
}

// Features builds the model input for rows, one feature per row in the same order
func Features(rows []domain.EventRow) []Feature {
	features := make([]Feature, len(rows))
	for i, row := range rows {
		features[i] = Feature{
			Longitude: row.Longitude,
			Latitude:  row.Latitude,
			Location:  row.AddressLine,
			LSOAName:  row.AreaName,
			Month:     row.YearMonth(),
		}
	}
	return features
}

// Merge enriches rows with predictions. Either every row is enriched or a
// single *domain.PredictionError is returned; there is no retry.
func (e *Engine) Merge(ctx context.Context, rows []domain.EventRow) ([]domain.EnrichedEventRow, error) {
	if len(rows) == 0 {
		return []domain.EnrichedEventRow{}, nil
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	predictions, err := e.predictor.Predict(callCtx, Features(rows))
	elapsed := time.Since(start)

	if err == nil && ctx.Err() != nil {
		// the request went away while the call was in flight
		err = ctx.Err()
	}
	if err == nil && len(predictions) != len(rows) {
		err = fmt.Errorf("model returned %d predictions for %d rows", len(predictions), len(rows))
	}

	if err != nil {
		predictionErr := domain.NewPredictionError(len(rows), err)
		outcome := metrics.OutcomeError
		if predictionErr.Timeout {
			outcome = metrics.OutcomeTimeout
		}
		e.metrics.ObservePrediction(outcome, len(rows), elapsed)
		e.log.Error("Prediction batch failed",
			zap.Int("batch_size", len(rows)),
			zap.Bool("timeout", predictionErr.Timeout),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, predictionErr
	}

	e.metrics.ObservePrediction(metrics.OutcomeSuccess, len(rows), elapsed)

	enriched := make([]domain.EnrichedEventRow, len(rows))
	for i := range rows {
		enriched[i] = domain.EnrichedEventRow{
			EventRow:         rows[i],
			PredictionResult: predictions[i],
		}
	}

	e.log.Debug("Prediction batch merged",
		zap.Int("batch_size", len(rows)),
		zap.Duration("elapsed", elapsed))

	return enriched, nil
}
