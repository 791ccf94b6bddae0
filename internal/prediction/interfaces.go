package prediction

import (
	"context"

	"github.com/crimelens/crime-insights-service/internal/domain"
)

// Feature is one row of model input, keyed by the model's training column names
type Feature struct {
	Longitude float64 `json:"LONGITUDE"`
	Latitude  float64 `json:"LATITUDE"`
	Location  string  `json:"LOCATION"`
	LSOAName  string  `json:"LSOA_NAME"`
	Month     string  `json:"MONTH"`
}

// Predictor scores a feature batch. Implementations must return exactly one
// result per feature, in input order.
type Predictor interface {
	Predict(ctx context.Context, features []Feature) ([]domain.PredictionResult, error)
}

// Merger enriches event rows with predictions
type Merger interface {
	Merge(ctx context.Context, rows []domain.EventRow) ([]domain.EnrichedEventRow, error)
}
