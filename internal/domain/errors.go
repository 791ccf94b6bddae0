package domain

import (
	"context"
	"errors"
	"fmt"
)

// Pipeline stage names reported alongside errors
const (
	StageValidation = "validation"
	StageQuery      = "query"
	StageDecode     = "decode"
	StagePrediction = "prediction"
)

// ValidationError reports bad or missing filter input; no query is built or executed
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for the given input field
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// QueryExecutionError reports a warehouse failure (connectivity, syntax or timeout)
type QueryExecutionError struct {
	Shape   string
	Timeout bool
	Err     error
}

func (e *QueryExecutionError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("query %s timed out: %v", e.Shape, e.Err)
	}
	return fmt.Sprintf("query %s failed: %v", e.Shape, e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// NewQueryExecutionError wraps a warehouse error, flagging deadline expiry as a timeout
func NewQueryExecutionError(shape string, err error) *QueryExecutionError {
	return &QueryExecutionError{Shape: shape, Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
}

// PredictionError reports a model-service failure or a prediction/row length mismatch
type PredictionError struct {
	BatchSize int
	Timeout   bool
	Err       error
}

func (e *PredictionError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("prediction for %d rows timed out: %v", e.BatchSize, e.Err)
	}
	return fmt.Sprintf("prediction for %d rows failed: %v", e.BatchSize, e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// NewPredictionError wraps a prediction failure, flagging deadline expiry as a timeout
func NewPredictionError(batchSize int, err error) *PredictionError {
	return &PredictionError{BatchSize: batchSize, Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
}

// DecodeError reports a result set that cannot be decoded at all
type DecodeError struct {
	Row int
	Err error
}

func (e *DecodeError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("decode failed: %v", e.Err)
	}
	return fmt.Sprintf("decode failed at row %d: %v", e.Row, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Stage reports which pipeline stage produced err
func Stage(err error) string {
	var validationErr *ValidationError
	var queryErr *QueryExecutionError
	var predictionErr *PredictionError
	var decodeErr *DecodeError

	switch {
	case errors.As(err, &validationErr):
		return StageValidation
	case errors.As(err, &queryErr):
		return StageQuery
	case errors.As(err, &predictionErr):
		return StagePrediction
	case errors.As(err, &decodeErr):
		return StageDecode
	default:
		return ""
	}
}
