package domain

import "time"

// RawRow is a single result row as returned by the warehouse, keyed by column name
type RawRow map[string]any

// EventRow is an upcoming event with its venue location extracted from the event payload
type EventRow struct {
	ID             string
	Name           string
	Longitude      float64
	Latitude       float64
	AddressLine    string
	AreaName       string
	EventTimestamp *time.Time
}

// YearMonth returns the event month as YYYY-MM, or an empty string when the timestamp is unknown
func (e EventRow) YearMonth() string {
	if e.EventTimestamp == nil {
		return ""
	}
	return e.EventTimestamp.Format("2006-01")
}

// PredictionResult is the model output for a single event row
type PredictionResult struct {
	Category   string
	Confidence float64
}

// EnrichedEventRow is an EventRow joined positionally with its PredictionResult
type EnrichedEventRow struct {
	EventRow
	PredictionResult
}

// AggregateRow is a crime count for a single category, area and month
type AggregateRow struct {
	Category  string
	AreaName  string
	YearMonth string
	Count     uint64
}
