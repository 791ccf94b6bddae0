package dto

import (
	"github.com/crimelens/crime-insights-service/internal/domain"
)

// EventDateTimeLayout renders venue-local event start times; they carry no zone
const EventDateTimeLayout = "2006-01-02T15:04:05"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"prediction_error"`
	Stage   string `json:"stage,omitempty" example:"prediction"`
	Message string `json:"message,omitempty" example:"prediction for 10 rows failed: model service returned 503"`
}

// EnrichedEventResponse is an element of the /predict response
type EnrichedEventResponse struct {
	ID                  string  `json:"id" example:"G5vYZ9BxF1b7w"`
	Name                string  `json:"name" example:"Jazz at the Roundhouse"`
	Longitude           float64 `json:"longitude" example:"-0.151"`
	Latitude            float64 `json:"latitude" example:"51.543"`
	Location            string  `json:"location" example:"Chalk Farm Road"`
	LSOAName            string  `json:"lsoa_name" example:"London"`
	EventDateTime       *string `json:"event_datetime" example:"2025-06-01T19:00:00"`
	CrimeType           string  `json:"crime_type" example:"Anti-social behaviour"`
	CrimeTypeConfidence float64 `json:"crime_type_confidence" example:"0.43"`
}

// CrimeCountResponse is an element of the /analytics/crime_by_location response
type CrimeCountResponse struct {
	CrimeType  string `json:"crime_type" example:"Burglary"`
	LSOAName   string `json:"lsoa_name" example:"Camden 001A"`
	Month      string `json:"month" example:"2024-03"`
	CrimeCount uint64 `json:"crime_count" example:"42"`
}

// NewEnrichedEventResponses converts enriched rows, preserving order
func NewEnrichedEventResponses(rows []domain.EnrichedEventRow) []EnrichedEventResponse {
	out := make([]EnrichedEventResponse, len(rows))
	for i, row := range rows {
		var eventDateTime *string
		if row.EventTimestamp != nil {
			formatted := row.EventTimestamp.Format(EventDateTimeLayout)
			eventDateTime = &formatted
		}

		out[i] = EnrichedEventResponse{
			ID:                  row.ID,
			Name:                row.Name,
			Longitude:           row.Longitude,
			Latitude:            row.Latitude,
			Location:            row.AddressLine,
			LSOAName:            row.AreaName,
			EventDateTime:       eventDateTime,
			CrimeType:           row.Category,
			CrimeTypeConfidence: row.Confidence,
		}
	}
	return out
}

// NewCrimeCountResponses converts aggregate rows, preserving order
func NewCrimeCountResponses(rows []domain.AggregateRow) []CrimeCountResponse {
	out := make([]CrimeCountResponse, len(rows))
	for i, row := range rows {
		out[i] = CrimeCountResponse{
			CrimeType:  row.Category,
			LSOAName:   row.AreaName,
			Month:      row.YearMonth,
			CrimeCount: row.Count,
		}
	}
	return out
}
