package domain

// CrimeRecord represents a street-level crime row stored in ClickHouse
type CrimeRecord struct {
	CrimeID             string   `ch:"crime_id"`
	Month               string   `ch:"month"`
	ReportedBy          string   `ch:"reported_by"`
	FallsWithin         string   `ch:"falls_within"`
	Longitude           *float64 `ch:"longitude"`
	Latitude            *float64 `ch:"latitude"`
	Location            string   `ch:"location"`
	LSOACode            string   `ch:"lsoa_code"`
	LSOAName            string   `ch:"lsoa_name"`
	CrimeType           string   `ch:"crime_type"`
	LastOutcomeCategory string   `ch:"last_outcome_category"`
	Context             string   `ch:"context"`
}
