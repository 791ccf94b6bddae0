package dto

// PredictRequest represents the /predict query parameters, kept as raw strings
// so that validation errors are reported by the filter layer
type PredictRequest struct {
	Limit     string `form:"limit" example:"50"`
	Name      string `form:"name" example:"jazz"`
	Location  string `form:"location" example:"London"`
	StartDate string `form:"start_date" example:"2025-06-01"`
	EndDate   string `form:"end_date" example:"2025-06-30"`
}

// CrimeByLocationRequest represents the /analytics/crime_by_location query parameters
type CrimeByLocationRequest struct {
	LocationSearch string `form:"location_search" example:"london"`
	FromDate       string `form:"from_date" example:"2024-01-01"`
	ToDate         string `form:"to_date" example:"2025-02-01"`
}
