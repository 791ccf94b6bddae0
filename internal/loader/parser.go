package loader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/crimelens/crime-insights-service/internal/domain"
)

// MonthLayout is the police.uk month format
const MonthLayout = "2006-01"

// CSVRowParser implements RowParser for police.uk street-level crime exports
type CSVRowParser struct{}

// NewCSVRowParser creates a new CSV row parser
func NewCSVRowParser() *CSVRowParser {
	return &CSVRowParser{}
}

// NormalizeHeader lower-cases a column name and replaces spaces with underscores
func NormalizeHeader(column string) string {
	column = strings.TrimPrefix(column, "\ufeff")
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(column)), " ", "_")
}

// Parse maps a CSV row onto a CrimeRecord. Month and crime type are required.
func (p *CSVRowParser) Parse(header, fields []string) (*domain.CrimeRecord, error) {
	if len(fields) != len(header) {
		return nil, fmt.Errorf("expected %d fields, got %d", len(header), len(fields))
	}

	row := make(map[string]string, len(header))
	for i, column := range header {
		row[NormalizeHeader(column)] = strings.TrimSpace(fields[i])
	}

	month := row["month"]
	if _, err := time.Parse(MonthLayout, month); err != nil {
		return nil, fmt.Errorf("invalid month %q", month)
	}

	crimeType := row["crime_type"]
	if crimeType == "" {
		return nil, fmt.Errorf("missing crime type")
	}

	longitude, err := parseCoordinate(row["longitude"])
	if err != nil {
		return nil, fmt.Errorf("invalid longitude: %w", err)
	}
	latitude, err := parseCoordinate(row["latitude"])
	if err != nil {
		return nil, fmt.Errorf("invalid latitude: %w", err)
	}

	return &domain.CrimeRecord{
		CrimeID:             row["crime_id"],
		Month:               month,
		ReportedBy:          row["reported_by"],
		FallsWithin:         row["falls_within"],
		Longitude:           longitude,
		Latitude:            latitude,
		Location:            row["location"],
		LSOACode:            row["lsoa_code"],
		LSOAName:            row["lsoa_name"],
		CrimeType:           crimeType,
		LastOutcomeCategory: row["last_outcome_category"],
		Context:             row["context"],
	}, nil
}

// parseCoordinate returns nil for an empty value
func parseCoordinate(value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
