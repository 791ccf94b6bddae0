// Package decoder maps raw warehouse rows into typed domain rows.
package decoder

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/crimelens/crime-insights-service/internal/domain"
)

// Paths into the semi-structured event payload columns
const (
	longitudePath = "venues.0.location.longitude"
	latitudePath  = "venues.0.location.latitude"
	addressPath   = "venues.0.address.line1"
	areaNamePath  = "venues.0.city.name"
	startDatePath = "start.localDate"
	startTimePath = "start.localTime"
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

var (
	errMissingColumn = errors.New("missing column")
	errInvalidJSON   = errors.New("payload is not valid JSON")
)

// EventRows decodes the event prediction result set. Rows whose payload lacks
// numeric venue coordinates are dropped; an unparsable start date/time yields
// a nil EventTimestamp.
func EventRows(raw []domain.RawRow) ([]domain.EventRow, error) {
	rows := make([]domain.EventRow, 0, len(raw))

	for i, r := range raw {
		r = normalizeKeys(r)

		id, err := requiredString(r, "id")
		if err != nil {
			return nil, &domain.DecodeError{Row: i, Err: err}
		}
		name, err := requiredString(r, "name")
		if err != nil {
			return nil, &domain.DecodeError{Row: i, Err: err}
		}
		embedded, err := payload(r, "embedded")
		if err != nil {
			return nil, &domain.DecodeError{Row: i, Err: err}
		}
		dates, err := payload(r, "dates")
		if err != nil {
			return nil, &domain.DecodeError{Row: i, Err: err}
		}

		longitude, ok := number(embedded.Get(longitudePath))
		if !ok {
			continue
		}
		latitude, ok := number(embedded.Get(latitudePath))
		if !ok {
			continue
		}

		rows = append(rows, domain.EventRow{
			ID:             id,
			Name:           name,
			Longitude:      longitude,
			Latitude:       latitude,
			AddressLine:    embedded.Get(addressPath).String(),
			AreaName:       embedded.Get(areaNamePath).String(),
			EventTimestamp: EventTimestamp(dates.Get(startDatePath).String(), dates.Get(startTimePath).String()),
		})
	}

	return rows, nil
}

// EventTimestamp joins a local date and time with a single space and parses
// them as one timestamp; nil means unknown. The result holds the venue
// wall-clock reading in the UTC location.
func EventTimestamp(date, clock string) *time.Time {
	if date == "" || clock == "" {
		return nil
	}

	value := date + " " + clock
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts
		}
	}
	return nil
}

// AggregateRows decodes the crime aggregate result set, preserving row order
func AggregateRows(raw []domain.RawRow) ([]domain.AggregateRow, error) {
	rows := make([]domain.AggregateRow, 0, len(raw))

	for i, r := range raw {
		r = normalizeKeys(r)

		category, err := requiredString(r, "crime_type")
		if err != nil {
			return nil, &domain.DecodeError{Row: i, Err: err}
		}
		area, err := requiredString(r, "lsoa_name")
		if err != nil {
			return nil, &domain.DecodeError{Row: i, Err: err}
		}
		month, err := yearMonth(r)
		if err != nil {
			return nil, &domain.DecodeError{Row: i, Err: err}
		}
		count, err := crimeCount(r)
		if err != nil {
			return nil, &domain.DecodeError{Row: i, Err: err}
		}

		rows = append(rows, domain.AggregateRow{
			Category:  category,
			AreaName:  area,
			YearMonth: month,
			Count:     count,
		})
	}

	return rows, nil
}

// normalizeKeys lower-cases column names regardless of the warehouse casing
func normalizeKeys(r domain.RawRow) domain.RawRow {
	out := make(domain.RawRow, len(r))
	for k, v := range r {
		out[strings.ToLower(k)] = v
	}
	return out
}

func requiredString(r domain.RawRow, column string) (string, error) {
	v, ok := r[column]
	if !ok {
		return "", fmt.Errorf("%w %q", errMissingColumn, column)
	}
	s, ok := stringValue(v)
	if !ok {
		return "", fmt.Errorf("column %q has unsupported type %T", column, v)
	}
	return s, nil
}

func stringValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", true
	case string:
		return val, true
	case *string:
		if val == nil {
			return "", true
		}
		return *val, true
	case []byte:
		return string(val), true
	case fmt.Stringer:
		return val.String(), true
	default:
		return "", false
	}
}

func payload(r domain.RawRow, column string) (gjson.Result, error) {
	s, err := requiredString(r, column)
	if err != nil {
		return gjson.Result{}, err
	}
	if s == "" {
		return gjson.Result{}, nil
	}
	if !gjson.Valid(s) {
		return gjson.Result{}, fmt.Errorf("column %q: %w", column, errInvalidJSON)
	}
	return gjson.Parse(s), nil
}

// number accepts JSON numbers and numeric strings, as venue coordinates arrive as either
func number(res gjson.Result) (float64, bool) {
	var f float64
	switch res.Type {
	case gjson.Number:
		f = res.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(res.Str), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func yearMonth(r domain.RawRow) (string, error) {
	v, ok := r["month"]
	if !ok {
		return "", fmt.Errorf("%w %q", errMissingColumn, "month")
	}
	switch val := v.(type) {
	case time.Time:
		return val.Format("2006-01"), nil
	case *time.Time:
		if val != nil {
			return val.Format("2006-01"), nil
		}
		return "", nil
	}
	s, ok := stringValue(v)
	if !ok {
		return "", fmt.Errorf("column %q has unsupported type %T", "month", v)
	}
	if len(s) >= len("2006-01-02") {
		if ts, err := time.Parse("2006-01-02", s[:len("2006-01-02")]); err == nil {
			return ts.Format("2006-01"), nil
		}
	}
	return s, nil
}

func crimeCount(r domain.RawRow) (uint64, error) {
	v, ok := r["crime_count"]
	if !ok {
		return 0, fmt.Errorf("%w %q", errMissingColumn, "crime_count")
	}

	var count uint64
	switch val := v.(type) {
	case uint64:
		count = val
	case uint32:
		count = uint64(val)
	case int64:
		if val < 0 {
			return 0, fmt.Errorf("negative crime_count %d", val)
		}
		count = uint64(val)
	case int:
		if val < 0 {
			return 0, fmt.Errorf("negative crime_count %d", val)
		}
		count = uint64(val)
	case float64:
		if val < 0 || val != math.Trunc(val) {
			return 0, fmt.Errorf("invalid crime_count %v", val)
		}
		count = uint64(val)
	case string:
		parsed, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid crime_count %q: %w", val, err)
		}
		count = parsed
	default:
		return 0, fmt.Errorf("column %q has unsupported type %T", "crime_count", v)
	}

	if count < 1 {
		return 0, fmt.Errorf("crime_count must be at least 1, got %d", count)
	}
	return count, nil
}
