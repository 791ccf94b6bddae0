// Package filter turns loosely typed request parameters into a validated Spec.
package filter

import (
	"strconv"
	"strings"
	"time"

	"github.com/crimelens/crime-insights-service/internal/domain"
)

// DateLayout is the accepted calendar date format for date filters
const DateLayout = "2006-01-02"

const (
	// DefaultLimit is applied when the caller does not supply a limit
	DefaultLimit = 100
	// DefaultMaxLimit caps limit when Options.MaxLimit is not set
	DefaultMaxLimit = 1000
)

// RawParams holds filter inputs exactly as received from the caller
type RawParams struct {
	Limit    string
	Name     string
	Location string
	FromDate string
	ToDate   string
}

// Options controls parsing defaults
type Options struct {
	DefaultLimit int
	// MaxLimit is an upper bound on limit; larger values are rejected, not clamped
	MaxLimit int
}

// Spec is an immutable, validated set of optional query constraints.
// Zero-valued optional fields mean "no filter".
type Spec struct {
	limit        int
	nameLike     string
	locationLike string
	fromDate     *time.Time
	toDate       *time.Time
}

// Limit returns the row limit
func (s Spec) Limit() int { return s.limit }

// NameLike returns the case-insensitive name substring, or "" for no filter
func (s Spec) NameLike() string { return s.nameLike }

// LocationLike returns the case-insensitive area substring, or "" for no filter
func (s Spec) LocationLike() string { return s.locationLike }

// FromDate returns the inclusive lower date bound, if present
func (s Spec) FromDate() (time.Time, bool) {
	if s.fromDate == nil {
		return time.Time{}, false
	}
	return *s.fromDate, true
}

// ToDate returns the inclusive upper date bound, if present
func (s Spec) ToDate() (time.Time, bool) {
	if s.toDate == nil {
		return time.Time{}, false
	}
	return *s.toDate, true
}

// Validate checks the invariants of a Spec. Specs produced by Parse always pass.
func (s Spec) Validate() error {
	if s.limit <= 0 {
		return domain.NewValidationError("limit", "must be a positive integer, got %d", s.limit)
	}
	if s.fromDate != nil && s.toDate != nil && s.fromDate.After(*s.toDate) {
		return domain.NewValidationError("date range", "from date %s is after to date %s",
			s.fromDate.Format(DateLayout), s.toDate.Format(DateLayout))
	}
	return nil
}

// Parse validates raw parameters and builds a Spec
func Parse(raw RawParams, opts Options) (Spec, error) {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = DefaultMaxLimit
	}

	limit, err := parseLimit(raw.Limit, opts)
	if err != nil {
		return Spec{}, err
	}

	fromDate, err := parseDate("from date", raw.FromDate)
	if err != nil {
		return Spec{}, err
	}

	toDate, err := parseDate("to date", raw.ToDate)
	if err != nil {
		return Spec{}, err
	}

	spec := Spec{
		limit:        limit,
		nameLike:     raw.Name,
		locationLike: raw.Location,
		fromDate:     fromDate,
		toDate:       toDate,
	}

	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}

	return spec, nil
}

func parseLimit(value string, opts Options) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return opts.DefaultLimit, nil
	}

	limit, err := strconv.Atoi(value)
	if err != nil {
		return 0, domain.NewValidationError("limit", "%q is not an integer", value)
	}
	if limit <= 0 {
		return 0, domain.NewValidationError("limit", "must be a positive integer, got %d", limit)
	}
	if limit > opts.MaxLimit {
		return 0, domain.NewValidationError("limit", "must not exceed %d, got %d", opts.MaxLimit, limit)
	}

	return limit, nil
}

func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	date, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil, domain.NewValidationError(field, "%q is not a YYYY-MM-DD date", value)
	}

	return &date, nil
}
