// Package query builds parameterized warehouse queries for the supported query shapes.
//
// Every caller-supplied value travels in Query.Args and is bound by the driver;
// query text only ever contains fixed fragments and validated table names.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/crimelens/crime-insights-service/internal/filter"
)

// Shape identifies one of the fixed query forms
type Shape string

const (
	ShapeEventPrediction Shape = "event_prediction"
	ShapeCrimeAggregate  Shape = "crime_aggregate"
)

// MonthLayout is the format of the month column in the crime table
const MonthLayout = "2006-01"

// ErrMissingReferenceTime is returned when the event query is built without a reference time
var ErrMissingReferenceTime = errors.New("reference time is required for the event prediction query")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Expressions over the raw event payload columns. Event start times are venue
// wall-clock values; they are read as UTC so that they compare against bound
// times carrying the same wall-clock reading.
const (
	longitudeExpr     = `toFloat64OrNull(trim(BOTH '"' FROM JSONExtractRaw(embedded, 'venues', 1, 'location', 'longitude')))`
	latitudeExpr      = `toFloat64OrNull(trim(BOTH '"' FROM JSONExtractRaw(embedded, 'venues', 1, 'location', 'latitude')))`
	areaNameExpr      = `JSONExtractString(embedded, 'venues', 1, 'city', 'name')`
	eventDateTimeExpr = `parseDateTimeBestEffortOrNull(concat(JSONExtractString(dates, 'start', 'localDate'), ' ', JSONExtractString(dates, 'start', 'localTime')), 'UTC')`
)

// ValidateIdentifier checks that name is a plain or database-qualified table name
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// Query is a query text plus its positional bound arguments
type Query struct {
	Shape Shape
	SQL   string
	Args  []any
}

type clause struct {
	expr string
	args []any
}

// Builder constructs queries against the configured tables
type Builder struct {
	eventsTable string
	crimesTable string
}

// NewBuilder creates a builder; table names must be plain or schema-qualified identifiers
func NewBuilder(eventsTable, crimesTable string) (*Builder, error) {
	for _, table := range []string{eventsTable, crimesTable} {
		if err := ValidateIdentifier(table); err != nil {
			return nil, err
		}
	}

	return &Builder{
		eventsTable: eventsTable,
		crimesTable: crimesTable,
	}, nil
}

// EventPrediction builds the upcoming-events query. Rows without numeric venue
// coordinates, or starting before now, are excluded by the base predicate.
// Optional clauses follow in a fixed order: name, location, from date, to date.
func (b *Builder) EventPrediction(spec filter.Spec, now time.Time) (Query, error) {
	if err := spec.Validate(); err != nil {
		return Query{}, err
	}
	if now.IsZero() {
		return Query{}, ErrMissingReferenceTime
	}

	clauses := []clause{
		{expr: longitudeExpr + " IS NOT NULL"},
		{expr: latitudeExpr + " IS NOT NULL"},
		{expr: eventDateTimeExpr + " >= ?", args: []any{now}},
	}

	if name := spec.NameLike(); name != "" {
		clauses = append(clauses, clause{expr: "positionCaseInsensitiveUTF8(name, ?) > 0", args: []any{name}})
	}
	if location := spec.LocationLike(); location != "" {
		clauses = append(clauses, clause{expr: "positionCaseInsensitiveUTF8(" + areaNameExpr + ", ?) > 0", args: []any{location}})
	}
	if from, ok := spec.FromDate(); ok {
		clauses = append(clauses, clause{expr: eventDateTimeExpr + " >= ?", args: []any{from}})
	}
	if to, ok := spec.ToDate(); ok {
		// the upper bound covers the whole calendar day
		clauses = append(clauses, clause{expr: eventDateTimeExpr + " < ?", args: []any{to.AddDate(0, 0, 1)}})
	}

	where, args := joinClauses(clauses)

	var sb strings.Builder
	sb.WriteString("SELECT id, name, embedded, dates\n")
	fmt.Fprintf(&sb, "FROM %s\n", b.eventsTable)
	fmt.Fprintf(&sb, "WHERE %s\n", where)
	sb.WriteString("LIMIT ?")
	args = append(args, spec.Limit())

	return Query{Shape: ShapeEventPrediction, SQL: sb.String(), Args: args}, nil
}

// CrimeAggregate builds the crime count query grouped by category, area and month,
// ordered by count descending
func (b *Builder) CrimeAggregate(spec filter.Spec) (Query, error) {
	if err := spec.Validate(); err != nil {
		return Query{}, err
	}

	clauses := []clause{{expr: "1 = 1"}}

	if location := spec.LocationLike(); location != "" {
		clauses = append(clauses, clause{expr: "positionCaseInsensitiveUTF8(lsoa_name, ?) > 0", args: []any{location}})
	}

	from, hasFrom := spec.FromDate()
	to, hasTo := spec.ToDate()
	switch {
	case hasFrom && hasTo:
		clauses = append(clauses, clause{expr: "month BETWEEN ? AND ?", args: []any{from.Format(MonthLayout), to.Format(MonthLayout)}})
	case hasFrom:
		clauses = append(clauses, clause{expr: "month >= ?", args: []any{from.Format(MonthLayout)}})
	case hasTo:
		clauses = append(clauses, clause{expr: "month <= ?", args: []any{to.Format(MonthLayout)}})
	}

	where, args := joinClauses(clauses)

	var sb strings.Builder
	sb.WriteString("SELECT crime_type, lsoa_name, month, count() AS crime_count\n")
	fmt.Fprintf(&sb, "FROM %s\n", b.crimesTable)
	fmt.Fprintf(&sb, "WHERE %s\n", where)
	sb.WriteString("GROUP BY crime_type, lsoa_name, month\n")
	sb.WriteString("ORDER BY crime_count DESC")

	return Query{Shape: ShapeCrimeAggregate, SQL: sb.String(), Args: args}, nil
}

func joinClauses(clauses []clause) (string, []any) {
	exprs := make([]string, 0, len(clauses))
	args := make([]any, 0, len(clauses))
	for _, c := range clauses {
		exprs = append(exprs, c.expr)
		args = append(args, c.args...)
	}
	return strings.Join(exprs, "\n  AND "), args
}
