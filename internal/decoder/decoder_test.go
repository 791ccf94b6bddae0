package decoder

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimelens/crime-insights-service/internal/domain"
)

const testEmbedded = `{
	"venues": [{
		"name": "O2 Academy",
		"city": {"name": "London"},
		"address": {"line1": "211 Stockwell Road"},
		"location": {"longitude": "-0.11458", "latitude": "51.46908"}
	}]
}`

func eventRaw(id, embedded, dates string) domain.RawRow {
	return domain.RawRow{
		"ID":       id,
		"NAME":     "Jazz Night " + id,
		"EMBEDDED": embedded,
		"DATES":    dates,
	}
}

func TestEventRows_Success(t *testing.T) {
	raw := []domain.RawRow{
		eventRaw("e1", testEmbedded, `{"start": {"localDate": "2025-06-01", "localTime": "19:00"}}`),
	}

	rows, err := EventRows(raw)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "e1", row.ID)
	assert.Equal(t, "Jazz Night e1", row.Name)
	assert.InDelta(t, -0.11458, row.Longitude, 1e-9)
	assert.InDelta(t, 51.46908, row.Latitude, 1e-9)
	assert.Equal(t, "211 Stockwell Road", row.AddressLine)
	assert.Equal(t, "London", row.AreaName)
	require.NotNil(t, row.EventTimestamp)
	assert.Equal(t, time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC), *row.EventTimestamp)
	assert.Equal(t, "2025-06", row.YearMonth())
}

func TestEventRows_NumericCoordinates(t *testing.T) {
	embedded := `{"venues": [{"location": {"longitude": -2.2426, "latitude": 53.4808}}]}`

	rows, err := EventRows([]domain.RawRow{eventRaw("e1", embedded, `{}`)})

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, -2.2426, rows[0].Longitude, 1e-9)
	assert.Empty(t, rows[0].AreaName)
}

func TestEventRows_DropsRowsWithoutCoordinates(t *testing.T) {
	raw := []domain.RawRow{
		eventRaw("no-venue", `{}`, `{}`),
		eventRaw("no-latitude", `{"venues": [{"location": {"longitude": "-0.1"}}]}`, `{}`),
		eventRaw("text-longitude", `{"venues": [{"location": {"longitude": "n/a", "latitude": "51.5"}}]}`, `{}`),
		eventRaw("empty-payload", ``, `{}`),
		eventRaw("kept", testEmbedded, `{}`),
	}

	rows, err := EventRows(raw)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "kept", rows[0].ID)
}

func TestEventRows_UnknownTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		dates string
	}{
		{name: "missing time", dates: `{"start": {"localDate": "2025-06-01"}}`},
		{name: "missing date", dates: `{"start": {"localTime": "19:00:00"}}`},
		{name: "garbage", dates: `{"start": {"localDate": "TBA", "localTime": "late"}}`},
		{name: "no start", dates: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := EventRows([]domain.RawRow{eventRaw("e1", testEmbedded, tt.dates)})

			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Nil(t, rows[0].EventTimestamp)
			assert.Equal(t, "", rows[0].YearMonth())
		})
	}
}

func TestEventRows_BytePayloads(t *testing.T) {
	raw := []domain.RawRow{{
		"id":       "e1",
		"name":     "Gig",
		"embedded": []byte(testEmbedded),
		"dates":    []byte(`{"start": {"localDate": "2025-06-01", "localTime": "19:30:00"}}`),
	}}

	rows, err := EventRows(raw)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, time.Date(2025, 6, 1, 19, 30, 0, 0, time.UTC), *rows[0].EventTimestamp)
}

func TestEventRows_FatalErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  domain.RawRow
	}{
		{name: "missing payload column", raw: domain.RawRow{"id": "e1", "name": "Gig", "dates": `{}`}},
		{name: "invalid JSON", raw: eventRaw("e1", `{"venues": [`, `{}`)},
		{name: "unsupported id type", raw: domain.RawRow{"id": 42.5, "name": "Gig", "embedded": `{}`, "dates": `{}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := EventRows([]domain.RawRow{tt.raw})

			assert.Nil(t, rows)
			var decodeErr *domain.DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, 0, decodeErr.Row)
		})
	}
}

func TestEventTimestamp(t *testing.T) {
	ts := EventTimestamp("2025-06-01", "19:00")
	require.NotNil(t, ts)
	assert.Equal(t, "2025-06-01T19:00:00Z", ts.Format(time.RFC3339))

	assert.Nil(t, EventTimestamp("2025-06-01", ""))
	assert.Nil(t, EventTimestamp("", "19:00"))
	assert.Nil(t, EventTimestamp("2025-06-01", "7pm"))
}

func TestAggregateRows_Success(t *testing.T) {
	raw := []domain.RawRow{
		{"CRIME_TYPE": "Burglary", "LSOA_NAME": "Camden 001A", "MONTH": "2024-03", "crime_count": uint64(42)},
		{"crime_type": "Shoplifting", "lsoa_name": "Camden 001B", "month": time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), "crime_count": int64(7)},
		{"crime_type": "Drugs", "lsoa_name": "Camden 001C", "month": "2024-05-01", "crime_count": "3"},
	}

	rows, err := AggregateRows(raw)

	require.NoError(t, err)
	assert.Equal(t, []domain.AggregateRow{
		{Category: "Burglary", AreaName: "Camden 001A", YearMonth: "2024-03", Count: 42},
		{Category: "Shoplifting", AreaName: "Camden 001B", YearMonth: "2024-04", Count: 7},
		{Category: "Drugs", AreaName: "Camden 001C", YearMonth: "2024-05", Count: 3},
	}, rows)
}

func TestAggregateRows_Empty(t *testing.T) {
	rows, err := AggregateRows(nil)

	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestAggregateRows_InvalidCount(t *testing.T) {
	tests := []struct {
		name  string
		count any
	}{
		{name: "zero", count: uint64(0)},
		{name: "negative", count: int64(-1)},
		{name: "fraction", count: 1.5},
		{name: "text", count: "many"},
		{name: "bool", count: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AggregateRows([]domain.RawRow{
				{"crime_type": "Burglary", "lsoa_name": "Camden 001A", "month": "2024-03", "crime_count": tt.count},
			})

			var decodeErr *domain.DecodeError
			assert.True(t, errors.As(err, &decodeErr))
		})
	}
}

func TestAggregateRows_MissingColumn(t *testing.T) {
	_, err := AggregateRows([]domain.RawRow{
		{"crime_type": "Burglary", "month": "2024-03", "crime_count": uint64(1)},
	})

	var decodeErr *domain.DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.ErrorIs(t, err, errMissingColumn)
}
