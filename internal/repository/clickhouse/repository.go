package clickhouse

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/crimelens/crime-insights-service/internal/domain"
	"github.com/crimelens/crime-insights-service/internal/query"
)

// Repository implements QueryExecutor and CrimeRepository for ClickHouse
type Repository struct {
	client      *Client
	eventsTable string
	crimesTable string
	log         *zap.Logger
}

// NewRepository creates a new ClickHouse repository. Table names are taken
// from the client configuration and must be plain identifiers.
func NewRepository(client *Client, log *zap.Logger) (*Repository, error) {
	for _, table := range []string{client.config.EventsTable, client.config.CrimesTable} {
		if err := query.ValidateIdentifier(table); err != nil {
			return nil, err
		}
	}

	return &Repository{
		client:      client,
		eventsTable: client.config.EventsTable,
		crimesTable: client.config.CrimesTable,
		log:         log,
	}, nil
}

// InitSchema creates the events and crime tables if they do not exist
func (r *Repository) InitSchema(ctx context.Context) error {
	eventsQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id String,
		name String,
		embedded String,
		dates String,
		ingested_at DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree(ingested_at)
	ORDER BY id
	`, r.eventsTable)

	if err := r.client.Conn().Exec(ctx, eventsQuery); err != nil {
		return fmt.Errorf("failed to create %s table: %w", r.eventsTable, err)
	}

	crimesQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		crime_id String,
		month LowCardinality(String),
		reported_by LowCardinality(String),
		falls_within LowCardinality(String),
		longitude Nullable(Float64),
		latitude Nullable(Float64),
		location String,
		lsoa_code String,
		lsoa_name String,
		crime_type LowCardinality(String),
		last_outcome_category LowCardinality(String),
		context String
	) ENGINE = MergeTree
	PARTITION BY month
	ORDER BY (month, lsoa_name, crime_type)
	SETTINGS index_granularity = 8192
	`, r.crimesTable)

	if err := r.client.Conn().Exec(ctx, crimesQuery); err != nil {
		return fmt.Errorf("failed to create %s table: %w", r.crimesTable, err)
	}

	r.log.Info("ClickHouse schema initialized successfully",
		zap.String("events_table", r.eventsTable),
		zap.String("crimes_table", r.crimesTable))
	return nil
}

// Execute runs a built query with positional bound arguments
func (r *Repository) Execute(ctx context.Context, q query.Query) ([]domain.RawRow, error) {
	rows, err := r.client.Conn().Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, domain.NewQueryExecutionError(string(q.Shape), err)
	}
	defer func(rows driver.Rows) {
		err := rows.Close()
		if err != nil {
			r.log.Error("Failed to close query rows",
				zap.String("shape", string(q.Shape)),
				zap.Error(err))
		}
	}(rows)

	result, err := collectRows(rows)
	if err != nil {
		return nil, domain.NewQueryExecutionError(string(q.Shape), err)
	}

	return result, nil
}

// collectRows scans every row into a column-name keyed map using the
// driver-reported scan types. Nullable values are dereferenced to nil or the value.
func collectRows(rows driver.Rows) ([]domain.RawRow, error) {
	columnTypes := rows.ColumnTypes()
	result := []domain.RawRow{}

	for rows.Next() {
		dest := make([]any, len(columnTypes))
		for i, ct := range columnTypes {
			dest[i] = reflect.New(ct.ScanType()).Interface()
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(domain.RawRow, len(columnTypes))
		for i, ct := range columnTypes {
			v := reflect.ValueOf(dest[i]).Elem()
			if v.Kind() == reflect.Ptr {
				if v.IsNil() {
					row[ct.Name()] = nil
					continue
				}
				v = v.Elem()
			}
			row[ct.Name()] = v.Interface()
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// InsertCrimeRecords inserts a batch of crime records into ClickHouse
func (r *Repository) InsertCrimeRecords(ctx context.Context, records []*domain.CrimeRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO "+r.crimesTable)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	insertedCount := 0
	for _, record := range records {
		err := batch.Append(
			record.CrimeID,
			record.Month,
			record.ReportedBy,
			record.FallsWithin,
			record.Longitude,
			record.Latitude,
			record.Location,
			record.LSOACode,
			record.LSOAName,
			record.CrimeType,
			record.LastOutcomeCategory,
			record.Context,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to append crime record to batch: %w", err)
		}
		insertedCount++
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}

	return insertedCount, nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}
