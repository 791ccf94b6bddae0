package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/crimelens/crime-insights-service/internal/metrics"
)

// RawRecord is one CSV data row with the header of the file it came from
type RawRecord struct {
	Source string
	Line   int
	Header []string
	Fields []string
}

// Reader walks a police.uk export directory (one sub-directory per month) and streams CSV rows
type Reader struct {
	root    string
	stats   *Stats
	metrics *metrics.Recorder
	log     *zap.Logger
}

// NewReader creates a new reader rooted at dir
func NewReader(root string, stats *Stats, recorder *metrics.Recorder, log *zap.Logger) *Reader {
	return &Reader{
		root:    root,
		stats:   stats,
		metrics: recorder,
		log:     log,
	}
}

// Files lists the CSV files under root/*/, in lexical order
func (r *Reader) Files() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(r.root, "*", "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list csv files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Start reads every file and sends its rows to the output channel.
// Unreadable files are logged, counted in Stats.FailedFiles and skipped.
func (r *Reader) Start(ctx context.Context, files []string, out chan<- RawRecord) {
	defer close(out)

	for _, file := range files {
		if ctx.Err() != nil {
			r.log.Info("Reader shutting down")
			return
		}

		if err := r.readFile(ctx, file, out); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				r.log.Info("Reader shutting down while sending rows")
				return
			}
			r.stats.FailedFiles.Add(1)
			r.log.Error("Failed to read csv file", zap.String("file", file), zap.Error(err))
		}
	}
}

func (r *Reader) readFile(ctx context.Context, file string, out chan<- RawRecord) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.log.Warn("Empty csv file", zap.String("file", file))
			return nil
		}
		return fmt.Errorf("failed to read header: %w", err)
	}

	rows := 0
	line := 1
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		var parseErr *csv.ParseError
		if err != nil && !errors.As(err, &parseErr) {
			return fmt.Errorf("failed to read line %d: %w", line, err)
		}
		if err != nil {
			r.stats.Read.Add(1)
			r.stats.Malformed.Add(1)
			r.metrics.AddLoaderRows(OutcomeMalformed, 1)
			r.log.Warn("Skipping unreadable csv row",
				zap.String("file", file),
				zap.Int("line", line),
				zap.Error(err))
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- RawRecord{Source: file, Line: line, Header: header, Fields: fields}:
			rows++
		}
	}

	r.log.Info("Read csv file", zap.String("file", file), zap.Int("rows", rows))
	return nil
}
