package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testCSVHeader = "Crime ID,Month,Reported by,Falls within,Longitude,Latitude,Location,LSOA code,LSOA name,Crime type,Last outcome category,Context\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReader_Files(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2024-04", "2024-04-metropolitan-street.csv"), testCSVHeader)
	writeFile(t, filepath.Join(root, "2024-03", "2024-03-metropolitan-street.csv"), testCSVHeader)
	writeFile(t, filepath.Join(root, "2024-03", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, "top-level.csv"), testCSVHeader)

	files, err := NewReader(root, &Stats{}, newTestRecorder(), zap.NewNop()).Files()

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "2024-03", "2024-03-metropolitan-street.csv"),
		filepath.Join(root, "2024-04", "2024-04-metropolitan-street.csv"),
	}, files)
}

func TestReader_Start_StreamsRows(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "2024-03", "street.csv")
	second := filepath.Join(root, "2024-04", "street.csv")
	writeFile(t, first, testCSVHeader+
		"a,2024-03,MPS,MPS,-0.1,51.5,On or near High St,E01,Camden 001A,Burglary,,\n"+
		"b,2024-03,MPS,MPS,-0.2,51.6,\"On or near Park Rd, North\",E02,Camden 001B,Robbery,,\n")
	writeFile(t, second, testCSVHeader)

	reader := NewReader(root, &Stats{}, newTestRecorder(), zap.NewNop())
	files, err := reader.Files()
	require.NoError(t, err)

	out := make(chan RawRecord, 10)
	reader.Start(context.Background(), files, out)

	var rows []RawRecord
	for row := range out {
		rows = append(rows, row)
	}

	require.Len(t, rows, 2)
	assert.Equal(t, first, rows[0].Source)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Crime ID", rows[0].Header[0])
	assert.Equal(t, "a", rows[0].Fields[0])
	assert.Equal(t, 3, rows[1].Line)
	assert.Equal(t, "On or near Park Rd, North", rows[1].Fields[6])
}

func TestReader_Start_SkipsEmptyAndMissingFiles(t *testing.T) {
	root := t.TempDir()
	empty := filepath.Join(root, "2024-03", "empty.csv")
	writeFile(t, empty, "")

	stats := &Stats{}
	out := make(chan RawRecord, 10)
	NewReader(root, stats, newTestRecorder(), zap.NewNop()).Start(context.Background(), []string{empty, filepath.Join(root, "missing.csv")}, out)

	_, ok := <-out
	assert.False(t, ok)
	assert.Equal(t, int64(1), stats.FailedFiles.Load())
	assert.Equal(t, int64(0), stats.Read.Load())
}

func TestReader_Start_CountsUnparsableRows(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "2024-03", "street.csv")
	writeFile(t, file, testCSVHeader+
		"a,2024-03,MPS,MPS,-0.1,51.5,On or near High St,E01,Camden 001A,Burglary,,\n"+
		"b,2024-03,MPS,MPS,-0.1,51.5,On or \"near\" Low St,E01,Camden 001A,Burglary,,\n"+
		"c,2024-03,MPS,MPS,-0.1,51.5,On or near Mill Rd,E01,Camden 001A,Robbery,,\n")

	stats := &Stats{}
	out := make(chan RawRecord, 10)
	NewReader(root, stats, newTestRecorder(), zap.NewNop()).Start(context.Background(), []string{file}, out)

	var rows []RawRecord
	for row := range out {
		rows = append(rows, row)
	}

	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].Fields[0])
	assert.Equal(t, "c", rows[1].Fields[0])
	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, int64(1), stats.Read.Load())
	assert.Equal(t, int64(1), stats.Malformed.Load())
	assert.Equal(t, int64(0), stats.FailedFiles.Load())
}

func TestReader_Start_UnparsableHeaderFailsFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "2024-03", "street.csv")
	writeFile(t, file, "Crime \"ID,Month\n")

	stats := &Stats{}
	out := make(chan RawRecord, 10)
	NewReader(root, stats, newTestRecorder(), zap.NewNop()).Start(context.Background(), []string{file}, out)

	_, ok := <-out
	assert.False(t, ok)
	assert.Equal(t, int64(1), stats.FailedFiles.Load())
}
