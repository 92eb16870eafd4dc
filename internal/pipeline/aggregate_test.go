package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/qcrunner/internal/record"
)

func TestFormatRow(t *testing.T) {
	rec := record.New("/in/a.img", "/out/a.img", nil)
	require.NoError(t, rec.AddOutput("width", 40))
	require.NoError(t, rec.AddOutput("note", "two\twords\nsplit"))
	rec.Warn("low contrast")
	rec.Warn("blurry")

	row, err := FormatRow(rec)
	require.NoError(t, err)
	assert.Equal(t, "a.img\t40\ttwo words split\tlow contrast|blurry\n", row)
	assert.Len(t, strings.Split(strings.TrimSuffix(row, "\n"), "\t"), len(rec.Output)+1)
}

func TestFormatRow_MissingField(t *testing.T) {
	rec := record.New("/in/a.img", "/out/a.img", nil)
	rec.Output = append(rec.Output, "ghost")

	_, err := FormatRow(rec)
	var ae *AggregationError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "ghost", ae.Field)
	assert.Equal(t, "/in/a.img", ae.File)
}

func TestFormatHeader(t *testing.T) {
	assert.Equal(t, "filename\twidth\twarnings\n", FormatHeader([]string{"filename", "width"}))
	assert.Equal(t, "filename\tscan date\tnote a\twarnings\n", FormatHeader([]string{"filename", "scan\tdate", "note\r\na"}))
}

func TestFormatHeader_MatchesRowColumns(t *testing.T) {
	rec := record.New("/in/a.img", "/out/a.img", nil)
	require.NoError(t, rec.AddOutput("scan\tdate", "2024-01-01"))
	require.NoError(t, rec.AddOutput("note\nline", "ok"))

	header := FormatHeader(rec.Output)
	row, err := FormatRow(rec)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSuffix(header, "\n"), "\t"), 4)
	assert.Len(t, strings.Split(strings.TrimSuffix(row, "\n"), "\t"), 4)
	assert.Equal(t, 1, strings.Count(header, "\n"))
}

func TestAggregator_Unbounded(t *testing.T) {
	dir := t.TempDir()
	a := NewAggregator(dir, 0, false)
	require.NoError(t, a.Open())
	for _, name := range []string{"a.img", "b.img", "c.img"} {
		require.NoError(t, a.Write(rowRecord(t, name)))
	}
	require.NoError(t, a.Close())

	assert.Equal(t, []string{filepath.Join(dir, "results.tsv")}, a.Files())
	lines := readLines(t, filepath.Join(dir, "results.tsv"))
	require.Len(t, lines, 4)
	assert.Equal(t, "filename\tsite\twarnings", lines[0])
	assert.Equal(t, "a.img\tlab-a\t", lines[1])
	assert.Equal(t, 3, a.Rows())
}

func TestAggregator_RotationIsLazy(t *testing.T) {
	dir := t.TempDir()
	a := NewAggregator(dir, 2, false)
	require.NoError(t, a.Open())
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, a.Write(rowRecord(t, name)))
	}
	require.NoError(t, a.Close())

	require.Equal(t, basenames(a.Files()), []string{"results_1.tsv", "results_2.tsv", "results_3.tsv"})
	for i, want := range []int{2, 2, 1} {
		lines := readLines(t, a.Files()[i])
		assert.Equal(t, "filename\tsite\twarnings", lines[0], "each batch has its own header")
		assert.Len(t, lines, want+1)
	}
	assert.NoFileExists(t, filepath.Join(dir, "results_4.tsv"))
}

func TestAggregator_ExactMultipleLeavesNoEmptyBatch(t *testing.T) {
	dir := t.TempDir()
	a := NewAggregator(dir, 2, false)
	require.NoError(t, a.Open())
	for _, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, a.Write(rowRecord(t, name)))
	}
	require.NoError(t, a.Close())
	assert.Len(t, a.Files(), 2)
}

func TestAggregator_AppendWritesNoHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.tsv")
	writeFile(t, path, "filename\tsite\twarnings\nold.img\tlab-a\t\n")

	a := NewAggregator(dir, 0, true)
	require.NoError(t, a.Open())
	require.NoError(t, a.Write(rowRecord(t, "new.img")))
	require.NoError(t, a.Close())

	assert.Equal(t, []string{
		"filename\tsite\twarnings",
		"old.img\tlab-a\t",
		"new.img\tlab-a\t",
	}, readLines(t, path))
}

func TestAggregator_OverwriteTruncates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.tsv")
	writeFile(t, path, "stale\n")

	a := NewAggregator(dir, 0, false)
	require.NoError(t, a.Open())
	require.NoError(t, a.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestAggregator_FailedRecordWritesNothing(t *testing.T) {
	dir := t.TempDir()
	a := NewAggregator(dir, 1, false)
	require.NoError(t, a.Open())

	bad := rowRecord(t, "bad.img")
	bad.Output = append(bad.Output, "ghost")
	var ae *AggregationError
	require.ErrorAs(t, a.Write(bad), &ae)

	require.NoError(t, a.Write(rowRecord(t, "good.img")))
	require.NoError(t, a.Close())

	assert.Len(t, a.Files(), 1, "a failed record does not count toward rotation")
	assert.Equal(t, []string{"filename\tsite\twarnings", "good.img\tlab-a\t"}, readLines(t, a.Files()[0]))
}

func TestAggregator_WriteBeforeOpen(t *testing.T) {
	a := NewAggregator(t.TempDir(), 0, false)
	assert.Error(t, a.Write(rowRecord(t, "a.img")))
	assert.NoError(t, a.Close())
}

func TestHasPreviousReport(t *testing.T) {
	dir := t.TempDir()
	ok, err := hasPreviousReport(dir)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = hasPreviousReport(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "results_dir.tsv"), 0o755))
	touch(t, dir, "results.txt")
	ok, _ = hasPreviousReport(dir)
	assert.False(t, ok)

	touch(t, dir, "results_3.tsv")
	ok, _ = hasPreviousReport(dir)
	assert.True(t, ok)
}

// --- Helpers ---

func rowRecord(t *testing.T, name string) *record.Record {
	t.Helper()
	rec := record.New(filepath.Join("/in", name), filepath.Join("/out", name), nil)
	require.NoError(t, rec.AddOutput("site", "lab-a"))
	return rec
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}
