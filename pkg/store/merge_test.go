package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// seedDB writes one almanac and one run per solvedAt into a new database.
func seedDB(t *testing.T, path string, seeds []uint64, solvedAt ...time.Time) {
	t.Helper()

	s, err := NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	a := testAlmanac(t, seeds...)
	require.NoError(t, s.AddAlmanac(a))
	for _, at := range solvedAt {
		require.NoError(t, s.AddRun(testAnswer(a, at)))
	}
}

func TestMerge_EmptySources(t *testing.T) {
	_, err := Merge(MergeConfig{
		SourcePaths: []string{},
		DestPath:    filepath.Join(t.TempDir(), "dest.db"),
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no source databases")
}

func TestMerge_NoDestination(t *testing.T) {
	_, err := Merge(MergeConfig{
		SourcePaths: []string{"source.db"},
		DestPath:    "",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "destination path is required")
}

func TestMerge_MissingSource(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.db")
	seedDB(t, existing, []uint64{79, 14}, time.Unix(100, 0))

	missing := filepath.Join(dir, "missing.db")
	dest := filepath.Join(dir, "dest.db")

	_, err := Merge(MergeConfig{
		SourcePaths: []string{existing, missing},
		DestPath:    dest,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.NoFileExists(t, missing)
	assert.NoFileExists(t, dest, "nothing is written when a source is missing")
}

func TestMerge_SingleSource(t *testing.T) {
	tmpDir := t.TempDir()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	sourcePath := filepath.Join(tmpDir, "source.db")
	seedDB(t, sourcePath, []uint64{79, 14}, at)

	// Merge to destination
	destPath := filepath.Join(tmpDir, "dest.db")
	stats, err := Merge(MergeConfig{
		SourcePaths: []string{sourcePath},
		DestPath:    destPath,
	})
	require.NoError(t, err)

	// Verify stats
	assert.Equal(t, 1, stats.AlmanacsMerged)
	assert.Equal(t, 1, stats.RunsMerged)
	assert.Equal(t, 2, stats.RangesMerged)
	assert.Equal(t, 1, stats.SourcesProcessed)

	// Verify data in destination
	dest, err := NewSQLite(destPath)
	require.NoError(t, err)
	defer dest.Close()

	digest := testAlmanac(t, 79, 14).Digest()
	exists, err := dest.RunExists(digest)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = dest.GetAlmanac(digest)
	assert.NoError(t, err)
}

func TestMerge_MultipleSources(t *testing.T) {
	tmpDir := t.TempDir()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	source1Path := filepath.Join(tmpDir, "source1.db")
	seedDB(t, source1Path, []uint64{1, 2}, at, at.Add(time.Hour))

	source2Path := filepath.Join(tmpDir, "source2.db")
	seedDB(t, source2Path, []uint64{3, 4}, at)

	// Merge both sources
	destPath := filepath.Join(tmpDir, "merged.db")
	stats, err := Merge(MergeConfig{
		SourcePaths: []string{source1Path, source2Path},
		DestPath:    destPath,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.AlmanacsMerged)
	assert.Equal(t, 3, stats.RunsMerged)
	assert.Equal(t, 6, stats.RangesMerged)
	assert.Equal(t, 2, stats.SourcesProcessed)

	dest, err := NewSQLite(destPath)
	require.NoError(t, err)
	defer dest.Close()

	runs, err := dest.GetRuns()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for _, r := range runs {
		ranges, err := dest.GetRanges(r.ID)
		require.NoError(t, err)
		assert.Len(t, ranges, 2, "run %d keeps its ranges", r.ID)
	}
}

func TestMerge_Deduplication(t *testing.T) {
	tmpDir := t.TempDir()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Same almanac and run in two sources
	source1Path := filepath.Join(tmpDir, "source1.db")
	seedDB(t, source1Path, []uint64{1, 2}, at)
	source2Path := filepath.Join(tmpDir, "source2.db")
	seedDB(t, source2Path, []uint64{1, 2}, at)

	destPath := filepath.Join(tmpDir, "merged.db")
	stats, err := Merge(MergeConfig{
		SourcePaths: []string{source1Path, source2Path},
		DestPath:    destPath,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.AlmanacsMerged)
	assert.Equal(t, 1, stats.RunsMerged)
	assert.Equal(t, 2, stats.RangesMerged)

	dest, err := NewSQLite(destPath)
	require.NoError(t, err)
	defer dest.Close()

	runs, err := dest.GetRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestMerge_Logs(t *testing.T) {
	tmpDir := t.TempDir()
	sourcePath := filepath.Join(tmpDir, "source.db")
	seedDB(t, sourcePath, []uint64{1, 2}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	core, logs := observer.New(zap.InfoLevel)
	_, err := Merge(MergeConfig{
		SourcePaths: []string{sourcePath},
		DestPath:    filepath.Join(tmpDir, "dest.db"),
		Logger:      zap.New(core),
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("merged source").All()
	require.Len(t, entries, 1)
	assert.Equal(t, sourcePath, entries[0].ContextMap()["source"])
	assert.Equal(t, int64(1), entries[0].ContextMap()["runs"])
}
