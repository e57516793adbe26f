package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/praetorian-inc/almanac/pkg/store"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMergeCmd creates a fresh merge command for testing
func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <source1.db> <source2.db> [source3.db...]",
		Short: "Merge multiple Almanac databases",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runMerge,
	}
	cmd.Flags().StringVarP(&mergeOutput, "output", "o", "merged.db", "Output database path")
	return cmd
}

func TestMergeCmd_RequiresMinimumArgs(t *testing.T) {
	// Test with no args - the Args validator should reject
	cmd := newMergeCmd()
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 2 arg")

	// Test with one arg
	cmd = newMergeCmd()
	cmd.SetArgs([]string{"source1.db"})
	err = cmd.Execute()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 2 arg")
}

func TestMergeCmd_MergesTwoDatabases(t *testing.T) {
	tmpDir := t.TempDir()

	source1Path := filepath.Join(tmpDir, "source1.db")
	writeRuns(t, source1Path, "example")

	source2Path := filepath.Join(tmpDir, "source2.db")
	writeRuns(t, source2Path, "boundary")

	// Run merge command
	destPath := filepath.Join(tmpDir, "merged.db")
	var buf bytes.Buffer
	cmd := newMergeCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{source1Path, source2Path, "--output", destPath})

	err := cmd.Execute()
	require.NoError(t, err)

	// Verify output
	output := buf.String()
	assert.Contains(t, output, "Merge complete")
	assert.Contains(t, output, "Sources processed: 2")
	assert.Contains(t, output, "Almanacs merged: 2")
	assert.Contains(t, output, "Runs merged: 2")

	// Verify merged database
	dest, err := store.NewSQLite(destPath)
	require.NoError(t, err)
	defer dest.Close()

	runs, err := dest.GetRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "example", runs[0].Almanac)
	assert.Equal(t, "boundary", runs[1].Almanac)
}

func TestMergeCmd_ReportsDeduplication(t *testing.T) {
	tmpDir := t.TempDir()

	// Two sources holding the same run
	source1Path := filepath.Join(tmpDir, "source1.db")
	writeRuns(t, source1Path, "example")
	source2Path := filepath.Join(tmpDir, "source2.db")
	writeRuns(t, source2Path, "example")

	// Run merge command
	destPath := filepath.Join(tmpDir, "merged.db")
	var buf bytes.Buffer
	cmd := newMergeCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{source1Path, source2Path, "--output", destPath})

	err := cmd.Execute()
	require.NoError(t, err)

	// Verify output shows deduplication (only 1 almanac, 1 run even though 2 sources)
	output := buf.String()
	assert.Contains(t, output, "Almanacs merged: 1")
	assert.Contains(t, output, "Runs merged: 1")
	assert.Contains(t, output, "Ranges merged: 7")
}

func TestMergeCmd_FailsWithInvalidSource(t *testing.T) {
	// Run merge command with non-existent source
	destPath := filepath.Join(t.TempDir(), "merged.db")
	cmd := newMergeCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"/nonexistent/source1.db", "/nonexistent/source2.db", "--output", destPath})

	err := cmd.Execute()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "merge failed")
}
