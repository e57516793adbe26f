package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTablesList(t *testing.T) {
	// Create a buffer to capture output
	var buf bytes.Buffer

	// Create a test command with our buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	// Reset flags for test
	tablesAlmanac = "builtin"
	outputFormat = "table"

	err := runTablesList(cmd, []string{})
	require.NoError(t, err)

	// Verify output contains table headers and stages
	output := buf.String()
	assert.Contains(t, output, "Stage")
	assert.Contains(t, output, "Rules")
	assert.Contains(t, output, "seed-to-soil")
	assert.Contains(t, output, "humidity-to-location")
}

func TestRunTablesListJSON(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	tablesAlmanac = "builtin"
	outputFormat = "json"

	err := runTablesList(cmd, []string{})
	require.NoError(t, err)

	var summaries []stageSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &summaries))
	require.Len(t, summaries, 7)
	assert.Equal(t, stageSummary{Name: "seed-to-soil", Rules: 2, Covered: 50}, summaries[0])
}

func TestRunTablesShow(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	tablesAlmanac = "builtin"
	outputFormat = "table"

	require.NoError(t, runTablesShow(cmd, []string{"seed-to-soil"}))
	assert.Contains(t, buf.String(), "98..100 -> 50..52")

	err := runTablesShow(cmd, []string{"nope"})
	assert.ErrorContains(t, err, "stage not found")
}

func TestRunTablesList_UnknownFormat(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	tablesAlmanac = "builtin"
	outputFormat = "yaml"

	assert.Error(t, runTablesList(cmd, []string{}))
}
