package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/praetorian-inc/almanac/pkg/serve"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "serve",
		RunE: runServe,
	}
	cmd.Flags().StringVar(&serveAlmanac, "almanac", "builtin", "")
	cmd.Flags().IntVar(&serveWorkers, "workers", 2, "")
	return cmd
}

func TestServeCommand_Exists(t *testing.T) {
	// Verify serve command is registered
	cmd, _, err := rootCmd.Find([]string{"serve"})
	assert.NoError(t, err)
	assert.NotNil(t, cmd)
	assert.Equal(t, "serve", cmd.Name())
}

func TestServeCommand_Integration(t *testing.T) {
	// Create pipe for input
	pr, pw := io.Pipe()

	// Capture output
	out := &bytes.Buffer{}

	testCmd := newServeCmd()
	testCmd.SetIn(pr)
	testCmd.SetOut(out)
	testCmd.SetErr(out)

	done := make(chan error, 1)
	go func() {
		done <- testCmd.Execute()
	}()

	// Send a lookup, then close
	_, err := pw.Write([]byte(`{"type":"lookup","payload":{"values":[13]}}` + "\n"))
	require.NoError(t, err)
	_, err = pw.Write([]byte(`{"type":"close","payload":{}}` + "\n"))
	require.NoError(t, err)
	pw.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(20 * time.Second):
		t.Fatal("command did not exit in time")
	}

	// Verify ready signal and lookup response were sent
	var responses []serve.Response
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		var resp serve.Response
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		responses = append(responses, resp)
	}
	require.Len(t, responses, 2)
	assert.Equal(t, "ready", responses[0].Type)
	assert.Equal(t, "lookup", responses[1].Type)
	assert.Contains(t, string(responses[1].Data), `"lowest":35`)
}

func TestServeCommand_BadAlmanac(t *testing.T) {
	testCmd := newServeCmd()
	testCmd.SetOut(&bytes.Buffer{})
	testCmd.SetErr(&bytes.Buffer{})
	testCmd.SetArgs([]string{"--almanac", "builtin:missing"})

	err := testCmd.Execute()
	assert.ErrorContains(t, err, "loading almanac")
}
