package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/logsift"
	"github.com/poiesic/logsift/classify/mock"
	"github.com/poiesic/logsift/config"
	"github.com/poiesic/logsift/core"
	"github.com/poiesic/logsift/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func newTestService(t *testing.T) *logsift.Service {
	t.Helper()
	svc, err := logsift.Open("",
		logsift.WithClassifier(mock.NewMockClassifier()),
		logsift.WithEngineOptions(ingestion.WithIdleInterval(5*time.Millisecond)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { closeService(svc) })
	return svc
}

func TestSetupLogger(t *testing.T) {
	app := newApp()

	t.Run("invalid level", func(t *testing.T) {
		err := app.Run([]string{"logsift", "--log-level", "loud", "results", "--job", "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	for _, level := range []string{"debug", "INFO", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			set := newApp()
			set.Commands = []*cli.Command{{Name: "noop", Action: func(*cli.Context) error { return nil }}}
			assert.NoError(t, set.Run([]string{"logsift", "--log-level", level, "noop"}))
		})
	}
}

func TestCommandArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"ingest needs files", []string{"logsift", "ingest"}, "at least one FILE"},
		{"ingest bad priority", []string{"logsift", "ingest", "--priority", "urgent", "a.log"}, "invalid priority"},
		{"stream bad priority", []string{"logsift", "stream", "--priority", "urgent"}, "invalid priority"},
		{"results needs a filter", []string{"logsift", "results"}, "exactly one of --job or --tag"},
		{"results rejects both filters", []string{"logsift", "results", "--job", "a", "--tag", "b"}, "exactly one of --job or --tag"},
		{"results needs a store", []string{"logsift", "results", "--tag", "error"}, "required to read stored results"},
		{"missing config", []string{"logsift", "--config", "/nonexistent/logsift.yaml", "results", "--tag", "x"}, "reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newApp().Run(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logsift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  max_concurrent: 2
classifier:
  host: http://from-file:8000
  model: file-model
storage:
  path: /var/lib/from-file
`), 0o600))

	var got *config.Config
	app := newApp()
	app.Commands = []*cli.Command{{
		Name: "show",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			got = cfg
			return err
		},
	}}

	err := app.Run([]string{"logsift", "--config", path, "--db", "/tmp/from-flag", "--classifier-model", "flag-model", "--max-concurrent", "6", "show"})
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "/tmp/from-flag", got.Storage.Path)
	assert.Equal(t, "flag-model", got.Classifier.Model)
	assert.Equal(t, "http://from-file:8000", got.Classifier.Host)
	assert.Equal(t, 6, got.Engine.MaxConcurrent)
}

func TestIngestFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "api.log")
	second := filepath.Join(dir, "worker.log")
	require.NoError(t, os.WriteFile(first, []byte("ERROR db down\nINFO retry\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("WARN queue full\n\nERROR dropped\n"), 0o600))

	svc := newTestService(t)
	var progress bytes.Buffer
	jobs, err := ingestFiles(context.Background(), svc, []string{first, second}, core.SourceBatchFile, core.PriorityLow, &progress)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	for _, job := range jobs {
		assert.Equal(t, core.StatusCompleted, job.Status)
		assert.Equal(t, core.SourceBatchFile, job.Source)
	}
	assert.Contains(t, progress.String(), "2/2 jobs")

	var out bytes.Buffer
	require.NoError(t, printSummary(context.Background(), &out, svc, jobs))
	summary := out.String()
	assert.Contains(t, summary, "api.log: completed, 2 lines, 0 failed")
	assert.Contains(t, summary, "worker.log: completed, 2 lines, 0 failed")
	assert.Regexp(t, `error\s+2`, summary)
	assert.Regexp(t, `warn\s+1`, summary)
}

func TestIngestFiles_MissingFile(t *testing.T) {
	svc := newTestService(t)
	jobs, err := ingestFiles(context.Background(), svc, []string{filepath.Join(t.TempDir(), "missing.log")}, core.SourceFileUpload, core.PriorityNormal, &bytes.Buffer{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, core.StatusFailed, jobs[0].Status)
	assert.NotEmpty(t, jobs[0].Error)
}

func TestStreamLines(t *testing.T) {
	svc := newTestService(t)

	input := strings.NewReader("INFO boot\r\nERROR crash\nWARN restart\n")
	job, err := streamLines(context.Background(), svc, "stdin", core.PriorityHigh, input)
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, job.Status)
	assert.Equal(t, core.SourceStream, job.Source)
	assert.Len(t, job.ProcessedIDs, 3)

	results, err := svc.Results().GetResultsByJob(context.Background(), job.ID)
	require.NoError(t, err)

	var out bytes.Buffer
	printResults(&out, results)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, job.ID+":1 [info] INFO boot", lines[0])
}

func TestPrintResults_Empty(t *testing.T) {
	var out bytes.Buffer
	printResults(&out, nil)
	assert.Equal(t, "no results\n", out.String())
}
