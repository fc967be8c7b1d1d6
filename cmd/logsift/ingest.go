package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/poiesic/logsift"
	"github.com/poiesic/logsift/core"
	"github.com/poiesic/logsift/ingestion"
	"github.com/urfave/cli/v2"
)

const pollInterval = 100 * time.Millisecond

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Classify one or more log files",
		ArgsUsage: "FILE...",
		Action:    ingestAction,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "batch",
				Usage: "Read files incrementally as batch-file jobs",
			},
			&cli.StringFlag{
				Name:    "priority",
				Aliases: []string{"p"},
				Usage:   "Job priority (critical, high, normal, low, batch)",
				Value:   "normal",
			},
		},
	}
}

func ingestAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one FILE is required")
	}
	priority, err := core.ParsePriority(c.String("priority"))
	if err != nil {
		return fmt.Errorf("%w: %q", err, c.String("priority"))
	}
	source := core.SourceFileUpload
	if c.Bool("batch") {
		source = core.SourceBatchFile
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, _, err := openService(c)
	if err != nil {
		return err
	}
	defer closeService(svc)

	jobs, err := ingestFiles(ctx, svc, c.Args().Slice(), source, priority, os.Stderr)
	if err != nil {
		return err
	}
	return printSummary(ctx, os.Stdout, svc, jobs)
}

// ingestFiles submits every file, runs the engine and waits for all jobs to finish.
func ingestFiles(ctx context.Context, svc *logsift.Service, files []string, source core.Source, priority core.Priority, progress io.Writer) ([]core.Job, error) {
	engine := svc.Engine()
	ids := make([]string, 0, len(files))
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, err
		}
		id, err := engine.Submit(source, priority, core.Payload{FilePath: abs}, map[string]string{"filename": file})
		if err != nil {
			return nil, fmt.Errorf("submitting %s: %w", file, err)
		}
		ids = append(ids, id)
	}

	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	return waitJobs(ctx, engine, ids, NewProgressTracker(progress, len(ids), 5))
}

// waitJobs polls until every job is terminal or ctx is done.
func waitJobs(ctx context.Context, engine *ingestion.Engine, ids []string, tracker *ProgressTracker) ([]core.Job, error) {
	tracker.Start()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		jobs := make([]core.Job, 0, len(ids))
		done := 0
		percent := 0.0
		var lines int64
		for _, id := range ids {
			job, err := engine.GetJobStatus(id)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, job)
			if job.IsTerminal() {
				done++
				percent += 100
			} else {
				percent += job.ProgressPercent
			}
			lines += job.LinesProcessed
		}
		tracker.Update(done, percent/float64(len(ids)), lines)
		if done == len(ids) {
			tracker.Finish()
			return jobs, nil
		}

		select {
		case <-ctx.Done():
			return jobs, ctx.Err()
		case <-ticker.C:
		}
	}
}

// printSummary writes one line per job followed by tag counts of stored results.
func printSummary(ctx context.Context, w io.Writer, svc *logsift.Service, jobs []core.Job) error {
	tags := map[string]int{}
	for _, job := range jobs {
		name := job.Metadata["filename"]
		if name == "" {
			name = job.ID
		}
		fmt.Fprintf(w, "%s: %s, %d lines, %d failed", name, job.Status, job.LinesProcessed, len(job.FailedIDs))
		if !job.StartedAt.IsZero() && !job.CompletedAt.IsZero() {
			fmt.Fprintf(w, ", %s", job.CompletedAt.Sub(job.StartedAt).Round(time.Millisecond))
		}
		fmt.Fprintln(w)
		if job.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", job.Error)
		}
		for _, msg := range job.ErrorMessages {
			fmt.Fprintf(w, "  %s\n", msg)
		}

		results, err := svc.Results().GetResultsByJob(ctx, job.ID)
		if err != nil {
			return err
		}
		for _, r := range results {
			for _, tag := range r.Tags {
				tags[tag]++
			}
		}
	}

	if len(tags) == 0 {
		return nil
	}
	names := make([]string, 0, len(tags))
	for tag := range tags {
		names = append(names, tag)
	}
	slices.SortFunc(names, func(a, b string) int {
		return cmp.Or(cmp.Compare(tags[b], tags[a]), cmp.Compare(a, b))
	})
	fmt.Fprintln(w, "tags:")
	for _, tag := range names {
		fmt.Fprintf(w, "  %-20s %d\n", tag, tags[tag])
	}
	return nil
}

func closeService(svc *logsift.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = svc.Close(ctx)
}
