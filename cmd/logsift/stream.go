package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/logsift"
	"github.com/poiesic/logsift/core"
	"github.com/urfave/cli/v2"
)

func streamCommand() *cli.Command {
	return &cli.Command{
		Name:   "stream",
		Usage:  "Classify lines read from stdin as one stream job",
		Action: streamAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "Stream identifier",
				Value: "stdin",
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

func streamAction(c *cli.Context) error {
	priority, err := core.ParsePriority(c.String("priority"))
	if err != nil {
		return fmt.Errorf("%w: %q", err, c.String("priority"))
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, _, err := openService(c)
	if err != nil {
		return err
	}
	defer closeService(svc)

	job, err := streamLines(ctx, svc, c.String("id"), priority, os.Stdin)
	if err != nil {
		return err
	}
	return printSummary(ctx, os.Stdout, svc, []core.Job{job})
}

// streamLines feeds r into a stream job until EOF, then closes the stream
// and waits for the job to drain.
func streamLines(ctx context.Context, svc *logsift.Service, streamID string, priority core.Priority, r io.Reader) (core.Job, error) {
	engine := svc.Engine()
	jobID, err := engine.OpenStream(streamID, priority, map[string]string{"filename": streamID})
	if err != nil {
		return core.Job{}, err
	}
	if err := svc.Start(ctx); err != nil {
		return core.Job{}, err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		if _, err := engine.AppendStream(streamID, strings.TrimSuffix(scanner.Text(), "\r")); err != nil {
			return core.Job{}, err
		}
	}
	if err := engine.CloseStream(streamID); err != nil {
		return core.Job{}, err
	}
	if err := scanner.Err(); err != nil {
		return core.Job{}, fmt.Errorf("%w: reading input: %w", core.ErrIO, err)
	}

	jobs, err := waitJobs(ctx, engine, []string{jobID}, NewProgressTracker(io.Discard, 1, 100))
	if err != nil {
		return core.Job{}, err
	}
	return jobs[0], nil
}
