package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/poiesic/logsift/core"
	"github.com/urfave/cli/v2"
)

func resultsCommand() *cli.Command {
	return &cli.Command{
		Name:   "results",
		Usage:  "Print stored classifications by job or tag",
		Action: resultsAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "job",
				Aliases: []string{"j"},
				Usage:   "Job ID",
			},
			&cli.StringFlag{
				Name:    "tag",
				Aliases: []string{"t"},
				Usage:   "Tag",
			},
		},
	}
}

func resultsAction(c *cli.Context) error {
	jobID, tag := c.String("job"), c.String("tag")
	if (jobID == "") == (tag == "") {
		return fmt.Errorf("exactly one of --job or --tag is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("--db or storage.path is required to read stored results")
	}

	svc, _, err := openService(c)
	if err != nil {
		return err
	}
	defer closeService(svc)

	var results []*core.UnitResult
	if jobID != "" {
		results, err = svc.Results().GetResultsByJob(c.Context, jobID)
	} else {
		results, err = svc.Results().GetResultsByTag(c.Context, tag)
	}
	if err != nil {
		return err
	}
	printResults(os.Stdout, results)
	return nil
}

func printResults(w io.Writer, results []*core.UnitResult) {
	for _, r := range results {
		fmt.Fprintf(w, "%s:%d [%s] %s\n", r.JobID, r.Index+1, strings.Join(r.Tags, ","), r.Text)
		if r.Summary != "" {
			fmt.Fprintf(w, "    %s\n", r.Summary)
		}
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "no results")
	}
}
