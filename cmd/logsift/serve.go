package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poiesic/logsift/httpapi"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Accept jobs over HTTP until interrupted",
		Action: serveAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "HTTP listen address",
				Value:   ":8080",
				EnvVars: []string{"LOGSIFT_HTTP_ADDR"},
			},
			&cli.StringFlag{
				Name:  "upload-dir",
				Usage: "Directory for spooled uploads (system temp dir when empty)",
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "How long to wait for in-flight jobs on shutdown",
				Value: 30 * time.Second,
			},
		},
	}
}

func serveAction(c *cli.Context) error {
	svc, cfg, err := openService(c)
	if err != nil {
		return err
	}

	addr := c.String("addr")
	if !c.IsSet("addr") && cfg.HTTP.Addr != "" {
		addr = cfg.HTTP.Addr
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Start(ctx); err != nil {
		closeService(svc)
		return err
	}

	api := httpapi.NewServer(svc.Engine(),
		httpapi.WithResults(svc.Results()),
		httpapi.WithLogger(slog.Default()),
		httpapi.WithUploadDir(c.String("upload-dir")),
		httpapi.WithMaxUploadBytes(cfg.HTTP.MaxUploadBytes),
	)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.Duration("shutdown-timeout"))
		defer cancel()
		httpErr := srv.Shutdown(shutdownCtx)
		return errors.Join(httpErr, svc.Close(shutdownCtx))
	})
	return g.Wait()
}
