package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/livedom/internal/dev"
	"github.com/vango-dev/livedom/internal/publish"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		port    int
		host    string
		entry   string
		noWatch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a live document",
		Long: `Render the entry description on the server and mirror it to
WebSocket clients. Edits to the entry file are reconciled into the
live document and broadcast as patches.

Routes:
  /          server-rendered page
  /ws        WebSocket endpoint (socketPath in livedom.json)
  /healthz   health check
  /metrics   Prometheus metrics

Examples:
  livedom serve
  livedom serve --port=8080
  livedom serve --entry=dashboard.json --no-watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Serve.Port = port
			}
			if host != "" {
				cfg.Serve.Host = host
			}
			if entry != "" {
				abs, err := filepath.Abs(entry)
				if err != nil {
					return err
				}
				cfg.Entry = abs
			}
			if noWatch {
				cfg.Watch.Enabled = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var store publish.Store
			if cfg.Publish.Target != "" {
				store, err = publish.Open(cfg.Publish.Target, publish.Options{
					Region:   cfg.Publish.Region,
					Endpoint: cfg.Publish.Endpoint,
				})
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			logger := cfg.Logger(cmd.ErrOrStderr())
			server := dev.NewServer(dev.ServerOptions{
				Config: cfg,
				Logger: logger,
				Store:  store,
				OnReload: func(err error) {
					if err == nil {
						success(out, "Rendered %s", cfg.EntryPath())
					}
				},
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			info(out, "Serving on %s", cfg.URL())
			err = server.Start(ctx)
			if ctx.Err() != nil {
				info(out, "Shutting down...")
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from livedom.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from livedom.json)")
	cmd.Flags().StringVarP(&entry, "entry", "e", "", "Entry description file (default from livedom.json)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload when the entry file changes")
	return cmd
}
