package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/livedom/pkg/dom/memdom"
	"github.com/vango-dev/livedom/pkg/remote"
)

func attachCmd() *cobra.Command {
	var (
		once    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "attach <url>",
		Short: "Attach to a live document and print its body",
		Long: `Connect to a livedom server, apply the snapshot and every patch
batch to a local replica, and print the body markup after each batch.

Examples:
  livedom attach ws://localhost:3000/ws
  livedom attach http://localhost:3000/ws --once`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dialCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				dialCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			doc := memdom.New()
			doc.SetLogging(false)
			c, err := remote.Dial(dialCtx, socketURL(args[0]), doc, nil)
			if err != nil {
				return err
			}
			defer c.Close()

			out := cmd.OutOrStdout()
			for {
				select {
				case seq := <-c.Updates():
					var body string
					c.View(func(r *remote.Replica) { body = memdom.InnerHTML(r.Document().Body()) })
					if once {
						fmt.Fprintln(out, body)
						return nil
					}
					fmt.Fprintf(out, "-- seq %d\n%s\n", seq, body)
				case <-c.Done():
					if err := c.Err(); err != nil {
						return err
					}
					info(out, "Disconnected: %s", c.Reason())
					return nil
				case <-ctx.Done():
					return nil
				}
			}
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Print the first snapshot and exit")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Connection timeout")
	return cmd
}

// socketURL maps http(s) URLs to their ws(s) equivalents.
func socketURL(raw string) string {
	switch {
	case strings.HasPrefix(raw, "http://"):
		return "ws://" + strings.TrimPrefix(raw, "http://")
	case strings.HasPrefix(raw, "https://"):
		return "wss://" + strings.TrimPrefix(raw, "https://")
	}
	return raw
}
