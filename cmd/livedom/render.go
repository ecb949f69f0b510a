package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/livedom/internal/dev"
	"github.com/vango-dev/livedom/internal/errors"
	"github.com/vango-dev/livedom/internal/publish"
	"github.com/vango-dev/livedom/pkg/dom"
	"github.com/vango-dev/livedom/pkg/dom/memdom"
	"github.com/vango-dev/livedom/pkg/mount"
	"github.com/vango-dev/livedom/pkg/reconcile"
	"github.com/vango-dev/livedom/pkg/remote"
	"github.com/vango-dev/livedom/pkg/vdom"
)

func renderCmd() *cobra.Command {
	var (
		stats  bool
		target string
	)

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a description to HTML",
		Long: `Render a JSON description into an empty document and print the
resulting body markup. Use - to read from standard input.

Examples:
  livedom render app.json
  cat app.json | livedom render -
  livedom render app.json --stats
  livedom render app.json --publish s3://bucket/site`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := readDescription(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			doc := memdom.New()
			r := newRenderer(doc)
			if _, err := r.Mount(cmd.Context(), doc.Body(), nodes); err != nil {
				return err
			}
			body := memdom.InnerHTML(doc.Body())
			fmt.Fprintln(cmd.OutOrStdout(), body)
			if stats {
				printStats(cmd.ErrOrStderr(), r.Engine().Stats())
			}
			if target == "" {
				return nil
			}
			store, err := publish.Open(target, publish.Options{})
			if err != nil {
				return err
			}
			var page bytes.Buffer
			dev.WritePage(&page, "", body, nil)
			if err := store.Put(cmd.Context(), dev.PageKey, page.Bytes(), "text/html; charset=utf-8"); err != nil {
				return err
			}
			success(cmd.ErrOrStderr(), "Published to %s", store)
			return nil
		},
	}

	cmd.Flags().BoolVar(&stats, "stats", false, "Print reconciliation counters to stderr")
	cmd.Flags().StringVar(&target, "publish", "", "Also write the page to a target (s3://bucket/prefix or a directory)")
	return cmd
}

func diffCmd() *cobra.Command {
	var stats bool

	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Print the patches that turn one description into another",
		Long: `Render the old description, then reconcile the new one against it
and print the patches a connected client would receive.

Examples:
  livedom diff v1.json v2.json
  livedom diff v1.json v2.json --stats`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldNodes, err := readDescription(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			newNodes, err := readDescription(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}

			p := remote.NewProvider(memdom.New())
			r := newRenderer(p)
			ctx := cmd.Context()
			if _, err := r.Mount(ctx, p.Document().Body(), oldNodes); err != nil {
				return err
			}
			p.Flush()
			before := r.Engine().Stats()

			if _, err := r.Mount(ctx, p.Document().Body(), newNodes); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			pf := p.Flush()
			if pf == nil {
				fmt.Fprintln(out, "no changes")
			} else {
				for _, patch := range pf.Patches {
					fmt.Fprintln(out, patch.String())
				}
			}
			if stats {
				printStats(cmd.ErrOrStderr(), r.Engine().Stats().Sub(before))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stats, "stats", false, "Print reconciliation counters for the second pass to stderr")
	return cmd
}

// newRenderer returns a renderer that only redraws on explicit calls.
func newRenderer(doc dom.Provider) *mount.Renderer {
	return mount.New(doc,
		mount.WithScheduler(mount.NewManualScheduler()),
		mount.WithRegistry(mount.NewRegistry()),
	)
}

// readDescription reads and parses a description file, or standard input
// when path is "-".
func readDescription(stdin io.Reader, path string) ([]*vdom.VNode, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.New("E120").WithPath(path).Wrap(err)
	}
	nodes, err := vdom.ParseJSON(data)
	if err != nil {
		e := errors.FromError(err, "E120")
		if e.Code == "E120" {
			e.WithPath(path)
		}
		return nil, e
	}
	return nodes, nil
}

func printStats(w io.Writer, s reconcile.Stats) {
	fmt.Fprintf(w, "created=%d updated=%d replaced=%d destroyed=%d moved=%d deferred=%d settled=%d mutations=%d\n",
		s.Created, s.Updated, s.Replaced, s.Destroyed, s.Moved, s.Deferred, s.Settled, s.Mutations)
}
