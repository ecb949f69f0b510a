package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/livedom/internal/config"
	"github.com/vango-dev/livedom/internal/errors"
)

const sampleEntry = `{"tag": "main", "attrs": {"id": "app"}, "children": [
  {"tag": "h1", "children": ["Hello, livedom"]},
  {"tag": "ul", "attrs": {"class": ["items"]}, "children": [
    {"tag": "li", "key": "a", "children": ["Edit app.json"]},
    {"tag": "li", "key": "b", "children": ["Watch the patches arrive"]}
  ]}
]}
`

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create livedom.json and a sample description",
		Long: `Write a default livedom.json and a sample app.json into dir
(the working directory by default).

Examples:
  livedom init
  livedom init ./demo
  livedom init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}

			cfgPath := filepath.Join(dir, config.ConfigFileName)
			if config.Exists(dir) && !force {
				return errors.Newf(errors.CategoryCLI, "%s already exists", cfgPath).
					WithSuggestion("Use --force to overwrite it")
			}
			cfg := config.New()
			if err := cfg.SaveTo(cfgPath); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			success(out, "Wrote %s", cfgPath)
			entry := cfg.EntryPath()
			if _, err := os.Stat(entry); os.IsNotExist(err) || force {
				if err := os.WriteFile(entry, []byte(sampleEntry), 0644); err != nil {
					return err
				}
				success(out, "Wrote %s", entry)
			}
			info(out, "Run 'livedom serve' to start the live server")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing files")
	return cmd
}
