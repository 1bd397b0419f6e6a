package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/spool/internal/config"
	"github.com/vango-dev/spool/internal/errors"
)

const starterDocument = `title: Counter
body:
  - h1: Counter
  - markdown: |
      Rendered by **spool**. Run ` + "`spool serve index.yaml`" + ` and click the button.
  - button: Increment
    click: {type: add, amount: 1, name: count}
  - output: count
    initial: 0
`

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create spool.json and a starter document",
		Long: `Create spool.json with default settings and an index.yaml
starter document in the given directory (default: current directory).

Examples:
  spool init
  spool init site`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd.OutOrStdout(), dir, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing files")

	return cmd
}

func runInit(out io.Writer, dir string, force bool) error {
	if config.Exists(dir) && !force {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail(filepath.Join(dir, config.ConfigFileName) + " already exists").
			WithSuggestion("Use --force to overwrite it")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	cfg := config.New()
	cfg.Name = filepath.Base(mustAbs(dir))
	if err := cfg.SaveTo(filepath.Join(dir, config.ConfigFileName)); err != nil {
		return err
	}

	doc := filepath.Join(dir, "index.yaml")
	if _, err := os.Stat(doc); os.IsNotExist(err) || force {
		if err := os.WriteFile(doc, []byte(starterDocument), 0o644); err != nil {
			return err
		}
	}

	success(out, "Created %s", filepath.Join(dir, config.ConfigFileName))
	info(out, "Next: spool serve %s", doc)
	return nil
}

func mustAbs(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}
