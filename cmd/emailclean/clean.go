package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/emailclean/internal/core"
	"github.com/JonMunkholm/emailclean/internal/csv"
	"github.com/JonMunkholm/emailclean/internal/history"
	"github.com/JonMunkholm/emailclean/internal/pipeline"
	"github.com/JonMunkholm/emailclean/internal/report"
)

type cleanOptions struct {
	outDir       string
	rulesFile    string
	encoding     string
	nameRule     string
	reportGroups bool
	verbose      bool
	sample       int
	lockTimeout  time.Duration
}

func newCleanCmd(a *app) *cobra.Command {
	var opts cleanOptions

	cmd := &cobra.Command{
		Use:   "clean <input.csv>",
		Short: "Clean a contact file",
		Long: `Clean a contact file and write kept.csv and removed.csv.

kept.csv holds the surviving records with their original columns.
removed.csv lists the addresses excluded by pattern, one per row. The
output directory is locked while the files are written.

Exit codes:
  0 - Success
  1 - Invalid settings, rules or a file without an EMAIL column
  2 - The input file cannot be read
  3 - Runtime errors

Examples:
  emailclean clean contactos.csv
  emailclean clean --out-dir limpio --encoding utf8 contactos.csv
  emailclean clean --rules reglas.yaml --ma-rule token contactos.csv`,
		Args: args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			return a.runClean(cmd, argv[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.outDir, "out-dir", "o", "", "Directory for kept.csv and removed.csv (default OUTPUT_DIR)")
	f.StringVar(&opts.rulesFile, "rules", "", "YAML rule catalogue replacing the built-in one (default RULES_FILE)")
	f.StringVar(&opts.encoding, "encoding", "", "Input encoding: latin1, cp1252 or utf8 (default INPUT_ENCODING)")
	f.StringVar(&opts.nameRule, "ma-rule", "", "MA expansion: substring, value, token or off (default NAME_MA_RULE)")
	f.BoolVar(&opts.reportGroups, "report-groups", false, "Log exclusion patterns that contain capturing groups")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Print each stage as it finishes")
	f.IntVar(&opts.sample, "sample", report.DefaultSampleSize, "How many removed addresses the report lists (0 hides them)")
	f.DurationVar(&opts.lockTimeout, "lock-timeout", core.DefaultLockTimeout, "How long to wait for the output directory lock")
	return cmd
}

func (a *app) runClean(cmd *cobra.Command, input string, opts cleanOptions) error {
	cfg := *a.cfg
	if opts.rulesFile != "" {
		cfg.Rules.File = opts.rulesFile
	}
	if opts.encoding != "" {
		cfg.Rules.Encoding = opts.encoding
	}
	if opts.nameRule != "" {
		cfg.Rules.NameRule = opts.nameRule
	}
	if opts.reportGroups {
		cfg.Rules.ReportGroups = true
	}
	outDir := cfg.Rules.OutputDir
	if opts.outDir != "" {
		outDir = opts.outDir
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := history.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, cfg.Store.PoolConfig())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	svc, err := core.NewService(store, &cfg)
	if err != nil {
		return err
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	unlock, err := core.LockDir(ctx, outDir, opts.lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	printer := report.NewPrinter(a.stdout, a.noColor)
	printer.SampleSize = opts.sample

	var sink pipeline.Sink
	if opts.verbose && !a.quiet {
		sink = printer
	}

	res, err := svc.Clean(ctx, core.CleanRequest{
		FileName: filepath.Base(input),
		Source:   core.SourceCLI,
		Input:    f,
		Sink:     sink,
	})
	if err != nil {
		return err
	}

	out, err := csv.WriteOutputs(outDir, res.Kept, res.Removed)
	if err != nil {
		return fmt.Errorf("write outputs: %w", err)
	}

	if !a.quiet {
		if opts.verbose {
			fmt.Fprintln(a.stdout)
		}
		printer.Summary(res.PipelineResult())
		if res.Stats.Skipped > 0 {
			fmt.Fprintf(a.stdout, "\n%d malformed lines skipped (lines %v)\n", res.Stats.Skipped, res.Stats.SkippedLines)
		}
		printer.Files(out.KeptPath, out.RemovedPath)
	}
	return nil
}

