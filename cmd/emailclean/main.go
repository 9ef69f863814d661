// Package main provides the CLI entry point for emailclean.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/emailclean/internal/config"
	"github.com/JonMunkholm/emailclean/internal/core"
	"github.com/JonMunkholm/emailclean/internal/logging"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitInputError      = 2
	ExitRuntimeError    = 3
)

// Build information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}

	code := exitCode(err)
	if msg := core.MapError(err); msg.Code != "ERR000" {
		fmt.Fprintf(stderr, "Error: %s (Code: %s)\n  %s\n  %v\n", msg.Message, msg.Code, msg.Action, err)
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return code
}

// app holds what every command shares: output streams, flags and the
// loaded configuration.
type app struct {
	stdout io.Writer
	stderr io.Writer

	envFile  string
	logLevel string
	quiet    bool
	noColor  bool

	cfg *config.Config
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "emailclean",
		Short: "Clean contact files before an email campaign",
		Long: `emailclean removes unusable records from contact CSV files.

Each record passes through six stages: records without an address are
dropped, addresses are lowercased and stripped of whitespace, addresses
matching an exclusion pattern are removed, addresses repeated more than
four times are removed, names are normalized and records flagged in
FLG_REPEP are dropped.

Settings come from the environment (and a .env file when present);
flags override them.

Examples:
  # Clean a file into ./output
  emailclean clean contactos.csv

  # Serve the upload page and API
  emailclean serve --port 9090

  # Show the exclusion patterns
  emailclean rules`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "Load settings from this file, overriding the environment")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Suppress the report; only errors are printed")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newCleanCmd(a),
		newServeCmd(a),
		newRulesCmd(a),
		newHistoryCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup loads the environment and configuration and configures logging.
func (a *app) setup(*cobra.Command, []string) error {
	if a.envFile != "" {
		if err := godotenv.Overload(a.envFile); err != nil {
			return usageError{fmt.Errorf("load env file: %w", err)}
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return usageError{fmt.Errorf("load .env: %w", err)}
	}

	cfg, err := config.Load()
	if err != nil {
		return usageError{err}
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return usageError{err}
		}
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if a.quiet && a.logLevel == "" {
		level = "error"
	}
	logging.SetupWriter(a.stderr, level, cfg.Logging.Format)
	return nil
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version, commit hash, and build date information.",
		Args:  args(cobra.NoArgs),
		// Version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(a.stdout, "emailclean %s\n", version)
			fmt.Fprintf(a.stdout, "  commit: %s\n", commit)
			fmt.Fprintf(a.stdout, "  built:  %s\n", buildDate)
		},
	}
}

// usageError marks errors caused by invalid settings or arguments.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// args wraps a cobra argument validator so its errors count as usage errors.
func args(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := validate(cmd, a); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	var ue usageError
	code := core.MapError(err).Code

	switch {
	case errors.As(err, &ue), strings.HasPrefix(code, "VAL"):
		return ExitValidationError
	case strings.HasPrefix(code, "FILE"), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return ExitInputError
	default:
		return ExitRuntimeError
	}
}
