package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/actionfeed/internal/config"
	"github.com/pfrederiksen/actionfeed/internal/logger"
	"github.com/pfrederiksen/actionfeed/internal/storage"
)

const (
	ExitSuccess  = 0
	ExitError    = 1
	ExitFailures = 2
)

// CodeError carries a process exit code out of a command. A nil Err means the
// command already reported what went wrong.
type CodeError struct {
	Code int
	Err  error
}

func (e *CodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *CodeError) Unwrap() error {
	return e.Err
}

// failures is returned by commands that finished but had isolated failures.
var failures = &CodeError{Code: ExitFailures}

var (
	flagConfig  string
	flagDataDir string
	flagFormat  string
	flagVerbose bool
)

// cfg is loaded before every subcommand runs.
var cfg config.Config

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actionfeed",
		Short: "Collect civic action listings into deduplicated snapshots",
		Long: `Scrape event and action listings from activism sites and a mailbox,
store every run as a CSV snapshot and merge the snapshots into one table
holding the latest version of each event.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	flags.StringVar(&flagDataDir, "data-dir", "", "Snapshot directory (overrides storage.dir)")
	flags.StringVar(&flagFormat, "format", "text", "Output format: text or json")
	flags.BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(
		newSourcesCmd(),
		newScrapeCmd(),
		newMergeCmd(),
		newPollCmd(),
	)
	return cmd
}

func setup(cmd *cobra.Command, _ []string) error {
	level := logger.LevelInfo
	if flagVerbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.New(level, cmd.ErrOrStderr()))

	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}
	flagFormat = string(format)

	loaded, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagDataDir != "" {
		loaded.Storage.Dir = flagDataDir
	}
	cfg = loaded

	logger.Debug("Configuration loaded", logger.Fields{
		"config":   flagConfig,
		"data_dir": cfg.Storage.Dir,
	})
	return nil
}

func openStore() (*storage.Store, error) {
	store, err := storage.New(cfg.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Run executes the CLI with args and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	var exit *CodeError
	if errors.As(err, &exit) {
		if exit.Err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", exit.Err)
		}
		return exit.Code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitError
}

// Execute runs the CLI against the process arguments
func Execute() int {
	return Run(os.Args[1:], os.Stdout, os.Stderr)
}
