package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/chainharness/internal/harness"
	"github.com/roach88/chainharness/internal/ir"
	"github.com/roach88/chainharness/internal/sandbox"
	"github.com/roach88/chainharness/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Scenario string `json:"scenario"`
	*harness.Result
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario and print its trace",
		Long: `Provision a fresh sandbox network, run one scenario against it and print
the trace of every step.

By default the ledger lives in memory and is discarded. With --db the
ledger is written to a SQLite file that the accounts and trace commands
can inspect afterwards; root accounts then get unique names so one file
can hold many runs.

Example:
  chainharness run ./scenarios/token_mint.yaml
  chainharness run --db ./ledger.db ./scenarios/token_mint.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to a SQLite ledger to keep (default: in-memory)")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	s, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	runOpts := []harness.Option{harness.WithLogger(logger)}
	if opts.Database != "" {
		logger.Info("opening ledger", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open ledger", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing ledger", "error", closeErr)
			}
		}()
		// A kept ledger holds many runs, so root names must not repeat.
		runOpts = append(runOpts, harness.WithStore(st), harness.WithNameGenerator(sandbox.UUIDv7Generator{}))
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	logger.Info("running scenario", "name", s.Name, "steps", len(s.Steps))
	result, err := harness.Run(ctx, s, runOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "scenario could not run", err)
	}

	if formatter.JSON() {
		status := "ok"
		var cliErr *CLIError
		if !result.Pass {
			status = "error"
			cliErr = &CLIError{Code: ErrCodeGeneric, Message: strings.Join(result.Errors, "; ")}
		}
		if err := formatter.Respond(CLIResponse{
			Status: status,
			Data:   RunResult{Scenario: s.Name, Result: result},
			Error:  cliErr,
		}); err != nil {
			return err
		}
	} else {
		printResult(formatter.Writer, s.Name, result)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", s.Name))
	}
	return nil
}

// signalContext derives a context from the command that is cancelled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// printResult writes a scenario result as text: one line per step, then
// the aborting error and any failures.
func printResult(w io.Writer, name string, result *harness.Result) {
	if result.Pass {
		fmt.Fprintf(w, "✓ %s\n", name)
	} else {
		fmt.Fprintf(w, "✗ %s\n", name)
	}
	for _, ev := range result.Trace {
		fmt.Fprintf(w, "  %s\n", formatEvent(ev))
	}
	if result.Aborted != "" {
		fmt.Fprintf(w, "  aborted: %s\n", result.Aborted)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  - %s\n", e)
	}
}

func formatEvent(ev harness.TraceEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", ev.Key, ev.Kind)
	switch ev.Kind {
	case "view_account":
		fmt.Fprintf(&b, " %s: %s", ev.Account, ev.Balance)
		return b.String()
	case "call":
		fmt.Fprintf(&b, " %s -> %s.%s", ev.Account, ev.Contract, ev.Function)
	default:
		fmt.Fprintf(&b, " %s.%s", ev.Contract, ev.Function)
	}
	if ev.Deposit != "" {
		fmt.Fprintf(&b, " (deposit %s)", ev.Deposit)
	}
	if ev.Success != nil && !*ev.Success {
		fmt.Fprintf(&b, ": failed: %s", ev.Failure)
		return b.String()
	}
	if ev.Result != nil {
		if v, err := ir.FromAny(ev.Result); err == nil {
			fmt.Fprintf(&b, " = %s", ir.Render(v))
		}
	}
	return b.String()
}
