package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds a summary of every compiled artifact.
type CompilationResult struct {
	Contracts []ContractSummary `json:"contracts"`
}

// ContractSummary describes one compiled artifact.
type ContractSummary struct {
	Path      string            `json:"path"`
	Name      string            `json:"name"`
	Storage   []string          `json:"storage"`
	Functions []FunctionSummary `json:"functions"`
}

// FunctionSummary describes one function of an artifact.
type FunctionSummary struct {
	Name       string            `json:"name"`
	Kind       string            `json:"kind"`
	Args       map[string]string `json:"args,omitempty"`
	MinDeposit string            `json:"min_deposit,omitempty"`
	OwnerOnly  bool              `json:"owner_only,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <artifact.cue|dir>",
		Short: "Compile CUE contract artifacts",
		Long: `Compile CUE contract artifacts and print a summary of each.

Every .cue file is one contract. Compiled programs are checked for
mistakes the compiler accepts, such as views that write storage.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the JSON summary to a file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadArtifacts(path, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, path)
	for _, a := range loadResult.Artifacts {
		formatter.VerboseLog("Compiled %s: %s", a.Path, a.Program.Name)
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := &CompilationResult{Contracts: make([]ContractSummary, 0, len(loadResult.Artifacts))}
	for _, a := range loadResult.Artifacts {
		result.Contracts = append(result.Contracts, summarize(a))
	}

	if opts.Output != "" {
		if err := writeSummaryToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func summarize(a Artifact) ContractSummary {
	s := ContractSummary{
		Path:    a.Path,
		Name:    a.Program.Name,
		Storage: a.Program.Storage.SortedKeys(),
	}
	for _, fn := range a.Program.Functions() {
		fs := FunctionSummary{
			Name:      fn.Name,
			Kind:      string(fn.Kind),
			OwnerOnly: fn.OwnerOnly,
		}
		if len(fn.Params) > 0 {
			fs.Args = make(map[string]string, len(fn.Params))
			for _, p := range fn.Params {
				fs.Args[p.Name] = string(p.Type)
			}
		}
		if !fn.MinDeposit.IsZero() {
			fs.MinDeposit = fn.MinDeposit.HumanString()
		}
		s.Functions = append(s.Functions, fs)
	}
	return s
}

func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d contract(s)\n\n", len(result.Contracts))
	for _, c := range result.Contracts {
		fmt.Fprintf(formatter.Writer, "%s (%s):\n", c.Name, c.Path)
		for _, fn := range c.Functions {
			line := fmt.Sprintf("  %s %s", fn.Kind, fn.Name)
			if fn.MinDeposit != "" {
				line += fmt.Sprintf(", min deposit %s", fn.MinDeposit)
			}
			if fn.OwnerOnly {
				line += ", owner only"
			}
			fmt.Fprintln(formatter.Writer, line)
		}
		fmt.Fprintln(formatter.Writer)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote summary to %s\n", outputFile)
	}
	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.JSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			cliErrors[i] = toCLIError(err)
		}
		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", err)
	}
	fmt.Fprintln(formatter.Writer)

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// toCLIError extracts error code and message from an error.
func toCLIError(err error) CLIError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		e := CLIError{Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			e.Details = map[string]any{
				"file":   loadErr.Pos.Filename(),
				"line":   loadErr.Pos.Line(),
				"column": loadErr.Pos.Column(),
			}
		} else if loadErr.Path != "" {
			e.Details = map[string]any{"file": loadErr.Path}
		}
		return e
	}
	return CLIError{Code: ErrCodeGeneric, Message: err.Error()}
}

func writeSummaryToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
