package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/roach88/chainharness/internal/harness"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Files    int       `json:"files"`
	Problems []Problem `json:"problems,omitempty"`
}

// Problem is one thing wrong with one file.
type Problem struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate artifacts and scenarios without running them",
		Long: `Validate CUE contract artifacts and YAML scenario files.

Artifacts are compiled and checked. Scenarios are parsed and checked for
structural problems, with every problem in a file reported at once.
Nothing is provisioned or executed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	files, err := findFiles(path, ".cue", ".yaml", ".yml")
	if err != nil {
		return outputLoadError(formatter, err)
	}
	if len(files) == 0 {
		return outputValidateError(formatter, ErrCodeNoFiles, fmt.Sprintf("no artifacts or scenarios found in %s", path))
	}

	formatter.VerboseLog("Found %d file(s) in %s", len(files), path)

	problems := ValidateFiles(files)
	if len(problems) > 0 {
		return outputValidationProblems(formatter, len(files), problems)
	}
	return outputValidateSuccess(formatter, len(files))
}

// ValidateFiles checks each artifact and scenario file and returns every
// problem found.
func ValidateFiles(files []string) []Problem {
	var problems []Problem
	for _, file := range files {
		if filepath.Ext(file) == ".cue" {
			problems = append(problems, validateArtifact(file)...)
			continue
		}
		problems = append(problems, validateScenarioFile(file)...)
	}
	return problems
}

func validateArtifact(file string) []Problem {
	_, errs := loadArtifact(file)
	problems := make([]Problem, 0, len(errs))
	for _, err := range errs {
		p := Problem{File: file, Code: ErrCodeGeneric, Message: err.Error()}
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			p.Code = loadErr.Code
			p.Message = loadErr.Message
			if loadErr.Pos.IsValid() {
				p.Line = loadErr.Pos.Line()
			}
		}
		problems = append(problems, p)
	}
	return problems
}

func validateScenarioFile(file string) []Problem {
	_, err := harness.LoadScenario(file)
	if err == nil {
		return nil
	}

	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return []Problem{{File: file, Code: ErrCodeScenario, Message: err.Error()}}
	}
	problems := make([]Problem, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		problems = append(problems, Problem{File: file, Code: ErrCodeScenario, Message: e.Error()})
	}
	return problems
}

// outputLoadError reports a path that could not be scanned.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return outputValidateError(formatter, loadErr.Code, loadErr.Message)
	}
	return outputValidateError(formatter, ErrCodeGeneric, err.Error())
}

func outputValidateSuccess(formatter *OutputFormatter, files int) error {
	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Files: files})
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d file(s) valid\n", files)
	return nil
}

// outputValidateError outputs a single command error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func outputValidationProblems(formatter *OutputFormatter, files int, problems []Problem) error {
	if formatter.JSON() {
		err := formatter.Respond(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Files: files, Problems: problems},
			Error: &CLIError{
				Code:    problems[0].Code,
				Message: problems[0].Message,
			},
		})
		if err != nil {
			return err
		}
		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(problems)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, p := range problems {
		if p.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", p.File, p.Line)
		} else {
			fmt.Fprintln(formatter.Writer, p.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", p.Code, p.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(problems)))
}
