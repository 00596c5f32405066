package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/chainharness/internal/compiler"
	"github.com/roach88/chainharness/internal/contract"
)

// LoadMode controls how errors are handled during artifact loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Artifact is one compiled contract file.
type Artifact struct {
	Path    string
	Program *contract.Program
}

// LoadResult contains the results of loading artifacts.
type LoadResult struct {
	Artifacts []Artifact
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred while loading an artifact.
type LoadError struct {
	Code    string
	Message string
	Path    string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadArtifacts compiles every .cue file under path, which may be a single
// file or a directory. Each file is its own contract. Compiled programs are
// also run through compiler.Validate.
func LoadArtifacts(path string, mode LoadMode) (*LoadResult, []error) {
	files, err := findFiles(path, ".cue")
	if err != nil {
		return nil, []error{err}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
	}

	result := &LoadResult{FileCount: len(files)}
	var errs []error
	for _, file := range files {
		p, fileErrs := loadArtifact(file)
		errs = append(errs, fileErrs...)
		if len(fileErrs) > 0 {
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Artifacts = append(result.Artifacts, Artifact{Path: file, Program: p})
	}
	return result, errs
}

func loadArtifact(file string) (*contract.Program, []error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Path: file}}
	}

	p, err := compiler.Compile(file, src)
	if err != nil {
		return nil, []error{convertCompileError(err, file)}
	}

	var errs []error
	for _, verr := range compiler.Validate(p) {
		errs = append(errs, &LoadError{Code: verr.Code, Message: verr.Field + ": " + verr.Message, Path: file})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return p, nil
}

// findFiles returns files under path with one of the extensions, sorted.
// A path naming a file is returned as is.
func findFiles(path string, exts ...string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(p)
		for _, want := range exts {
			if ext == want {
				files = append(files, p)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	sort.Strings(files)
	return files, nil
}

// findScenarioFiles finds YAML scenario files, optionally filtered by a
// glob on the base name without extension.
func findScenarioFiles(path, filter string) ([]string, error) {
	files, err := findFiles(path, ".yaml", ".yml")
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return files, nil
	}

	var out []string
	for _, f := range files {
		base := filepath.Base(f)
		matched, err := filepath.Match(filter, strings.TrimSuffix(base, filepath.Ext(base)))
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			out = append(out, f)
		}
	}
	return out, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, path string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Path:    path,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: err.Error(),
		Path:    path,
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No matching files found
	ErrCodeLoadFailed  = "E004" // File read failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeScenario    = "E008" // Scenario file invalid
	ErrCodeLedger      = "E009" // Ledger database error
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "name":
		return compiler.ErrProgramNameEmpty
	case field == "functions":
		return compiler.ErrProgramNoFunctions
	case field == "kind" || strings.HasSuffix(field, ".kind"):
		return compiler.ErrInvalidKind
	case field == "type":
		return compiler.ErrInvalidArgType
	case field == "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}
