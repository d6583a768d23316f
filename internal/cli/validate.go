package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ValidationError is one problem found in a scenario file.
type ValidationError struct {
	File    string `json:"file,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Scenarios int               `json:"scenarios"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// RenderText prints the verdict, then each problem under its file.
func (r ValidationResult) RenderText(w io.Writer) error {
	if r.Valid {
		_, err := fmt.Fprintf(w, "✓ All %d scenario(s) valid\n", r.Scenarios)
		return err
	}

	fmt.Fprint(w, "✗ Validation failed\n\n")
	for _, e := range r.Errors {
		if e.File != "" {
			fmt.Fprintln(w, e.File)
		}
		fmt.Fprintf(w, "  %s: %s\n\n", e.Code, e.Message)
	}
	return nil
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenarios-path>",
		Short: "Validate scenario files without running them",
		Long: `Validate YAML and CUE scenario files without running them.

Checks syntax, required fields, key paths, op names in expectations and
assertions, and pass references. Every file is checked; all problems are
reported together.`,
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

	loadResult, loadErrors := LoadScenarios(path, "", LoadModeCollectAll)

	// Nothing scanned: bad path or unreadable directory
	if loadResult == nil {
		code, message := loadErrorParts(loadErrors[0])
		return outputValidateError(formatter, code, message)
	}

	formatter.VerboseLog("Found %d scenario file(s) in %s", loadResult.FileCount, path)

	if loadResult.FileCount == 0 {
		return outputValidateError(formatter, ErrCodeNoFiles, fmt.Sprintf("no scenario files found in %s", path))
	}

	for _, loaded := range loadResult.Scenarios {
		formatter.VerboseLog("Valid: %s (%s)", loaded.Scenario.Name, loaded.Path)
	}

	if len(loadErrors) > 0 {
		errs := make([]ValidationError, 0, len(loadErrors))
		for _, err := range loadErrors {
			errs = append(errs, toValidationError(err))
		}
		return outputValidationErrors(formatter, loadResult.FileCount, errs)
	}

	return formatter.Success(ValidationResult{Valid: true, Scenarios: loadResult.FileCount})
}

func toValidationError(err error) ValidationError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return ValidationError{File: loadErr.Path, Code: loadErr.Code, Message: loadErr.Message}
	}
	return ValidationError{Code: ErrCodeGeneric, Message: err.Error()}
}

// loadErrorParts splits an error into its CLI code and message.
func loadErrorParts(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors reports every invalid scenario. The envelope's
// error is the first problem found.
func outputValidationErrors(formatter *OutputFormatter, count int, errs []ValidationError) error {
	response := CLIResponse{
		Status: "error",
		Data:   ValidationResult{Scenarios: count, Errors: errs},
		Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
	}
	if err := formatter.Respond(response); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
