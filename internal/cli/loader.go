package cli

import (
	"fmt"
	"os"

	"github.com/roach88/revtrack/internal/harness"
)

// LoadMode controls how errors are handled during scenario loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadedScenario pairs a parsed scenario with the file it came from.
type LoadedScenario struct {
	Path     string
	Scenario *harness.Scenario
}

// LoadResult contains the scenarios loaded from a directory or file.
type LoadResult struct {
	Scenarios []LoadedScenario
	FileCount int // Number of scenario files found
}

// LoadError represents an error that occurred during scenario loading.
type LoadError struct {
	Code    string
	Message string
	Path    string // Scenario file, if the error belongs to one
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadScenarios loads every scenario file under path, which may also name a
// single scenario file. A non-empty filter is a glob over file base names.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
//
// A nil result means nothing could be scanned; the first error says why.
func LoadScenarios(path, filter string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("scenarios path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing scenarios path: %v", err)}}
	}

	var files []string
	if info.IsDir() {
		files, err = harness.FindScenarioFiles(path, filter)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
	} else {
		if !harness.IsScenarioFile(path) {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("not a scenario file (.yaml, .yml, .cue): %s", path)}}
		}
		files = []string{path}
	}

	result := &LoadResult{
		Scenarios: make([]LoadedScenario, 0, len(files)),
		FileCount: len(files),
	}

	var errs []error
	names := make(map[string]string)
	for _, file := range files {
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Path: file})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		if prev, ok := names[scenario.Name]; ok {
			errs = append(errs, &LoadError{
				Code:    ErrCodeDuplicateName,
				Message: fmt.Sprintf("scenario name %q already used by %s", scenario.Name, prev),
				Path:    file,
			})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		names[scenario.Name] = file

		result.Scenarios = append(result.Scenarios, LoadedScenario{Path: file, Scenario: scenario})
	}

	return result, errs
}

// Error codes for CLI output.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error
	ErrCodeNoFiles       = "E003" // No scenario files found
	ErrCodeLoadFailed    = "E004" // Scenario parse or validation failed
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeDuplicateName = "E006" // Two scenarios share a name
	ErrCodeWriteFailed   = "E007" // File write error
	ErrCodeStoreFailed   = "E008" // Database error
	ErrCodeRunFailed     = "E009" // Scenario could not be executed

	ErrCodeScenarioFailed = "E_SCENARIO_FAILED" // run: scenario ran but failed
	ErrCodeTestFailed     = "E_TEST_FAILED"     // test: one or more scenarios failed
)
