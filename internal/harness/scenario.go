package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/revtrack/internal/iterable"
	"github.com/roach88/revtrack/internal/reconcile"
)

// Scenario defines a synchronization scenario.
// A scenario feeds a sequence of lists through one synchronizer and checks
// the delegate callbacks each pass produces.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Key is the key strategy: @index, @key, @identity or a dotted property
	// path. Empty means @identity.
	Key string `yaml:"key,omitempty" json:"key,omitempty"`

	// Passes are synchronized in order against the same artifacts.
	Passes []Pass `yaml:"passes" json:"passes"`

	// Assertions validate the whole trace once every pass has run.
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// Pass is one list state and what synchronizing to it should produce.
type Pass struct {
	// Items replaces the list before the pass. An empty list is valid.
	Items []any `yaml:"items" json:"items"`

	// FailOn makes the delegate return an error on the first callback whose
	// op line starts with it, e.g. "insert b" or "delete".
	FailOn string `yaml:"fail_on,omitempty" json:"fail_on,omitempty"`

	// Expect is checked after the pass. If nil, nothing is checked.
	Expect *Expect `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// Expect describes the expected outcome of one pass.
type Expect struct {
	// Ops is the exact op sequence, without the final done, written as op
	// lines: "retain a", "append b", "insert c before a", "move a before END",
	// "delete d".
	Ops []string `yaml:"ops,omitempty" json:"ops,omitempty"`

	// Counts maps op names to their number of occurrences in the pass.
	Counts map[string]int `yaml:"counts,omitempty" json:"counts,omitempty"`

	// Order is the artifact key order after the pass.
	Order []string `yaml:"order,omitempty" json:"order,omitempty"`

	// Error is a substring of the error the pass must fail with.
	Error string `yaml:"error,omitempty" json:"error,omitempty"`
}

// Assertion validates the trace of a whole run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "op_count": Check an op occurs exactly Count times
	// - "final_order": Check the artifact key order after the last pass
	// - "no_ops": Check none of Ops occur
	Type string `yaml:"type" json:"type"`

	// Op is the op name (used by op_count).
	Op string `yaml:"op,omitempty" json:"op,omitempty"`

	// Count is the expected number of occurrences (used by op_count).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Pass restricts op_count and no_ops to one pass (1-based). Zero means
	// every pass.
	Pass int `yaml:"pass,omitempty" json:"pass,omitempty"`

	// Keys is the expected final key order (used by final_order).
	Keys []string `yaml:"keys,omitempty" json:"keys,omitempty"`

	// Ops lists forbidden op names (used by no_ops).
	Ops []string `yaml:"ops,omitempty" json:"ops,omitempty"`
}

// Assertion type constants.
const (
	AssertOpCount    = "op_count"
	AssertFinalOrder = "final_order"
	AssertNoOps      = "no_ops"
)

// Scenario file extensions, in lookup order.
var scenarioExts = []string{".yaml", ".yml", ".cue"}

// IsScenarioFile reports whether path has a scenario file extension.
func IsScenarioFile(path string) bool {
	return slices.Contains(scenarioExts, filepath.Ext(path))
}

// LoadScenario reads and parses a scenario file.
// YAML files (.yaml, .yml) are decoded strictly: unknown fields are errors.
// CUE files (.cue) must evaluate to a concrete value of the same shape.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		scenario, err = parseYAML(data)
	case ".cue":
		scenario, err = parseCUE(data, path)
	default:
		return nil, fmt.Errorf("unsupported scenario file extension: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	for i := range scenario.Passes {
		scenario.Passes[i].Items = normalizeItems(scenario.Passes[i].Items)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// FindScenarioFiles returns the scenario files under dir, sorted by path.
// A non-empty filter is matched against each file's base name without
// extension.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsScenarioFile(path) {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}

func parseYAML(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

func parseCUE(data []byte, path string) (*Scenario, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE scenario is not concrete: %w", err)
	}

	var scenario Scenario
	if err := value.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}
	return &scenario, nil
}

// normalizeItems maps decoder-specific integer types to int so YAML and CUE
// scenarios produce identical keys.
func normalizeItems(items []any) []any {
	if items == nil {
		return []any{}
	}
	for i, v := range items {
		items[i] = normalizeValue(v)
	}
	return items
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case int64:
		return int(val)
	case uint64:
		return int(val)
	case []any:
		for i, e := range val {
			val[i] = normalizeValue(e)
		}
		return val
	case map[string]any:
		for k, e := range val {
			val[k] = normalizeValue(e)
		}
		return val
	default:
		return v
	}
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Passes) == 0 {
		return fmt.Errorf("passes list is required and must be non-empty")
	}

	if _, err := iterable.KeyFor(s.Key, nil); err != nil {
		return fmt.Errorf("key: %w", err)
	}

	for i, pass := range s.Passes {
		if pass.Expect == nil {
			continue
		}
		for op := range pass.Expect.Counts {
			if !isOp(op) {
				return fmt.Errorf("passes[%d].expect.counts: unknown op %q", i, op)
			}
		}
		for j, line := range pass.Expect.Ops {
			if !isOp(opOf(line)) {
				return fmt.Errorf("passes[%d].expect.ops[%d]: unknown op in %q", i, j, line)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], len(s.Passes)); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, passes int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Pass < 0 || a.Pass > passes {
		return fmt.Errorf("assertions[%d]: pass %d out of range 1..%d", index, a.Pass, passes)
	}

	switch a.Type {
	case AssertOpCount:
		if !isOp(a.Op) {
			return fmt.Errorf("assertions[%d]: op_count needs a known op, got %q", index, a.Op)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for op_count", index)
		}
	case AssertFinalOrder:
		if a.Keys == nil {
			return fmt.Errorf("assertions[%d]: keys list is required for final_order", index)
		}
	case AssertNoOps:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for no_ops", index)
		}
		for _, op := range a.Ops {
			if !isOp(op) {
				return fmt.Errorf("assertions[%d]: unknown op %q", index, op)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// opOf returns the op name of an op line.
func opOf(line string) string {
	op, _, _ := strings.Cut(strings.TrimSpace(line), " ")
	return op
}

func isOp(name string) bool {
	return slices.Contains(reconcile.Ops, reconcile.Op(name))
}
