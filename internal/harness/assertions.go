package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Trace the assertion was evaluated against
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] pass %d: %s\n", event.Seq, event.Pass, event)
	}

	return buf.String()
}

// assertOpCount checks that an op occurs exactly Count times.
func assertOpCount(trace []TraceEvent, assertion Assertion) error {
	count := countOps(trace, assertion.Op)
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertOpCount,
			Expected: fmt.Sprintf("%d occurrences of %s%s", assertion.Count, assertion.Op, passSuffix(assertion.Pass)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalOrder checks the artifact key order after the last pass.
func assertFinalOrder(result *Result, assertion Assertion) error {
	if slices.Equal(result.Order, assertion.Keys) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalOrder,
		Expected: fmt.Sprintf("%q", assertion.Keys),
		Actual:   fmt.Sprintf("%q", result.Order),
		Trace:    result.Trace,
	}
}

// assertNoOps checks that none of the listed ops occur.
func assertNoOps(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if slices.Contains(assertion.Ops, event.Op) {
			return &AssertionError{
				Type:     AssertNoOps,
				Expected: fmt.Sprintf("no %s ops%s", strings.Join(assertion.Ops, "/"), passSuffix(assertion.Pass)),
				Actual:   fmt.Sprintf("found %q at seq %d", event.String(), event.Seq),
				Trace:    trace,
			}
		}
	}
	return nil
}

func countOps(trace []TraceEvent, op string) int {
	n := 0
	for _, event := range trace {
		if event.Op == op {
			n++
		}
	}
	return n
}

func passSuffix(pass int) string {
	if pass == 0 {
		return ""
	}
	return fmt.Sprintf(" in pass %d", pass)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertOpCount:
			err = assertOpCount(result.PassTrace(assertion.Pass), assertion)
		case AssertFinalOrder:
			err = assertFinalOrder(result, assertion)
		case AssertNoOps:
			err = assertNoOps(result.PassTrace(assertion.Pass), assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
