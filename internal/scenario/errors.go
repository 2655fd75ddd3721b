package scenario

import (
	"errors"
	"fmt"
)

// Sentinel causes returned (wrapped) by drivers.
var (
	ErrElementNotFound = errors.New("element not found")
	ErrAmbiguous       = errors.New("selector matched more than one element")
	ErrNotInteractable = errors.New("element is not interactable")
	ErrNavigation      = errors.New("navigation failed")
)

// FailureKind classifies why a scenario stopped.
type FailureKind int

const (
	ElementNotFound FailureKind = iota + 1
	AssertionFailure
	NavigationFailure
)

func (k FailureKind) String() string {
	switch k {
	case ElementNotFound:
		return "element_not_found"
	case AssertionFailure:
		return "assertion_failure"
	case NavigationFailure:
		return "navigation_failure"
	default:
		return "unknown"
	}
}

// StepError reports the step at which a scenario run stopped.
type StepError struct {
	Index    int
	Step     Step
	Kind     FailureKind
	Expected string
	Actual   string
	Err      error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("step %d (%s): %s", e.Index+1, e.Step, e.Kind)
	if e.Kind == AssertionFailure && e.Step.Action == ActionAssertValue {
		msg += fmt.Sprintf(": expected %q, got %q", e.Expected, e.Actual)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from err, or 0 if err is not a StepError.
func KindOf(err error) FailureKind {
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// classify maps a driver error for a step to the failure taxonomy.
func classify(step Step, err error) FailureKind {
	switch {
	case errors.Is(err, ErrNavigation), step.Action == ActionNavigate:
		return NavigationFailure
	case step.Action == ActionAssertAbsent, step.Action == ActionAssertBackendAbsent:
		// the element (or item) is still there
		return AssertionFailure
	default:
		return ElementNotFound
	}
}
