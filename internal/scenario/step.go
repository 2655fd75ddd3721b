package scenario

import "fmt"

// Action is the kind of work a Step performs.
type Action int

const (
	ActionNavigate Action = iota
	ActionType
	ActionAssertValue
	ActionSubmit
	ActionClick
	ActionAssertPresent
	ActionAssertAbsent
	ActionAssertBackendAbsent
)

var actionNames = map[Action]string{
	ActionNavigate:            "navigate",
	ActionType:                "type",
	ActionAssertValue:         "assert_value",
	ActionSubmit:              "submit",
	ActionClick:               "click",
	ActionAssertPresent:       "assert_present",
	ActionAssertAbsent:        "assert_absent",
	ActionAssertBackendAbsent: "assert_backend_absent",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Step is one action or assertion of a scenario.
type Step struct {
	Action   Action
	Selector string
	URL      string
	// Text is the typed text for ActionType and the expected value for ActionAssertValue.
	Text string
	// Task is the to-do item the step belongs to, empty for page-level steps.
	Task string
}

// Navigate loads url.
func Navigate(url string) Step {
	return Step{Action: ActionNavigate, URL: url}
}

// TypeText sends the characters of text to the element matched by selector.
func TypeText(selector, text string) Step {
	return Step{Action: ActionType, Selector: selector, Text: text}
}

// AssertValue checks that the value of the element matched by selector equals expected.
func AssertValue(selector, expected string) Step {
	return Step{Action: ActionAssertValue, Selector: selector, Text: expected}
}

// SubmitForm submits the form matched by selector, or the form owning the matched element.
func SubmitForm(selector string) Step {
	return Step{Action: ActionSubmit, Selector: selector}
}

// ActivateControl clicks the control matched by selector.
func ActivateControl(selector string) Step {
	return Step{Action: ActionClick, Selector: selector}
}

// AssertPresent waits until selector matches an element.
func AssertPresent(selector string) Step {
	return Step{Action: ActionAssertPresent, Selector: selector}
}

// AssertAbsent waits until selector no longer matches any element.
func AssertAbsent(selector string) Step {
	return Step{Action: ActionAssertAbsent, Selector: selector}
}

// AssertBackendAbsent checks that the backend no longer lists an item titled task.
func AssertBackendAbsent(task string) Step {
	return Step{Action: ActionAssertBackendAbsent, Task: task}
}

// ForTask tags the step with the to-do item it acts on.
func (s Step) ForTask(task string) Step {
	s.Task = task
	return s
}

// String renders a human readable description, used in logs and failure reports.
func (s Step) String() string {
	switch s.Action {
	case ActionNavigate:
		return fmt.Sprintf("navigate to %s", s.URL)
	case ActionType:
		return fmt.Sprintf("type %q into %s", s.Text, s.Selector)
	case ActionAssertValue:
		return fmt.Sprintf("assert %s has value %q", s.Selector, s.Text)
	case ActionSubmit:
		return fmt.Sprintf("submit %s", s.Selector)
	case ActionClick:
		return fmt.Sprintf("click %s", s.Selector)
	case ActionAssertPresent:
		return fmt.Sprintf("assert %s is present", s.Selector)
	case ActionAssertAbsent:
		return fmt.Sprintf("assert %s is absent", s.Selector)
	case ActionAssertBackendAbsent:
		return fmt.Sprintf("assert backend no longer lists %q", s.Task)
	default:
		return s.Action.String()
	}
}
