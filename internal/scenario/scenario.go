package scenario

// DefaultTasks are the task names exercised by the to-do scenario.
var DefaultTasks = []string{"play", "run", "work"}

// Scenario is an ordered list of steps forming one test case.
type Scenario struct {
	Name  string
	Steps []Step
}

// Options tune how TodoScenario expands each task.
type Options struct {
	// InputSelector locates the task input, defaults to TaskInputSelector.
	InputSelector string
	// FormSelector locates the form to submit, defaults to FormSelector.
	FormSelector string
	// VerifyItems adds presence checks after submit/toggle and absence checks after delete.
	VerifyItems bool
	// VerifyBackend adds a backend check after each delete.
	VerifyBackend bool
}

// TodoScenario builds the to-do scenario: navigate to baseURL, then for each
// task type it, assert the input value, submit, toggle and delete the item.
func TodoScenario(baseURL string, tasks []string, opts Options) *Scenario {
	if len(tasks) == 0 {
		tasks = DefaultTasks
	}
	input := opts.InputSelector
	if input == "" {
		input = TaskInputSelector
	}
	form := opts.FormSelector
	if form == "" {
		form = FormSelector
	}

	steps := []Step{Navigate(baseURL)}
	for _, task := range tasks {
		toggle := ControlSelector(task, ControlToggle)
		del := ControlSelector(task, ControlDelete)

		steps = append(steps,
			TypeText(input, task).ForTask(task),
			AssertValue(input, task).ForTask(task),
			SubmitForm(form).ForTask(task),
		)
		if opts.VerifyItems {
			steps = append(steps,
				AssertPresent(toggle).ForTask(task),
				AssertPresent(del).ForTask(task),
			)
		}
		steps = append(steps, ActivateControl(toggle).ForTask(task))
		if opts.VerifyItems {
			steps = append(steps, AssertPresent(toggle).ForTask(task))
		}
		steps = append(steps, ActivateControl(del).ForTask(task))
		if opts.VerifyItems {
			steps = append(steps,
				AssertAbsent(toggle).ForTask(task),
				AssertAbsent(del).ForTask(task),
			)
		}
		if opts.VerifyBackend {
			steps = append(steps, AssertBackendAbsent(task))
		}
	}

	return &Scenario{Name: "todo", Steps: steps}
}

// Tasks returns the distinct task names the scenario touches, in order.
func (s *Scenario) Tasks() []string {
	var tasks []string
	seen := map[string]bool{}
	for _, st := range s.Steps {
		if st.Task == "" || seen[st.Task] {
			continue
		}
		seen[st.Task] = true
		tasks = append(tasks, st.Task)
	}
	return tasks
}
