package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Task is a synthetic check the runner executes on a cron schedule.
type Task interface {
	// Name identifies the task in logs and the registry
	Name() string

	// Schedule is a standard cron expression or descriptor ("@every 5m")
	Schedule() string

	Run(ctx context.Context) error

	// Timeout bounds a single Run
	Timeout() time.Duration
}

// TaskRegistry holds the tasks known to a runner.
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]Task)}
}

// Register adds a task. Names must be unique.
func (r *TaskRegistry) Register(task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tasks[task.Name()]; dup {
		return fmt.Errorf("task %s already registered", task.Name())
	}
	r.tasks[task.Name()] = task
	return nil
}

// Get returns a task by name
func (r *TaskRegistry) Get(name string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[name]
	return task, ok
}

// All returns a snapshot of the registered tasks.
func (r *TaskRegistry) All() map[string]Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Task, len(r.tasks))
	for name, t := range r.tasks {
		out[name] = t
	}
	return out
}

// Names returns the registered task names in sorted order.
func (r *TaskRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
