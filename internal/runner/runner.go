package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner manages and executes scheduled synthetic checks
type Runner struct {
	cron     *cron.Cron
	registry *TaskRegistry
	logger   *log.Logger
	wg       sync.WaitGroup

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger replaces the default stdout logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a new task runner. Schedules use the standard five-field
// cron syntax plus descriptors such as "@every 5m".
func NewRunner(registry *TaskRegistry, opts ...Option) *Runner {
	r := &Runner{
		cron:     cron.New(),
		registry: registry,
		logger:   log.New(os.Stdout, "[RUNNER] ", log.LstdFlags),
		entries:  make(map[string]cron.EntryID),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Schedule registers every task with cron and starts the scheduler without blocking.
func (r *Runner) Schedule(ctx context.Context) error {
	for name, task := range r.registry.All() {
		if err := r.add(ctx, name, task); err != nil {
			return err
		}
	}
	r.cron.Start()
	r.logger.Println("Task runner started successfully")
	return nil
}

func (r *Runner) add(ctx context.Context, name string, task Task) error {
	r.logger.Printf("Registering task: %s with schedule: %s", name, task.Schedule())
	id, err := r.cron.AddFunc(task.Schedule(), func() {
		r.executeTask(ctx, task)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule task %s: %w", name, err)
	}
	r.mu.Lock()
	r.entries[name] = id
	r.mu.Unlock()
	return nil
}

// Reschedule replaces the cron entry of a registered task, e.g. after its
// schedule changed on config reload.
func (r *Runner) Reschedule(ctx context.Context, name string) error {
	task, ok := r.registry.Get(name)
	if !ok {
		return fmt.Errorf("unknown task %s", name)
	}
	r.mu.Lock()
	if id, ok := r.entries[name]; ok {
		r.cron.Remove(id)
		delete(r.entries, name)
	}
	r.mu.Unlock()
	return r.add(ctx, name, task)
}

// Next returns the next scheduled run of a task, zero if it is not scheduled.
func (r *Runner) Next(name string) time.Time {
	r.mu.Lock()
	id, ok := r.entries[name]
	r.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return r.cron.Entry(id).Next
}

// RunNow executes a registered task immediately, outside its schedule.
func (r *Runner) RunNow(ctx context.Context, name string) error {
	task, ok := r.registry.Get(name)
	if !ok {
		return fmt.Errorf("unknown task %s", name)
	}
	return r.executeTask(ctx, task)
}

// Start schedules all tasks and blocks until a termination signal or ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	r.logger.Println("Starting task runner...")
	if err := r.Schedule(ctx); err != nil {
		return err
	}
	return r.waitForShutdown(ctx)
}

// executeTask runs a single task with timeout and error handling
func (r *Runner) executeTask(ctx context.Context, task Task) error {
	r.wg.Add(1)
	defer r.wg.Done()

	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout())
	defer cancel()

	r.logger.Printf("Executing task: %s", task.Name())

	start := time.Now()
	err := task.Run(taskCtx)
	duration := time.Since(start)

	if err != nil {
		r.logger.Printf("Task %s failed after %v: %v", task.Name(), duration, err)
	} else {
		r.logger.Printf("Task %s completed successfully in %v", task.Name(), duration)
	}
	return err
}

// Stop gracefully shuts down the runner
func (r *Runner) Stop() {
	r.logger.Println("Stopping task runner...")

	// Stop accepting new tasks
	ctx := r.cron.Stop()

	// Wait for running tasks to complete
	r.wg.Wait()

	r.logger.Println("Task runner stopped")
	<-ctx.Done()
}

// waitForShutdown waits for termination signals
func (r *Runner) waitForShutdown(ctx context.Context) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		r.logger.Printf("Received signal: %v", sig)
		r.Stop()
		return nil
	case <-ctx.Done():
		r.logger.Println("Context cancelled")
		r.Stop()
		return ctx.Err()
	}
}
