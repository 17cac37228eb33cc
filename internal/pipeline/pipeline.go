// Package pipeline runs an ordered list of build steps. Execution is
// strictly sequential: a step starts only after the previous one succeeded,
// and the first failure halts the run with no partial success.
package pipeline

import (
	"context"
	"fmt"
	"time"
)

type Status int

const (
	StatusPending Status = iota
	StatusOK
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "pending"
	}
}

// Step is one discrete unit of the build procedure.
type Step struct {
	// Name identifies the step in results and logs.
	Name string

	// Run does the work. A nil Run marks a record-only step that cannot
	// fail (e.g. "register entry point").
	Run func(ctx context.Context) error
}

// StepResult records the outcome of a single step.
type StepResult struct {
	Name     string
	Status   Status
	Duration time.Duration
	Err      error
}

// StepError wraps a step failure with the step that produced it, so callers
// can attribute the abort precisely.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Observer is notified around each step. Used for logging and progress.
type Observer interface {
	StepStarted(name string)
	StepFinished(res StepResult)
}

type nopObserver struct{}

func (nopObserver) StepStarted(string)      {}
func (nopObserver) StepFinished(StepResult) {}

// Runner executes steps in order.
type Runner struct {
	steps    []Step
	observer Observer
}

func NewRunner(steps []Step) *Runner {
	return &Runner{steps: steps, observer: nopObserver{}}
}

// WithObserver sets the observer. Returns the runner for chaining.
func (r *Runner) WithObserver(obs Observer) *Runner {
	if obs != nil {
		r.observer = obs
	}
	return r
}

// Run executes every step in order. On the first failure (or context
// cancellation) it stops, marks the remaining steps skipped, and returns a
// *StepError naming the failed step. Results always cover all steps.
func (r *Runner) Run(ctx context.Context) ([]StepResult, error) {
	results := make([]StepResult, len(r.steps))
	for i, step := range r.steps {
		results[i] = StepResult{Name: step.Name, Status: StatusPending}
	}

	var failed error

	for i, step := range r.steps {
		if failed != nil {
			results[i].Status = StatusSkipped
			r.observer.StepFinished(results[i])
			continue
		}

		if err := ctx.Err(); err != nil {
			results[i].Status = StatusSkipped
			failed = &StepError{Step: step.Name, Err: err}
			results[i].Err = err
			r.observer.StepFinished(results[i])
			continue
		}

		r.observer.StepStarted(step.Name)
		start := time.Now()

		var err error
		if step.Run != nil {
			err = step.Run(ctx)
		}

		results[i].Duration = time.Since(start)
		if err != nil {
			results[i].Status = StatusFailed
			results[i].Err = err
			failed = &StepError{Step: step.Name, Err: err}
		} else {
			results[i].Status = StatusOK
		}

		r.observer.StepFinished(results[i])
	}

	return results, failed
}
