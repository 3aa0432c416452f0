package domain

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// RollbackStep undoes one piece of state created by an earlier pipeline step.
type RollbackStep struct {
	Name string
	Undo func(ctx context.Context) error
}

// Rollback collects undo steps and runs them in reverse order of registration.
// Every step runs even when an earlier one fails.
type Rollback struct {
	steps []RollbackStep
}

// Add registers an undo step.
func (r *Rollback) Add(name string, undo func(ctx context.Context) error) {
	r.steps = append(r.steps, RollbackStep{Name: name, Undo: undo})
}

// Len returns the number of registered steps.
func (r *Rollback) Len() int {
	return len(r.steps)
}

// Discard forgets every registered step. Called once the pipeline committed.
func (r *Rollback) Discard() {
	r.steps = nil
}

// Run executes all steps, last registered first, and returns a *RollbackError
// when any of them failed.
func (r *Rollback) Run(ctx context.Context) error {
	var failures []RollbackFailure
	var combined error
	for i := len(r.steps) - 1; i >= 0; i-- {
		step := r.steps[i]
		if err := step.Undo(ctx); err != nil {
			failures = append(failures, RollbackFailure{Step: step.Name, Err: err})
			combined = multierr.Append(combined, fmt.Errorf("%s: %w", step.Name, err))
		}
	}
	r.steps = nil

	if combined == nil {
		return nil
	}
	return &RollbackError{Failures: failures, Err: combined}
}

// RollbackFailure records one failed undo step.
type RollbackFailure struct {
	Step string
	Err  error
}

// RollbackError aggregates every failed undo step of a rollback.
type RollbackError struct {
	Failures []RollbackFailure
	Err      error // multierr combination of all failures
}

// Error implements the error interface.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback finished with %d failed step(s): %v", len(e.Failures), e.Err)
}

// Unwrap returns the individual failures.
func (e *RollbackError) Unwrap() []error {
	return multierr.Errors(e.Err)
}
