package usecase

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Workflow runs named steps in order and stops at the first required step
// that fails. Steps that already ran are not undone.
type Workflow struct {
	name      string
	steps     []Step
	completed []string
	warnings  []StepWarning
}

type Step struct {
	Name       string
	Fn         func(context.Context) error
	BestEffort bool
}

// StepWarning records a best-effort step that failed without stopping the run.
type StepWarning struct {
	Step string
	Err  error
}

// StepError reports which step stopped the workflow and what had already been
// persisted before it.
type StepError struct {
	Workflow  string
	Step      string
	Completed []string
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: step '%s' failed after %v: %v", e.Workflow, e.Step, e.Completed, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func NewWorkflow(name string) *Workflow {
	return &Workflow{name: name}
}

func (w *Workflow) AddStep(name string, fn func(context.Context) error) {
	w.steps = append(w.steps, Step{Name: name, Fn: fn})
}

func (w *Workflow) AddBestEffortStep(name string, fn func(context.Context) error) {
	w.steps = append(w.steps, Step{Name: name, Fn: fn, BestEffort: true})
}

func (w *Workflow) Execute(ctx context.Context) error {
	for _, step := range w.steps {
		if err := step.Fn(ctx); err != nil {
			if step.BestEffort {
				log.WithFields(log.Fields{"workflow": w.name, "step": step.Name}).WithError(err).Warn("best-effort step failed")
				w.warnings = append(w.warnings, StepWarning{Step: step.Name, Err: err})
				continue
			}
			return &StepError{
				Workflow:  w.name,
				Step:      step.Name,
				Completed: append([]string(nil), w.completed...),
				Err:       err,
			}
		}
		w.completed = append(w.completed, step.Name)
	}
	return nil
}

func (w *Workflow) Completed() []string {
	return append([]string(nil), w.completed...)
}

func (w *Workflow) Warnings() []StepWarning {
	return append([]StepWarning(nil), w.warnings...)
}
