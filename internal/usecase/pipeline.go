package usecase

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Pipeline runs ordered steps, each inside its own error boundary. A failing
// step is recorded and the run continues, unless the step is critical.
// Nothing is rolled back: side effects of completed steps stay in place.
type Pipeline struct {
	workflow string
	steps    []Step
	recorder ErrorRecorder
}

type Step struct {
	Name     string
	Critical bool
	Fn       func(context.Context) error
}

type PipelineResult struct {
	Completed []string
	Failed    []string
}

func NewPipeline(workflow string, recorder ErrorRecorder) *Pipeline {
	return &Pipeline{
		workflow: workflow,
		steps:    []Step{},
		recorder: recorder,
	}
}

// AddStep appends a step whose failure is recorded but does not stop the run.
func (p *Pipeline) AddStep(name string, fn func(context.Context) error) {
	p.steps = append(p.steps, Step{Name: name, Fn: fn})
}

// AddCriticalStep appends a step whose failure aborts the run.
func (p *Pipeline) AddCriticalStep(name string, fn func(context.Context) error) {
	p.steps = append(p.steps, Step{Name: name, Critical: true, Fn: fn})
}

func (p *Pipeline) Execute(ctx context.Context) (PipelineResult, error) {
	var res PipelineResult

	for _, step := range p.steps {
		err := runStep(ctx, step)
		if err == nil {
			res.Completed = append(res.Completed, step.Name)
			continue
		}

		res.Failed = append(res.Failed, step.Name)
		// Domain errors are the caller's doing, not an incident worth an error log.
		if !IsDomainError(err) && p.recorder != nil {
			p.recorder.Record(ctx, p.workflow, step.Name, err, map[string]any{"critical": step.Critical})
		}
		if step.Critical {
			return res, fmt.Errorf("step %q failed: %w", step.Name, err)
		}
	}

	return res, nil
}

// PanicError is a panic recovered inside a step.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func runStep(ctx context.Context, step Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return step.Fn(ctx)
}
