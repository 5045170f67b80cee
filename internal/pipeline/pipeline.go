package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/boardwatch/internal/model"
)

// Step is one stage of board processing. Steps run in sequence and share
// state only through the report: the fetch step leaves the open body on
// report.Stream, the extract step consumes and closes it, and later steps
// read report.Posts.
//
// A step that takes report.Stream owns it and must close it, including on
// error. Execute closes a stream that no step took.
type Step interface {
	// Do runs the step against report. Errors that should stop the
	// pipeline are returned; partial results, such as posts decoded before
	// a read error, stay on the report.
	Do(ctx context.Context, report *model.BoardReport) error

	// Name returns the step's name for logging and report.Steps.
	Name() string
}

// Pipeline executes steps in order against one BoardReport.
//
// A Pipeline holds no per-board state and may be reused for several
// boards in sequence. BatchProcessor builds one per board so that each
// gets its own client and markers.
type Pipeline struct {
	// steps is the ordered list of steps to execute.
	steps []Step

	// logger receives one record per step and one per run.
	logger *slog.Logger

	// continueOnError keeps later steps running after a failure. Only the
	// first error is recorded on the report.
	continueOnError bool
}

// Option configures a Pipeline, in the functional options style used by
// every constructor in boardwatch.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running later steps after one fails. The
// first error is still recorded on the report.
//
// The default is to stop: the extract step has nothing to read once the
// fetch step fails, and a store step must not record posts from a stream
// that ended in an error.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step against report and sets its Duration.
// Cancellation is checked before each step. A body stream left open by a
// failed step is closed before Execute returns.
func (p *Pipeline) Execute(ctx context.Context, report *model.BoardReport) error {
	defer func() {
		if report.Stream != nil {
			_ = report.Stream.Close()
			report.Stream = nil
		}
		report.Duration = time.Since(report.StartedAt)
	}()

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"source", report.Source,
				"reason", err,
			)
			p.record(report, err)
			return err
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"source", report.Source,
		)

		err := step.Do(ctx, report)
		report.Steps = append(report.Steps, step.Name())
		if err == nil {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"source", report.Source,
			)
			continue
		}

		p.logger.Error("step failed",
			"step", step.Name(),
			"source", report.Source,
			"error", err,
		)
		p.record(report, err)
		if !p.continueOnError {
			return err
		}
	}
	return nil
}

// record keeps the first error on the report.
func (p *Pipeline) record(report *model.BoardReport, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		report.TimedOut = true
	}
	if report.Error == nil {
		report.SetError(err)
	}
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
