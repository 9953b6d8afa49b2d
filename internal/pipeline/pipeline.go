package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/notecrawl/internal/media"
	"github.com/nao1215/notecrawl/internal/model"
)

// ErrNothingStored is returned by Store when a job finished without any
// media file on disk.
var ErrNothingStored = errors.New("no media file was stored")

// Job carries one note through the pipeline.
type Job struct {
	// Detail is the note being stored.
	Detail *model.Detail

	// Dir is the media root directory.
	Dir string

	// Kind selects which media of the note are stored.
	Kind model.MediaKind

	// Files are the media files on disk after the download step.
	Files []media.File

	// EXIF holds the inspection result per file path.
	EXIF map[string]media.EXIFInfo

	// Completed lists the names of the steps that ran.
	Completed []string

	// Errors holds the errors of failed steps when the pipeline continues
	// on error.
	Errors []error
}

// NewJob creates a Job for detail.
func NewJob(detail *model.Detail, dir string, kind model.MediaKind) *Job {
	return &Job{
		Detail: detail,
		Dir:    dir,
		Kind:   kind,
		EXIF:   make(map[string]media.EXIFInfo),
	}
}

// Step defines the interface that all pipeline steps must implement.
type Step interface {
	// Do executes the step on the job. A returned error marks the step as
	// failed; whether later steps run depends on WithContinueOnError.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to run the remaining steps
// after one fails. A failed EXIF inspection should not keep a stored file
// out of the database, so the binary enables this.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
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

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps on job in order.
// It checks ctx before each step and returns the first error unless the
// pipeline continues on error.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	noteID := ""
	if job.Detail != nil {
		noteID = job.Detail.ID
	}

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "note_id", noteID, "reason", err)
			return err
		}

		if err := step.Do(ctx, job); err != nil {
			p.logger.Warn("step failed", "step", step.Name(), "note_id", noteID, "error", err)
			job.Errors = append(job.Errors, err)
			if !p.continueOnError {
				return err
			}
			continue
		}

		p.logger.Debug("step completed", "step", step.Name(), "note_id", noteID)
		job.Completed = append(job.Completed, step.Name())
	}
	return nil
}

// Store runs a new job for detail and reports whether anything was stored.
// It satisfies crawl.MediaStore.
func (p *Pipeline) Store(ctx context.Context, detail *model.Detail, dir string, kind model.MediaKind) error {
	job := NewJob(detail, dir, kind)
	if err := p.Execute(ctx, job); err != nil {
		return err
	}
	if len(job.Files) == 0 {
		if len(job.Errors) > 0 {
			return errors.Join(append([]error{ErrNothingStored}, job.Errors...)...)
		}
		return ErrNothingStored
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
