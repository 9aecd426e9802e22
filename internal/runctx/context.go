package runctx

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"taskrun/internal/config"
	"taskrun/internal/emit"
)

// RunContext is the ambient state shared by every task in one run: the
// current nesting depth, the attached emitters, and the loaded config.
type RunContext struct {
	RunID string

	logPosition int
	emitters    []emit.Emitter

	Config *config.Config

	// LogDir, when set, makes RunContext.LogFile additionally open its own
	// atomically-published file alongside whatever the emitters return.
	LogDir string

	atomicFiles []*AtomicFile
}

// New builds a RunContext wrapping each emitter in emit.Safe so a panicking
// sink cannot abort the run.
func New(emitters ...emit.Emitter) *RunContext {
	wrapped := make([]emit.Emitter, len(emitters))
	for i, e := range emitters {
		wrapped[i] = emit.Safe{Emitter: e}
	}
	return &RunContext{emitters: wrapped, RunID: uuid.NewString()}
}

// AddEmitter attaches a new emitter mid-run.
func (c *RunContext) AddEmitter(e emit.Emitter) {
	c.emitters = append(c.emitters, emit.Safe{Emitter: e})
}

// Emitters returns the attached emitters, in attachment order.
func (c *RunContext) Emitters() []emit.Emitter { return c.emitters }

// Subcontext opens a nested logging scope, logging message at level to
// every emitter and incrementing nesting. The returned handle must be
// closed on every exit path, including via defer across a panic, to
// restore nesting to its pre-open value.
func (c *RunContext) Subcontext(message string, level emit.Level) *Subcontext {
	c.LogMessage(level, message)
	captured := c.logPosition
	c.logPosition++
	for _, e := range c.emitters {
		e.Subcontext()
	}
	return &Subcontext{ctx: c, level: captured}
}

// Subcontext is a scoped logging handle returned by RunContext.Subcontext.
type Subcontext struct {
	ctx   *RunContext
	level int
}

// Close restores every emitter's nesting to the level captured when this
// subcontext was opened.
func (s *Subcontext) Close() {
	for _, e := range s.ctx.emitters {
		e.PopSubcontext(s.level)
	}
	s.ctx.logPosition = s.level
}

func (c *RunContext) LogMessage(level emit.Level, message string) {
	for _, e := range c.emitters {
		e.LogMessage(level, message)
	}
}

func (c *RunContext) LogDebug(message string)        { c.LogMessage(emit.Debug, message) }
func (c *RunContext) LogProcedure(message string)     { c.LogMessage(emit.Procedure, message) }
func (c *RunContext) LogInfo(message string)          { c.LogMessage(emit.Info, message) }
func (c *RunContext) LogSkip(message string)          { c.LogMessage(emit.Skip, message) }
func (c *RunContext) LogSuccess(message string)        { c.LogMessage(emit.Success, message) }
func (c *RunContext) LogError(message string)         { c.LogMessage(emit.Error, message) }
func (c *RunContext) LogFail(message string)          { c.LogMessage(emit.Fail, message) }
func (c *RunContext) LogCatastrophic(message string)  { c.LogMessage(emit.Catastrophic, message) }

func (c *RunContext) LogResponse(task any, payload map[string]any) {
	for _, e := range c.emitters {
		e.LogResponse(task, payload)
	}
}

// SetConfigFile loads path as the active config mapping.
func (c *RunContext) SetConfigFile(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	c.Config = cfg
	return nil
}

// LogFile opens a per-task auxiliary file: one handle per attached emitter,
// plus RunContext's own atomically-published file when LogDir is set, all
// fanned out through a MultiFile.
func (c *RunContext) LogFile(description, extension, mode string) (*MultiFile, error) {
	var handles []io.WriteCloser
	for _, e := range c.emitters {
		h, err := e.LogFile(description, extension, mode)
		if err != nil {
			return nil, fmt.Errorf("runctx: log file for %q: %w", description, err)
		}
		handles = append(handles, h)
	}
	if c.LogDir != "" {
		af, err := NewAtomicFile(c.LogDir, fmt.Sprintf("%s.%s", description, extension))
		if err != nil {
			return nil, fmt.Errorf("runctx: atomic log file for %q: %w", description, err)
		}
		c.atomicFiles = append(c.atomicFiles, af)
		handles = append(handles, af)
	}
	return NewMultiFile(handles...), nil
}

// Finalize publishes every atomically-opened log file and finalizes every
// attached emitter, accumulating any failures.
func (c *RunContext) Finalize() error {
	var errs *multierror.Error
	for _, af := range c.atomicFiles {
		if err := af.Finalize(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	for _, e := range c.emitters {
		if err := e.Finalize(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
