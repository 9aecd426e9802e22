package task

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"taskrun/internal/emit"
	"taskrun/internal/runctx"
)

// Task is the interface the engine drives. Concrete task types embed
// BaseTask, which implements every method here (Setup/Run/Teardown as
// defaults a concrete type overrides as needed), and call Bind once during
// construction so BaseTask can dispatch back to the overridden methods (Go
// embedding has no virtual dispatch on its own).
type Task interface {
	Class() *Class
	Args() Args

	Setup() error
	Run() error
	Teardown() error

	Status() Status
	SetStatus(Status)
	LastError() error
	ErrorText() string
	// SetFailure overwrites status/error/errorText directly, bypassing
	// classification. Used by the graph to propagate a failed ancestor's
	// outcome onto descendants that never ran.
	SetFailure(status Status, err error, errText string)

	Context() *runctx.RunContext
	SetContext(*runctx.RunContext)

	TimeTaken() time.Duration

	AddTeardown(fn func() error) func() error
	TeardownToFunction(fn func() error) error

	PatchAttrs(newAttrs map[string]any)
	Clone() Task

	GetConfig(key string, skipEmpty bool) (any, error)
	SetConfigFilepath(path string) error

	// ExecuteRun and ExecuteTeardown drive this task's lifecycle; see
	// BaseTask for the implementation every Task shares.
	ExecuteRun(debug bool)
	ExecuteTeardown(debug bool)

	String() string
}

// BaseTask implements the lifecycle engine common to every Task. Embed it
// and call Bind(self) in the type's constructor.
type BaseTask struct {
	self  Task
	class *Class
	args  Args

	teardownStack []func() error

	status  Status
	err     error
	errText string

	ctx       *runctx.RunContext
	startTime time.Time
	timeTaken time.Duration
}

// NewBaseTask constructs the embeddable state. Callers must still call
// Bind(self) with the outer concrete instance before using the task.
func NewBaseTask(class *Class, args Args) BaseTask {
	return BaseTask{class: class, args: args, ctx: runctx.New()}
}

// Bind records the outer concrete Task so BaseTask's lifecycle methods can
// call its overridden Setup/Run/Teardown.
func (t *BaseTask) Bind(self Task) { t.self = self }

func (t *BaseTask) self_() Task {
	if t.self != nil {
		return t.self
	}
	return t
}

func (t *BaseTask) Class() *Class { return t.class }
func (t *BaseTask) Args() Args    { return t.args }

func (t *BaseTask) Setup() error { return nil }
func (t *BaseTask) Run() error   { return nil }

// Teardown pops and invokes every callback registered with AddTeardown, in
// LIFO order, stopping at the first error. A task with nothing on its
// teardown stack is a no-op.
func (t *BaseTask) Teardown() error {
	for len(t.teardownStack) > 0 {
		n := len(t.teardownStack) - 1
		fn := t.teardownStack[n]
		t.teardownStack = t.teardownStack[:n]
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func (t *BaseTask) Status() Status     { return t.status }
func (t *BaseTask) SetStatus(s Status) { t.status = s }
func (t *BaseTask) LastError() error   { return t.err }
func (t *BaseTask) ErrorText() string  { return t.errText }
func (t *BaseTask) TimeTaken() time.Duration { return t.timeTaken }

// SetFailure overwrites status/error/errorText directly. The graph calls
// this to stamp an unreached descendant with its ancestor's failure rather
// than running classifyFailure's skip/fail/error heuristics against an
// error the task itself never produced.
func (t *BaseTask) SetFailure(status Status, err error, errText string) {
	t.status = status
	t.err = err
	t.errText = errText
}

func (t *BaseTask) Context() *runctx.RunContext        { return t.ctx }
func (t *BaseTask) SetContext(ctx *runctx.RunContext)  { t.ctx = ctx }

// AddTeardown pushes fn onto the LIFO teardown stack and returns it
// unchanged so a caller can later cancel by reference via
// TeardownToFunction.
func (t *BaseTask) AddTeardown(fn func() error) func() error {
	t.teardownStack = append(t.teardownStack, fn)
	return fn
}

// TeardownToFunction pops and invokes callbacks until (and including) fn.
// If the stack empties without matching fn, it returns an AssertionError.
func (t *BaseTask) TeardownToFunction(fn func() error) error {
	target := reflect.ValueOf(fn).Pointer()
	for len(t.teardownStack) > 0 {
		n := len(t.teardownStack) - 1
		f := t.teardownStack[n]
		t.teardownStack = t.teardownStack[:n]
		match := reflect.ValueOf(f).Pointer() == target
		if err := f(); err != nil {
			return err
		}
		if match {
			return nil
		}
	}
	return &AssertionError{Msg: "teardown_to_function: function not found on stack"}
}

// PatchAttrs assigns each named value onto the bound instance's exported
// fields via reflection -- the statically-typed stand-in for the source
// language's arbitrary setattr. Any value that itself exposes SetContext is
// re-pointed at this task's context first, so resources follow whichever
// task currently owns them.
func (t *BaseTask) PatchAttrs(newAttrs map[string]any) {
	self := t.self_()
	v := reflect.ValueOf(self)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}
	elem := v.Elem()
	if elem.Kind() != reflect.Struct {
		return
	}
	for name, value := range newAttrs {
		if ctxer, ok := value.(interface {
			SetContext(*runctx.RunContext)
		}); ok {
			ctxer.SetContext(t.ctx)
		}
		field := elem.FieldByName(name)
		if !field.IsValid() || !field.CanSet() {
			continue
		}
		if value == nil {
			field.Set(reflect.Zero(field.Type()))
			continue
		}
		rv := reflect.ValueOf(value)
		if rv.Type().AssignableTo(field.Type()) {
			field.Set(rv)
		}
	}
}

// Clone constructs a fresh instance of the same class with a copy of args.
func (t *BaseTask) Clone() Task {
	return t.class.New(t.args.Clone())
}

// GetConfig performs a dotted key-path lookup against the context's active
// config. If the key is missing (or resolves to nil) and skipEmpty is true,
// it returns a SkipError rather than a zero value, matching the source
// language's "skip this task if the config isn't there" convention.
func (t *BaseTask) GetConfig(key string, skipEmpty bool) (any, error) {
	if t.ctx == nil || t.ctx.Config == nil {
		if skipEmpty {
			return nil, Skip(fmt.Sprintf("config key %q not set: no config loaded", key))
		}
		return nil, nil
	}
	v, ok := t.ctx.Config.Get(key)
	if (!ok || v == nil) && skipEmpty {
		return nil, Skip(fmt.Sprintf("config key %q not set", key))
	}
	return v, nil
}

func (t *BaseTask) SetConfigFilepath(path string) error {
	return t.ctx.SetConfigFile(path)
}

// String renders "<ClassName>(k1=repr(v1),...)", keys in insertion order.
func (t *BaseTask) String() string {
	var parts []string
	for _, k := range t.args.Keys() {
		v, _ := t.args.Get(k)
		parts = append(parts, fmt.Sprintf("%s=%s", k, Repr(v)))
	}
	return fmt.Sprintf("%s(%s)", shortName(t.class.Name), strings.Join(parts, ","))
}

func runGuarded(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()
	return fn()
}

func (t *BaseTask) classifyFailure(err error, debug bool) {
	t.err = err
	t.errText = err.Error()
	switch {
	case errors.Is(err, ErrSkip):
		t.status = StatusSkip
		t.ctx.LogSkip(t.errText)
	case isAssertionError(err):
		t.status = StatusFail
		t.ctx.LogFail(t.errText)
	default:
		t.status = StatusError
		t.ctx.LogError(t.errText)
	}
	if debug {
		t.debugBreak()
	}
}

func (t *BaseTask) debugBreak() {
	t.ctx.LogDebug(fmt.Sprintf("debug: %s stopped with status %s; attach a debugger at this callsite to inspect state", t.self_().String(), t.status))
}

// ExecuteRun runs setup() then run() (whichever are declared) inside a
// single failure scope -- a setup failure skips run() the same way an
// exception raised mid-setup would skip a following statement. Any failure
// is classified into SKIP/FAIL/ERROR and DEBUG_FCNS run afterward if the
// task failed.
func (t *BaseTask) ExecuteRun(debug bool) {
	self := t.self_()
	t.startTime = time.Now()

	if t.class.SetupDefined {
		sc := t.ctx.Subcontext(fmt.Sprintf("setup %s", self.String()), emit.Procedure)
		err := runGuarded(self.Setup)
		sc.Close()
		if err != nil {
			t.classifyFailure(err, debug)
		}
	}
	if t.status == StatusUnset && t.class.RunDefined {
		sc := t.ctx.Subcontext(fmt.Sprintf("run %s", self.String()), emit.Procedure)
		err := runGuarded(self.Run)
		sc.Close()
		if err != nil {
			t.classifyFailure(err, debug)
		}
	}

	if t.status.IsSet() {
		for _, df := range t.class.DebugFuncs {
			sc := t.ctx.Subcontext(fmt.Sprintf("gather_debug %s %s", self.String(), df.Name), emit.Procedure)
			func(fn func(Task) error) {
				defer func() { recover() }()
				if err := fn(self); err != nil {
					t.ctx.LogError(err.Error())
				}
			}(df.Fn)
			sc.Close()
		}
	}

	t.timeTaken += time.Since(t.startTime)
}

// ExecuteTeardown pops and invokes the teardown stack, if any. A failure
// here sets CATASTROPHIC unconditionally, overriding any earlier status; a
// task that never set a status becomes SUCCESS.
func (t *BaseTask) ExecuteTeardown(debug bool) {
	self := t.self_()
	start := time.Now()

	if len(t.teardownStack) > 0 {
		sc := t.ctx.Subcontext(fmt.Sprintf("teardown %s", self.String()), emit.Procedure)
		err := runGuarded(self.Teardown)
		sc.Close()
		if err != nil {
			t.status = StatusCatastrophic
			t.err = err
			t.errText = err.Error()
			t.ctx.LogCatastrophic(t.errText)
			if debug {
				t.debugBreak()
			}
		}
	}
	if t.status == StatusUnset {
		t.status = StatusSuccess
	}
	t.ctx.LogProcedure(fmt.Sprintf("finished %s - %s", self.String(), t.status))
	t.timeTaken += time.Since(start)
}

// Execute runs both phases back to back, for callers that don't need the
// graph's interleaving of run/teardown across siblings.
func (t *BaseTask) Execute(debug bool) {
	t.ExecuteRun(debug)
	t.ExecuteTeardown(debug)
}
