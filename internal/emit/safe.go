package emit

import "io"

// Safe wraps an Emitter so that a panic inside any of its methods is
// recovered rather than unwinding into the graph. Emitters are third-party
// code from the core's point of view; one misbehaving sink must not abort a
// run for every other sink.
type Safe struct {
	Emitter
}

func (s Safe) StartTask(task any) {
	defer recoverInto(nil)
	s.Emitter.StartTask(task)
}

func (s Safe) EndTask(task any) {
	defer recoverInto(nil)
	s.Emitter.EndTask(task)
}

func (s Safe) Subcontext() {
	defer recoverInto(nil)
	s.Emitter.Subcontext()
}

func (s Safe) PopSubcontext(level int) {
	defer recoverInto(nil)
	s.Emitter.PopSubcontext(level)
}

func (s Safe) LogMessage(level Level, text string) {
	defer recoverInto(nil)
	s.Emitter.LogMessage(level, text)
}

func (s Safe) LogResponse(task any, payload map[string]any) {
	defer recoverInto(nil)
	s.Emitter.LogResponse(task, payload)
}

func (s Safe) LogFile(description, extension, mode string) (w io.WriteCloser, err error) {
	defer func() {
		if r := recover(); r != nil {
			w, err = discardFile{}, nil
		}
	}()
	return s.Emitter.LogFile(description, extension, mode)
}

func (s Safe) Finalize() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = nil
		}
	}()
	return s.Emitter.Finalize()
}

func recoverInto(_ *error) {
	recover()
}

type discardFile struct{}

func (discardFile) Write(p []byte) (int, error) { return len(p), nil }
func (discardFile) Close() error                { return nil }
