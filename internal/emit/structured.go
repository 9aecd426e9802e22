package emit

import (
	"encoding/json"
	"io"
)

// event is the canonical on-disk shape written by StructuredFileEmitter, one
// per line. Field order and omission follow the same discipline as the
// teacher's canonical trace encoder: stable keys, empty values omitted.
type event struct {
	Kind         string         `json:"kind"`
	Level        string         `json:"level,omitempty"`
	Text         string         `json:"text,omitempty"`
	ContextLevel int            `json:"context_level,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// StructuredFileEmitter writes one JSON object per event to Out, making a
// run's event stream diffable across executions.
type StructuredFileEmitter struct {
	Out          io.Writer
	contextLevel int
}

func NewStructuredFileEmitter(w io.Writer) *StructuredFileEmitter {
	return &StructuredFileEmitter{Out: w}
}

func (s *StructuredFileEmitter) write(e event) {
	e.ContextLevel = s.contextLevel
	enc := json.NewEncoder(s.Out)
	_ = enc.Encode(e)
}

func (s *StructuredFileEmitter) StartTask(task any) {
	s.write(event{Kind: "start_task", Text: renderTask(task)})
}

func (s *StructuredFileEmitter) EndTask(task any) {
	s.write(event{Kind: "end_task", Text: renderTask(task)})
}

func (s *StructuredFileEmitter) Subcontext() {
	s.contextLevel++
	s.write(event{Kind: "subcontext"})
}

func (s *StructuredFileEmitter) PopSubcontext(level int) {
	s.contextLevel = level
	s.write(event{Kind: "pop_subcontext"})
}

func (s *StructuredFileEmitter) LogMessage(level Level, text string) {
	s.write(event{Kind: "log", Level: level.String(), Text: text})
}

func (s *StructuredFileEmitter) LogResponse(task any, payload map[string]any) {
	s.write(event{Kind: "response", Text: renderTask(task), Payload: payload})
}

func (s *StructuredFileEmitter) LogFile(description, extension, mode string) (io.WriteCloser, error) {
	return discardFile{}, nil
}

func (s *StructuredFileEmitter) Finalize() error {
	s.write(event{Kind: "finalize"})
	return nil
}

func renderTask(task any) string {
	if s, ok := task.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}
