package emit

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", Debug.String())
	assert.Equal(t, "SUCCESS", Success.String())
	assert.Equal(t, "CATASTROPHIC", Catastrophic.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

// panicEmitter implements Emitter and panics from every method, used to
// exercise Safe's recovery wrapper.
type panicEmitter struct{}

func (panicEmitter) StartTask(task any)                           { panic("start") }
func (panicEmitter) EndTask(task any)                             { panic("end") }
func (panicEmitter) Subcontext()                                  { panic("sub") }
func (panicEmitter) PopSubcontext(level int)                      { panic("pop") }
func (panicEmitter) LogMessage(level Level, text string)          { panic("log") }
func (panicEmitter) LogResponse(task any, payload map[string]any) { panic("resp") }
func (panicEmitter) Finalize() error                              { panic("finalize") }
func (panicEmitter) LogFile(description, extension, mode string) (io.WriteCloser, error) {
	panic("logfile")
}

func TestSafe_RecoversPanicsFromEveryMethod(t *testing.T) {
	s := Safe{Emitter: panicEmitter{}}

	assert.NotPanics(t, func() { s.StartTask(nil) })
	assert.NotPanics(t, func() { s.EndTask(nil) })
	assert.NotPanics(t, func() { s.Subcontext() })
	assert.NotPanics(t, func() { s.PopSubcontext(0) })
	assert.NotPanics(t, func() { s.LogMessage(Info, "hi") })
	assert.NotPanics(t, func() { s.LogResponse(nil, nil) })

	var w io.WriteCloser
	var err error
	assert.NotPanics(t, func() { w, err = s.LogFile("d", "txt", "w") })
	assert.NoError(t, err)
	assert.NotNil(t, w)

	assert.NotPanics(t, func() { err = s.Finalize() })
	assert.NoError(t, err)
}

func TestTerminalEmitter_IndentsBySubcontextLevel(t *testing.T) {
	var buf bytes.Buffer
	term := &TerminalEmitter{Out: &buf, UseColor: false}

	term.LogMessage(Info, "top level")
	term.Subcontext()
	term.LogMessage(Info, "one deep")
	term.Subcontext()
	term.LogMessage(Info, "two deep")
	term.PopSubcontext(0)
	term.LogMessage(Info, "back to top")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "top level", lines[0])
	assert.Equal(t, "  one deep", lines[1])
	assert.Equal(t, "    two deep", lines[2])
	assert.Equal(t, "back to top", lines[3])
}

func TestTerminalEmitter_SplitsMultilineMessages(t *testing.T) {
	var buf bytes.Buffer
	term := &TerminalEmitter{Out: &buf, UseColor: false}

	term.LogMessage(Info, "first\nsecond")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{"first", "second"}, lines)
}

func TestStructuredFileEmitter_WritesOneJSONObjectPerEvent(t *testing.T) {
	var buf bytes.Buffer
	s := NewStructuredFileEmitter(&buf)

	s.Subcontext()
	s.LogMessage(Fail, "it broke")
	s.Finalize()

	dec := json.NewDecoder(&buf)

	var sub map[string]any
	require.NoError(t, dec.Decode(&sub))
	assert.Equal(t, "subcontext", sub["kind"])
	assert.Equal(t, float64(1), sub["context_level"])

	var logged map[string]any
	require.NoError(t, dec.Decode(&logged))
	assert.Equal(t, "log", logged["kind"])
	assert.Equal(t, "FAIL", logged["level"])
	assert.Equal(t, "it broke", logged["text"])

	var fin map[string]any
	require.NoError(t, dec.Decode(&fin))
	assert.Equal(t, "finalize", fin["kind"])
}

func TestDiscardFile_SwallowsWritesAndClose(t *testing.T) {
	var d discardFile
	n, err := d.Write([]byte("ignored"))
	assert.NoError(t, err)
	assert.Equal(t, len("ignored"), n)
	assert.NoError(t, d.Close())
}
