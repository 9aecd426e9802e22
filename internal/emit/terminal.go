package emit

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var levelColors = map[Level]*color.Color{
	Debug:        color.New(color.FgWhite, color.Faint),
	Procedure:    color.New(color.FgBlue),
	Info:         color.New(color.FgWhite),
	Skip:         color.New(color.FgHiMagenta),
	Success:      color.New(color.FgGreen),
	Error:        color.New(color.FgHiRed),
	Fail:         color.New(color.FgRed),
	Catastrophic: color.New(color.FgHiCyan),
}

// contextLevelSpaces mirrors the two-space-per-nesting-level indent of the
// original terminal renderer.
const contextLevelSpaces = 2

// TerminalEmitter renders subcontext nesting and level-colored lines to an
// io.Writer, defaulting to os.Stdout.
type TerminalEmitter struct {
	Out          io.Writer
	UseColor     bool
	contextLevel int
}

// NewTerminalEmitter builds a TerminalEmitter writing to os.Stdout with
// color enabled.
func NewTerminalEmitter() *TerminalEmitter {
	return &TerminalEmitter{Out: os.Stdout, UseColor: true}
}

func (t *TerminalEmitter) out() io.Writer {
	if t.Out == nil {
		return os.Stdout
	}
	return t.Out
}

func (t *TerminalEmitter) StartTask(task any) {}
func (t *TerminalEmitter) EndTask(task any)   {}

func (t *TerminalEmitter) Subcontext() { t.contextLevel++ }

func (t *TerminalEmitter) PopSubcontext(level int) { t.contextLevel = level }

func (t *TerminalEmitter) LogMessage(level Level, text string) {
	spaces := strings.Repeat(" ", t.contextLevel*contextLevelSpaces)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		rendered := spaces + line
		if t.UseColor {
			if c, ok := levelColors[level]; ok {
				rendered = c.Sprint(rendered)
			}
		}
		fmt.Fprintln(t.out(), rendered)
	}
}

func (t *TerminalEmitter) LogResponse(task any, payload map[string]any) {
	t.LogMessage(Info, fmt.Sprintf("%v", payload))
}

func (t *TerminalEmitter) LogFile(description, extension, mode string) (io.WriteCloser, error) {
	return discardFile{}, nil
}

func (t *TerminalEmitter) Finalize() error { return nil }
