package cli

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskrun/internal/discover"
	"taskrun/internal/task"
)

type cliFixtureTask struct {
	task.BaseTask
}

func (f *cliFixtureTask) Run() error { return nil }

func registerFixtureClass(t *testing.T, name string, discoverFlag bool) *task.Class {
	t.Helper()
	var cls *task.Class
	built, err := task.NewClass(task.ClassSpec{
		Name:       name,
		RunDefined: true,
		Discover:   discoverFlag,
		New: func(a task.Args) task.Task {
			ft := &cliFixtureTask{BaseTask: task.NewBaseTask(cls, a)}
			ft.Bind(ft)
			return ft
		},
	})
	require.NoError(t, err)
	cls = built
	discover.Register(cls)
	return cls
}

func silentLogger() hclog.Logger {
	return hclog.NewNullLogger()
}

func TestFindClass_ReturnsEntryByName(t *testing.T) {
	discover.Reset()
	t.Cleanup(discover.Reset)
	registerFixtureClass(t, "findable", true)

	entry, err := findClass("findable", false)
	require.NoError(t, err)
	assert.Equal(t, "findable", entry.Name)
}

func TestFindClass_UnknownNameIsInvocationError(t *testing.T) {
	discover.Reset()
	t.Cleanup(discover.Reset)

	_, err := findClass("nope", false)
	require.Error(t, err)
	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, ExitInvalidInvocation, invErr.ExitCode)
}

func TestFindClass_HiddenClassRequiresAllFlag(t *testing.T) {
	discover.Reset()
	t.Cleanup(discover.Reset)
	registerFixtureClass(t, "hidden", false)

	_, err := findClass("hidden", false)
	assert.Error(t, err)

	entry, err := findClass("hidden", true)
	require.NoError(t, err)
	assert.Equal(t, "hidden", entry.Name)
}

func TestListCommand_PrintsRegisteredClasses(t *testing.T) {
	discover.Reset()
	t.Cleanup(discover.Reset)
	registerFixtureClass(t, "shown", true)

	cmd := newListCommand(silentLogger())
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "shown")
}

func TestGraphCommand_PrintsRoot(t *testing.T) {
	discover.Reset()
	t.Cleanup(discover.Reset)
	registerFixtureClass(t, "graphable", true)

	cmd := newGraphCommand(silentLogger())
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"graphable"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "(root)")
}

func TestGraphCommand_UnknownClassReturnsInvocationError(t *testing.T) {
	discover.Reset()
	t.Cleanup(discover.Reset)

	cmd := newGraphCommand(silentLogger())
	cmd.SetArgs([]string{"missing"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, ExitInvalidInvocation, invErr.ExitCode)
}

func TestRunCommand_SucceedsAgainstATrivialTask(t *testing.T) {
	discover.Reset()
	t.Cleanup(discover.Reset)
	registerFixtureClass(t, "runnable", true)

	cmd := newRunCommand(silentLogger())
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"runnable"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "run completed successfully")
}

func TestExitcode_InvocationErrorMessageOnNilReceiverIsEmpty(t *testing.T) {
	var err *InvocationError
	assert.Equal(t, "", err.Error())
}
