package runctx

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskrun/internal/emit"
)

type recordingEmitter struct {
	subcontexts []int // each Subcontext() bumps a counter; PopSubcontext(level) records the level restored to
	messages    []string
	finalized   bool
	level       int
	popped      []int
}

func (r *recordingEmitter) StartTask(task any) {}
func (r *recordingEmitter) EndTask(task any)   {}

func (r *recordingEmitter) Subcontext() {
	r.level++
	r.subcontexts = append(r.subcontexts, r.level)
}

func (r *recordingEmitter) PopSubcontext(level int) {
	r.level = level
	r.popped = append(r.popped, level)
}

func (r *recordingEmitter) LogMessage(level emit.Level, text string) {
	r.messages = append(r.messages, text)
}

func (r *recordingEmitter) LogResponse(task any, payload map[string]any) {}

func (r *recordingEmitter) LogFile(description, extension, mode string) (io.WriteCloser, error) {
	return nopCloser{}, nil
}

func (r *recordingEmitter) Finalize() error {
	r.finalized = true
	return nil
}

type nopCloser struct{}

func (nopCloser) Write(p []byte) (int, error) { return len(p), nil }
func (nopCloser) Close() error                { return nil }

func TestNew_AssignsRunIDAndWrapsEmittersInSafe(t *testing.T) {
	ctx := New(&recordingEmitter{})
	assert.NotEmpty(t, ctx.RunID)
	require.Len(t, ctx.Emitters(), 1)
	_, ok := ctx.Emitters()[0].(emit.Safe)
	assert.True(t, ok, "emitters attached through New should be wrapped in emit.Safe")
}

func TestRunContext_LogMessage_FansOutToEveryEmitter(t *testing.T) {
	rec := &recordingEmitter{}
	ctx := New(rec)

	ctx.LogInfo("hello")
	ctx.LogFail("it broke")

	assert.Equal(t, []string{"hello", "it broke"}, rec.messages)
}

func TestRunContext_Subcontext_RestoresNestingOnClose(t *testing.T) {
	rec := &recordingEmitter{}
	ctx := New(rec)

	sc := ctx.Subcontext("entering", emit.Procedure)
	assert.Equal(t, []string{"entering"}, rec.messages)
	assert.Equal(t, []int{1}, rec.subcontexts)

	inner := ctx.Subcontext("nested", emit.Procedure)
	assert.Equal(t, []int{1, 2}, rec.subcontexts)

	inner.Close()
	assert.Equal(t, []int{1}, rec.popped)

	sc.Close()
	assert.Equal(t, []int{1, 0}, rec.popped)
}

func TestRunContext_AddEmitter_WrapsInSafeAndFansOutFutureMessages(t *testing.T) {
	ctx := New()
	rec := &recordingEmitter{}
	ctx.AddEmitter(rec)

	ctx.LogDebug("after attach")
	assert.Equal(t, []string{"after attach"}, rec.messages)
}

func TestRunContext_Finalize_AggregatesEmitterErrors(t *testing.T) {
	ctx := New(&failingEmitter{}, &failingEmitter{})

	err := ctx.Finalize()
	require.Error(t, err)
}

type failingEmitter struct{ recordingEmitter }

func (*failingEmitter) Finalize() error { return errors.New("finalize boom") }

func TestRunContext_LogFile_FansOutThroughMultiFileAndAtomicFile(t *testing.T) {
	dir := t.TempDir()
	rec := &recordingEmitter{}
	ctx := New(rec)
	ctx.LogDir = dir

	mf, err := ctx.LogFile("output", "txt", "w")
	require.NoError(t, err)

	n, err := mf.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// Finalize closes and renames the atomic file; closing mf separately
	// first would double-close the same underlying handle.
	require.NoError(t, ctx.Finalize())

	contents, err := os.ReadFile(filepath.Join(dir, "output.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(contents))
}

func TestMultiFile_WriteReportsMinimumAcrossSinks(t *testing.T) {
	short := &shortWriter{max: 2}
	full := &nopCloser{}
	mf := NewMultiFile(short, full)

	n, err := mf.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMultiFile_EmptySinksDiscardsSuccessfully(t *testing.T) {
	mf := NewMultiFile()
	n, err := mf.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

type shortWriter struct{ max int }

func (s *shortWriter) Write(p []byte) (int, error) {
	if len(p) > s.max {
		return s.max, nil
	}
	return len(p), nil
}
func (s *shortWriter) Close() error { return nil }

func TestAtomicFile_FinalizeRenamesTmpToFinalName(t *testing.T) {
	dir := t.TempDir()
	af, err := NewAtomicFile(dir, "report.json")
	require.NoError(t, err)

	_, err = af.Write([]byte(`{"ok":true}`))
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "report.json"))
	assert.Error(t, statErr, "final name should not exist before Finalize")

	require.NoError(t, af.Finalize())

	contents, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(contents))

	// Finalize is idempotent.
	require.NoError(t, af.Finalize())
}
