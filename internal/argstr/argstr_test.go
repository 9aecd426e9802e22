package argstr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_EmptyStringYieldsNoArgs(t *testing.T) {
	args, err := Parse("")
	require.NoError(t, err)
	_, ok := args.Get("anything")
	assert.False(t, ok)
}

func TestParse_ParsesEachLiteralKind(t *testing.T) {
	args, err := Parse(`name="alice", age=30, ratio=1.5, active=true, missing=None`)
	require.NoError(t, err)

	v, ok := args.Get("name")
	require.True(t, ok)
	assert.Equal(t, "alice", v)

	v, ok = args.Get("age")
	require.True(t, ok)
	assert.Equal(t, 30, v)

	v, ok = args.Get("ratio")
	require.True(t, ok)
	assert.Equal(t, 1.5, v)

	v, ok = args.Get("active")
	require.True(t, ok)
	assert.Equal(t, true, v)

	v, ok = args.Get("missing")
	require.True(t, ok)
	assert.Nil(t, v)
}

func TestParse_SingleQuotedStringAndEscapes(t *testing.T) {
	args, err := Parse(`greeting='hi\nthere'`)
	require.NoError(t, err)

	v, ok := args.Get("greeting")
	require.True(t, ok)
	assert.Equal(t, "hi\nthere", v)
}

func TestParse_MalformedPairIsError(t *testing.T) {
	_, err := Parse("justakey")
	assert.Error(t, err)
}

func TestParse_EmptyKeyIsError(t *testing.T) {
	_, err := Parse("=5")
	assert.Error(t, err)
}

func TestParse_UnrecognizedLiteralIsError(t *testing.T) {
	_, err := Parse("x=not_a_literal")
	assert.Error(t, err)
}

func TestParse_SkipsBlankPairsBetweenCommas(t *testing.T) {
	args, err := Parse("a=1,,b=2")
	require.NoError(t, err)

	v, ok := args.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = args.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}
