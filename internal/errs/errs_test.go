package errs

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_PreservesCodeAndCause(t *testing.T) {
	err := Wrap(os.ErrPermission, CodeLogAppendFailure, "appending log line", FieldPath("/var/log/x.log"))
	require.Error(t, err)

	assert.Equal(t, CodeLogAppendFailure, CodeOf(err))
	assert.True(t, HasCode(err, CodeLogAppendFailure))
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, "/var/log/x.log", FieldsOf(err)["path"])
}

func TestWrap_NilIsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeLogAppendFailure, "unused"))
	assert.NoError(t, Wrapf(nil, CodeLogAppendFailure, "unused %d", 1))
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.Nil(t, FieldsOf(errors.New("plain")))
}

func TestReasonHelpers(t *testing.T) {
	assert.True(t, IsInvalidInput(New(CodeConfigParseInvalidFormat, "bad json")))
	assert.True(t, IsInvalidInput(Errorf(CodeConfigValidateInvalidValue, "sleeptime %d", -1)))
	assert.False(t, IsInvalidInput(New(CodeLockAcquireHeld, "held")))
	assert.True(t, IsConflict(New(CodeConfigEndpointsDuplicate, "dup")))
}

func TestJoin(t *testing.T) {
	assert.NoError(t, Join(nil, nil))

	a := errors.New("a")
	joined := Join(nil, a)
	require.Error(t, joined)
	assert.ErrorIs(t, joined, a)
}
