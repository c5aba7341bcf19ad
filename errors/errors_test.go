package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesSentinel(t *testing.T) {
	sentinel := New("invalid transition")
	wrapped := Wrapf(sentinel, "start instance %s", "abc")

	assert.True(t, Is(wrapped, sentinel))
	assert.Equal(t, "start instance abc: invalid transition", wrapped.Error())
}

func TestNotFoundHelpers(t *testing.T) {
	err := NewNotFoundError("instance %s", "abc")

	assert.True(t, IsNotFoundError(err))
	assert.False(t, IsInvalidRequestError(err))
	assert.Equal(t, "instance abc: not found", err.Error())
	assert.False(t, IsNotFoundError(nil))
}

func TestInvalidRequestHelpers(t *testing.T) {
	err := NewInvalidRequestError("horizon end %d before start", 3)

	assert.True(t, IsInvalidRequestError(err))
	assert.False(t, IsNotFoundError(err))
	assert.False(t, IsInvalidRequestError(nil))
}

func TestHintsAndDetails(t *testing.T) {
	base := New("days_of_week is empty")
	err := WithHint(base, "pick at least one weekday")
	err = WithDetailf(err, "cadence %s", "cad-1")
	err = Wrap(err, "validate schedule")

	require.True(t, Is(err, base))
	assert.Contains(t, GetAllHints(err), "pick at least one weekday")
	assert.Contains(t, GetAllDetails(err), "cadence cad-1")
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")

	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, "errors_test.go")
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.Nil(t, WithStack(nil))
	assert.Nil(t, WithHint(nil, "hint"))
	assert.Nil(t, WithDetail(nil, "detail"))
}

func ExampleWrap() {
	baseErr := New("unique constraint failed")
	err := Wrap(baseErr, "failed to insert instance")
	fmt.Println(err)
	// Output: failed to insert instance: unique constraint failed
}
