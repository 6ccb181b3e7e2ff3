package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	base := errors.New("503 service unavailable")

	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(base))
	assert.True(t, IsTransient(Transient("embed", base)))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", Transient("embed", base))))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(context.Canceled))
	assert.Nil(t, Transient("embed", nil))
}

func TestTransientDoesNotDoubleWrap(t *testing.T) {
	err := Transient("classify", errors.New("timeout"))
	again := Transient("answer", err)
	assert.Same(t, err, again)
	assert.Equal(t, "classify: transient: timeout", err.Error())
	assert.ErrorIs(t, again, errors.Unwrap(err))
}
