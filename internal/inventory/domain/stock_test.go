package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortfallErrorUnwrap(t *testing.T) {
	missing := &ShortfallError{ProductID: "p1", Requested: 1, Missing: true}
	short := &ShortfallError{ProductID: "p2", Requested: 10, Available: 3}

	assert.True(t, errors.Is(missing, ErrProductNotFound))
	assert.False(t, errors.Is(missing, ErrInsufficientStock))
	assert.True(t, errors.Is(short, ErrInsufficientStock))
	assert.Contains(t, short.Error(), "requested 10, available 3")
}
