package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryOfUnwrapsTaskError(t *testing.T) {
	err := New(CategoryTimeout, errors.New("rag call exceeded deadline"))
	assert.Equal(t, CategoryTimeout, CategoryOf(err))
}

func TestCategoryOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CategoryInternal, CategoryOf(errors.New("boom")))
}

func TestNewReturnsNilForNilErr(t *testing.T) {
	assert.NoError(t, New(CategoryInvalidInput, nil))
}

func TestTaskErrorUnwrapsToSentinel(t *testing.T) {
	err := New(CategoryNotFound, ErrNotFound)
	assert.True(t, errors.Is(err, ErrNotFound))
}
