package deity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBuiltin(t *testing.T) {
	r := New(nil)
	temple, err := r.Resolve("mazu")
	require.NoError(t, err)
	assert.Equal(t, "Mazu", temple)
}

func TestResolveUnknownDeity(t *testing.T) {
	r := New(nil)
	_, err := r.Resolve("nonexistent")
	assert.Error(t, err)
}

func TestOverrideReplacesBuiltin(t *testing.T) {
	r := New(map[string]string{"mazu": "CustomMazu"})
	temple, err := r.Resolve("mazu")
	require.NoError(t, err)
	assert.Equal(t, "CustomMazu", temple)
}
