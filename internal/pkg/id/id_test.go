package id

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	a, b := New(), New()

	assert.Len(t, a, ulid.EncodedSize)
	assert.NotEqual(t, a, b)
	_, err := ulid.ParseStrict(a)
	require.NoError(t, err)
}
