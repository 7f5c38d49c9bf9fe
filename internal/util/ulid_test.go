package util

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID(t *testing.T) {
	a := NewULID()
	b := NewULID()
	assert.Len(t, a, ulid.EncodedSize)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b)

	_, err := ulid.Parse(a)
	require.NoError(t, err)
}

func TestNewULIDAt_EncodesTime(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	id, err := ulid.Parse(NewULIDAt(at))
	require.NoError(t, err)
	assert.Equal(t, uint64(at.UnixMilli()), id.Time())
}
