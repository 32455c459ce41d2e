package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	require.NoError(t, m.Set(ctx, "k", []byte(`"v"`)))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"v"`, string(got))

	// Returned bytes are a copy
	got[0] = 'x'
	again, _ := m.Get(ctx, "k")
	assert.Equal(t, `"v"`, string(again))

	require.NoError(t, m.Delete(ctx, "k"))
	require.NoError(t, m.Delete(ctx, "k"))
	_, err = m.Get(ctx, "k")
	assert.True(t, IsNotFound(err))
}

func TestMemory_Keys(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "b", []byte("1")))
	require.NoError(t, m.Set(ctx, "a", []byte("2")))

	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestMemory_Closed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Close())

	assert.ErrorIs(t, m.Ping(ctx), ErrClosed)
	assert.ErrorIs(t, m.Set(ctx, "k", nil), ErrClosed)
	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLoadSave(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	got, err := Load(ctx, m, KeyRecentBangs, []string{})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, Save(ctx, m, KeyRecentBangs, []string{"gh", "g"}))
	got, err = Load(ctx, m, KeyRecentBangs, []string{})
	require.NoError(t, err)
	assert.Equal(t, []string{"gh", "g"}, got)
}

func TestLoad_MalformedReturnsDefault(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, KeyRecentBangs, []byte("{not json")))

	got, err := Load(ctx, m, KeyRecentBangs, []string{"fallback"})
	assert.Equal(t, []string{"fallback"}, got)
	require.Error(t, err)
	assert.True(t, IsDecode(err))

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, KeyRecentBangs, de.Key)
}

func TestErrors(t *testing.T) {
	err := NewNotFoundError("key", "abc")
	assert.Equal(t, "key not found: abc", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, IsNotFound(errors.New("other")))
}
