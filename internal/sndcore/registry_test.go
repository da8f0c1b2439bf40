package sndcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsed/pulsed/internal/errors"
)

func TestNameRegistryRegisterStrictCollision(t *testing.T) {
	r := NewNameRegistry()
	_, err := r.Register(EntityKindSink, "foo", 0, true)
	require.NoError(t, err)

	_, err = r.Register(EntityKindSink, "foo", 1, true)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryExist))
}

func TestNameRegistryRegisterNonStrictRenames(t *testing.T) {
	r := NewNameRegistry()
	name, err := r.Register(EntityKindSink, "foo", 0, false)
	require.NoError(t, err)
	assert.Equal(t, "foo", name)

	name, err = r.Register(EntityKindSink, "foo", 1, false)
	require.NoError(t, err)
	assert.Equal(t, "foo1", name)

	name, err = r.Register(EntityKindSink, "foo", 2, false)
	require.NoError(t, err)
	assert.Equal(t, "foo2", name)
}

func TestNameRegistryKindsAreIndependent(t *testing.T) {
	r := NewNameRegistry()
	_, err := r.Register(EntityKindSink, "dflt", 0, true)
	require.NoError(t, err)
	_, err = r.Register(EntityKindSource, "dflt", 0, true)
	require.NoError(t, err, "same name under a different kind must not collide")
}

func TestNameRegistryLookupExactAndUnregister(t *testing.T) {
	r := NewNameRegistry()
	r.Register(EntityKindSink, "foo", 5, true)

	idx, ok := r.LookupExact(EntityKindSink, "foo")
	require.True(t, ok)
	assert.Equal(t, uint32(5), idx)

	r.Unregister(EntityKindSink, "foo")
	_, ok = r.LookupExact(EntityKindSink, "foo")
	assert.False(t, ok)
}

func TestNameRegistryDefaults(t *testing.T) {
	r := NewNameRegistry()
	assert.Equal(t, "", r.DefaultSink())
	r.SetDefaultSink("alsa-out")
	assert.Equal(t, "alsa-out", r.DefaultSink())
	r.SetDefaultSource("alsa-in")
	assert.Equal(t, "alsa-in", r.DefaultSource())
}
