package sndcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientKillInvokesHook(t *testing.T) {
	killed := false
	c := NewClient("native-client", nil, func() { killed = true })
	assert.NotEmpty(t, c.ID)
	c.Kill()
	assert.True(t, killed)
}

func TestClientKillNoopWithoutHook(t *testing.T) {
	c := NewClient("native-client", nil, nil)
	assert.NotPanics(t, func() { c.Kill() })
}

func TestClientIDsAreUnique(t *testing.T) {
	a := NewClient("a", nil, nil)
	b := NewClient("b", nil, nil)
	assert.NotEqual(t, a.ID, b.ID)
}
