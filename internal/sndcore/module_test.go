package sndcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubModuleImpl struct {
	initErr error
	torn bool
}

func (s *stubModuleImpl) Init(c *Core, m *Module) error { return s.initErr }
func (s *stubModuleImpl) Teardown(c *Core, m *Module) { s.torn = true }

func TestModuleUseCountNeverGoesNegative(t *testing.T) {
	m := NewModule("pipe-sink", "", ModuleMeta{}, &stubModuleImpl{}, true)
	m.DecUse()
	assert.Equal(t, 0, m.UseCount())
	m.IncUse()
	m.IncUse()
	assert.Equal(t, 2, m.UseCount())
	m.DecUse()
	assert.Equal(t, 1, m.UseCount())
}

func TestModuleIdleExpired(t *testing.T) {
	m := NewModule("pipe-sink", "", ModuleMeta{}, &stubModuleImpl{}, true)
	m.IncUse()
	assert.False(t, m.idleExpired(time.Now(), 0), "still in use")

	m.DecUse()
	assert.True(t, m.idleExpired(time.Now().Add(time.Hour), time.Minute))
	assert.False(t, m.idleExpired(time.Now(), time.Hour))
}

func TestModuleIdleExpiredRequiresAutoUnload(t *testing.T) {
	m := NewModule("pipe-sink", "", ModuleMeta{}, &stubModuleImpl{}, false)
	assert.False(t, m.idleExpired(time.Now().Add(time.Hour), 0))
}

func TestModuleRequestUnload(t *testing.T) {
	m := NewModule("pipe-sink", "", ModuleMeta{}, &stubModuleImpl{}, true)
	assert.False(t, m.UnloadRequested())
	m.RequestUnload()
	assert.True(t, m.UnloadRequested())
}
