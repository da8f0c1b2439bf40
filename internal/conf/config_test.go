package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsed/pulsed/internal/sample"
)

func TestLoadWritesDefaultConfigOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	settings, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "default", settings.Core.DefaultSinkName)
	assert.Equal(t, uint32(44100), settings.Core.DefaultSampleRate)
	assert.Equal(t, 20, settings.Daemon.ExitIdleTimeSec)

	again, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, settings.Core.DefaultSinkName, again.Core.DefaultSinkName)
}

func TestCoreSettingsDefaultSpecFallsBackOnBadFormat(t *testing.T) {
	c := CoreSettings{DefaultSampleFormat: "bogus"}
	spec := c.DefaultSpec()
	assert.Equal(t, sample.FormatS16LE, spec.Format)
	assert.Equal(t, uint32(44100), spec.Rate)
	assert.Equal(t, uint8(2), spec.Channels)
}

func TestCoreSettingsDefaultSpecParsesFormat(t *testing.T) {
	c := CoreSettings{DefaultSampleFormat: "float32le", DefaultSampleRate: 48000, DefaultChannels: 1}
	spec := c.DefaultSpec()
	assert.Equal(t, sample.FormatFloat32LE, spec.Format)
	assert.Equal(t, uint32(48000), spec.Rate)
	assert.Equal(t, uint8(1), spec.Channels)
}
