package sndcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseModArgsBasic(t *testing.T) {
	a := ParseModArgs("device=hw:0,rate=44100, channels=2")
	assert.Equal(t, "hw:0", a["device"])
	assert.Equal(t, "44100", a["rate"])
	assert.Equal(t, "2", a["channels"])
}

func TestParseModArgsEmpty(t *testing.T) {
	a := ParseModArgs("")
	assert.Empty(t, a)
}

func TestParseModArgsBareFlag(t *testing.T) {
	a := ParseModArgs("verbose,device=hw:0")
	v, ok := a.Get("verbose")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestModArgsGetDefault(t *testing.T) {
	a := ParseModArgs("rate=44100")
	assert.Equal(t, "44100", a.GetDefault("rate", "48000"))
	assert.Equal(t, "48000", a.GetDefault("missing", "48000"))
}
