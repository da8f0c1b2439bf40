package sndcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoloadTableLookupAndRemove(t *testing.T) {
	tbl := NewAutoloadTable()
	idx := tbl.Add("alsa_out", AutoloadSink, "module-alsa-sink", "device=hw:0")

	e, ok := tbl.Lookup("alsa_out", AutoloadSink)
	require.True(t, ok)
	assert.Equal(t, idx, e.Index)
	assert.Equal(t, "module-alsa-sink", e.ModuleName)

	_, ok = tbl.Lookup("alsa_out", AutoloadSource)
	assert.False(t, ok, "kind is part of the key")

	tbl.Remove("alsa_out", AutoloadSink)
	_, ok = tbl.Lookup("alsa_out", AutoloadSink)
	assert.False(t, ok)
}

func TestAutoloadTableList(t *testing.T) {
	tbl := NewAutoloadTable()
	tbl.Add("a", AutoloadSink, "mod", "")
	tbl.Add("b", AutoloadSource, "mod", "")
	assert.Len(t, tbl.List(), 2)
}
