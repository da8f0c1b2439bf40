package sndcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/sample"
)

func TestSourcePostFansToEveryOutputInOrder(t *testing.T) {
	stat := memblock.NewStat()
	src, err := NewSource("mic", testSpec, sample.ChannelMapStereo(), nil, nil, stat)
	require.NoError(t, err)
	assert.False(t, src.IsMonitor())

	var order []string
	p1 := &fakeSourceOutputProducer{}
	so1, err := NewSourceOutput("o1", testSpec, sample.ChannelMapStereo(), src, p1, false, stat)
	require.NoError(t, err)
	src.AttachOutput(so1)

	p2 := &fakeSourceOutputProducer{}
	so2, err := NewSourceOutput("o2", testSpec, sample.ChannelMapStereo(), src, p2, false, stat)
	require.NoError(t, err)
	src.AttachOutput(so2)

	b := memblock.New(4, stat)
	copy(b.Data(), []byte{1, 2, 3, 4})
	src.Post(memblock.Chunk{Block: b, Index: 0, Length: 4})

	require.Len(t, p1.pushed, 1)
	require.Len(t, p2.pushed, 1)
	assert.Equal(t, []byte{1, 2, 3, 4}, p1.pushed[0])
	_ = order
}

func TestSourceIsMonitor(t *testing.T) {
	stat := memblock.NewStat()
	sink, _ := NewSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, stat)
	mon, err := NewSource("out.monitor", testSpec, sample.ChannelMapStereo(), nil, sink, stat)
	require.NoError(t, err)
	assert.True(t, mon.IsMonitor())
}

func TestSourceDisconnectKillsOutputs(t *testing.T) {
	stat := memblock.NewStat()
	src, _ := NewSource("mic", testSpec, sample.ChannelMapStereo(), nil, nil, stat)
	p := &fakeSourceOutputProducer{}
	so, _ := NewSourceOutput("o1", testSpec, sample.ChannelMapStereo(), src, p, false, stat)
	src.AttachOutput(so)

	src.Disconnect(nil)
	assert.True(t, p.killed)
	assert.Equal(t, SourceDisconnected, src.State())
	assert.NotPanics(t, func() { src.Disconnect(nil) })
}
