package sndcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/sample"
)

func TestSinkAttachInputEnforcesCap(t *testing.T) {
	stat := memblock.NewStat()
	sink, err := NewSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, stat)
	require.NoError(t, err)

	for i := 0; i < MaxSinkInputs; i++ {
 prod := &fakeSinkInputProducer{data: []byte{}, stat: stat}
 si, err := NewSinkInput("s", testSpec, sample.ChannelMapStereo(), sink, prod, false, stat)
 require.NoError(t, err)
 require.NoError(t, sink.AttachInput(si))
	}

	prod := &fakeSinkInputProducer{data: []byte{}, stat: stat}
	si, _ := NewSinkInput("overflow", testSpec, sample.ChannelMapStereo(), sink, prod, false, stat)
	err = sink.AttachInput(si)
	require.Error(t, err)
}

func TestSinkAttachInputRejectsWhenDisconnected(t *testing.T) {
	stat := memblock.NewStat()
	sink, _ := NewSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, stat)
	sink.Disconnect(nil)

	prod := &fakeSinkInputProducer{data: []byte{}, stat: stat}
	si, _ := NewSinkInput("s", testSpec, sample.ChannelMapStereo(), sink, prod, false, stat)
	err := sink.AttachInput(si)
	require.Error(t, err)
}

func TestSinkRenderSingleInputAppliesVolume(t *testing.T) {
	stat := memblock.NewStat()
	sink, _ := NewSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, stat)

	prod := &fakeSinkInputProducer{data: []byte{0, 0x10, 0, 0x10}, stat: stat} // one stereo frame, s16le
	si, _ := NewSinkInput("s1", testSpec, sample.ChannelMapStereo(), sink, prod, false, stat)
	require.NoError(t, sink.AttachInput(si))

	res := sink.Render(4, nil)
	require.Equal(t, 4, res.Chunk.Length)
	assert.Equal(t, []byte{0, 0x10, 0, 0x10}, res.Chunk.Bytes())
	res.Chunk.Block.Unref()
}

func TestSinkRenderMixesMultipleInputs(t *testing.T) {
	stat := memblock.NewStat()
	sink, _ := NewSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, stat)

	prodA := &fakeSinkInputProducer{data: []byte{0, 0x10, 0, 0x10}, stat: stat}
	siA, _ := NewSinkInput("a", testSpec, sample.ChannelMapStereo(), sink, prodA, false, stat)
	require.NoError(t, sink.AttachInput(siA))

	prodB := &fakeSinkInputProducer{data: []byte{0, 0x10, 0, 0x10}, stat: stat}
	siB, _ := NewSinkInput("b", testSpec, sample.ChannelMapStereo(), sink, prodB, false, stat)
	require.NoError(t, sink.AttachInput(siB))

	res := sink.Render(4, nil)
	require.Equal(t, 4, res.Chunk.Length)
	// two identical unity-volume streams sum, doubling the sample value.
	assert.Equal(t, []byte{0, 0x20, 0, 0x20}, res.Chunk.Bytes())
	res.Chunk.Block.Unref()
}

func TestSinkRenderPostsToMonitor(t *testing.T) {
	stat := memblock.NewStat()
	sink, _ := NewSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, stat)
	mon, err := NewSource("out.monitor", testSpec, sample.ChannelMapStereo(), nil, sink, stat)
	require.NoError(t, err)
	sink.SetMonitor(mon)

	var captured [][]byte
	soProd := &fakeSourceOutputProducer{}
	so, err := NewSourceOutput("tap", testSpec, sample.ChannelMapStereo(), mon, soProd, false, stat)
	require.NoError(t, err)
	mon.AttachOutput(so)

	prod := &fakeSinkInputProducer{data: []byte{1, 2, 3, 4}, stat: stat}
	si, _ := NewSinkInput("s1", testSpec, sample.ChannelMapStereo(), sink, prod, false, stat)
	require.NoError(t, sink.AttachInput(si))

	res := sink.Render(4, nil)
	require.Equal(t, 4, res.Chunk.Length)
	res.Chunk.Block.Unref()

	captured = soProd.pushed
	require.Len(t, captured, 1)
}

func TestSinkRenderReportsUnderrunOnPeekFailureAfterPlaying(t *testing.T) {
	stat := memblock.NewStat()
	sink, _ := NewSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, stat)

	prod := &fakeSinkInputProducer{data: []byte{1, 2, 3, 4}, stat: stat}
	si, _ := NewSinkInput("s1", testSpec, sample.ChannelMapStereo(), sink, prod, false, stat)
	require.NoError(t, sink.AttachInput(si))

	res := sink.Render(4, nil)
	res.Chunk.Block.Unref()
	assert.Empty(t, res.Underruns)

	res = sink.Render(4, nil)
	assert.Contains(t, res.Underruns, si.Index)
	assert.Equal(t, 1, prod.underruns)
}

func TestSinkRenderFullPadsShortfallWithSilence(t *testing.T) {
	stat := memblock.NewStat()
	sink, _ := NewSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, stat)

	prod := &fakeSinkInputProducer{data: []byte{1, 2, 3, 4}, stat: stat}
	si, _ := NewSinkInput("s1", testSpec, sample.ChannelMapStereo(), sink, prod, false, stat)
	require.NoError(t, sink.AttachInput(si))

	chunk := sink.RenderFull(8, nil)
	require.Equal(t, 8, chunk.Length)
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, chunk.Bytes())
	chunk.Block.Unref()
}

func TestSinkDisconnectKillsInputsAndMonitor(t *testing.T) {
	stat := memblock.NewStat()
	sink, _ := NewSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, stat)
	mon, _ := NewSource("out.monitor", testSpec, sample.ChannelMapStereo(), nil, sink, stat)
	sink.SetMonitor(mon)

	prod := &fakeSinkInputProducer{data: []byte{}, stat: stat}
	si, _ := NewSinkInput("s1", testSpec, sample.ChannelMapStereo(), sink, prod, false, stat)
	require.NoError(t, sink.AttachInput(si))

	sink.Disconnect(nil)
	assert.True(t, prod.killed)
	assert.Equal(t, SinkDisconnected, sink.State())
	assert.Equal(t, SourceDisconnected, mon.State())
}

type fakeHWVolume struct{ v sample.CVolume }

func (f *fakeHWVolume) SetHardwareVolume(v sample.CVolume) { f.v = v }
func (f *fakeHWVolume) GetHardwareVolume() sample.CVolume { return f.v }

func TestSinkVolumeAutoPrefersHardwareWhenPresent(t *testing.T) {
	stat := memblock.NewStat()
	hw := &fakeHWVolume{v: sample.CVolumeNorm(2)}
	sink, _ := NewSink("out", testSpec, sample.ChannelMapStereo(), nil, hw, nil, stat)

	half := sample.CVolume{Channels: 2}
	half.SetScalar(sample.VolumeNorm / 2)
	sink.SetVolume(VolumeModeAuto, half, nil)

	assert.Equal(t, half, hw.v)
	assert.Equal(t, half, sink.GetVolume(VolumeModeAuto))
}
