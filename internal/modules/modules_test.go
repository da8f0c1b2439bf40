package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsed/pulsed/internal/mainloop"
	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/sample"
	"github.com/pulsed/pulsed/internal/sndcore"
)

func newTestCore(t *testing.T) (*sndcore.Core, *mainloop.Loop) {
	t.Helper()
	loop := mainloop.New(nil)
	c := sndcore.NewCore(loop, sndcore.Config{ExitIdleTime: -1}, nil, nil, nil, nil, nil)
	return c, loop
}

func TestNullSinkFactoryCreatesDiscardSink(t *testing.T) {
	c, _ := newTestCore(t)
	c.RegisterModuleFactory("module-null-sink", NullSinkFactory())

	mod, err := c.LoadModuleByName("module-null-sink", "sink_name=discard,rate=48000,channels=2")
	require.NoError(t, err)

	sink, err := c.LookupSink("discard", false)
	require.NoError(t, err)
	assert.Equal(t, uint32(48000), sink.Spec().Rate)
	assert.Equal(t, uint8(2), sink.Spec().Channels)

	c.UnloadModule(mod, "test")
	_, err = c.LookupSink("discard", false)
	assert.Error(t, err, "sink should be gone once its owning module tears down")
}

func TestNullSourceFactoryCreatesSilenceSource(t *testing.T) {
	c, _ := newTestCore(t)
	c.RegisterModuleFactory("module-null-source", NullSourceFactory())

	mod, err := c.LoadModuleByName("module-null-source", "source_name=mic")
	require.NoError(t, err)

	_, err = c.LookupSource("mic", false)
	require.NoError(t, err)

	c.UnloadModule(mod, "test")
	_, err = c.LookupSource("mic", false)
	assert.Error(t, err)
}

func TestLoopbackFactoryRequiresSourceAndSinkArgs(t *testing.T) {
	_, _, err := LoopbackFactory()(sndcore.ParseModArgs(""))
	require.Error(t, err)

	_, _, err = LoopbackFactory()(sndcore.ParseModArgs("source=mic"))
	require.Error(t, err)
}

func TestLoopbackForwardsCapturedAudioToSink(t *testing.T) {
	c, loop := newTestCore(t)
	spec := sample.Spec{Format: sample.FormatS16LE, Rate: 44100, Channels: 2}

	sink, err := c.CreateSink("out", spec, sample.ChannelMapStereo(), nil, nil, nil, true)
	require.NoError(t, err)
	src, err := c.CreateSource("mic", spec, sample.ChannelMapStereo(), nil, true)
	require.NoError(t, err)

	c.RegisterModuleFactory("module-loopback", LoopbackFactory())
	mod, err := c.LoadModuleByName("module-loopback", "source=mic,sink=out")
	require.NoError(t, err)

	payload := make([]byte, 400)
	for i := range payload {
 payload[i] = byte(i)
	}
	blk := memblock.New(len(payload), c.Stat)
	copy(blk.Data(), payload)
	src.Post(memblock.Chunk{Block: blk, Index: 0, Length: len(payload)})
	blk.Unref()

	res := sink.Render(len(payload), c.Bus)
	require.NotNil(t, res.Chunk.Block)
	assert.Equal(t, payload, res.Chunk.Bytes())
	res.Chunk.Block.Unref()

	c.UnloadModule(mod, "test")
	loop.Iterate(false)
}
