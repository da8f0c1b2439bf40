package sndcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsed/pulsed/internal/mainloop"
	"github.com/pulsed/pulsed/internal/sample"
)

func newTestCore(cfg Config) (*Core, *mainloop.Loop) {
	loop := mainloop.New(nil)
	if cfg.ExitIdleTime == 0 {
 cfg.ExitIdleTime = -1
	}
	c := NewCore(loop, cfg, nil, nil, nil, nil, nil)
	return c, loop
}

func TestCoreCreateSinkRegistersMonitorSource(t *testing.T) {
	c, _ := newTestCore(Config{})
	sink, err := c.CreateSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), sink.Index)
	assert.NotNil(t, sink.Monitor())

	mon := sink.Monitor()
	assert.Equal(t, "out.monitor", mon.Name)
	_, ok := c.Sources.Get(mon.Index)
	assert.True(t, ok)
}

func TestCoreCreateSinkNameCollisionRenames(t *testing.T) {
	c, _ := newTestCore(Config{})
	s1, err := c.CreateSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, false)
	require.NoError(t, err)
	s2, err := c.CreateSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "out", s1.Name)
	assert.Equal(t, "out1", s2.Name)
}

func TestCoreLookupSinkByNameAndIndex(t *testing.T) {
	c, _ := newTestCore(Config{})
	sink, err := c.CreateSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, true)
	require.NoError(t, err)

	got, err := c.LookupSink("out", false)
	require.NoError(t, err)
	assert.Equal(t, sink, got)

	got, err = c.LookupSink("0", false)
	require.NoError(t, err)
	assert.Equal(t, sink, got)

	_, err = c.LookupSink("missing", false)
	require.Error(t, err)
}

func TestCoreDefaultSinkFallsBackToFirst(t *testing.T) {
	c, _ := newTestCore(Config{})
	sink, err := c.CreateSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, true)
	require.NoError(t, err)

	got, err := c.DefaultSink()
	require.NoError(t, err)
	assert.Equal(t, sink, got)
}

func TestCoreDefaultSinkPrefersConfiguredName(t *testing.T) {
	c, _ := newTestCore(Config{DefaultSinkName: "preferred"})
	_, err := c.CreateSink("other", testSpec, sample.ChannelMapStereo(), nil, nil, nil, true)
	require.NoError(t, err)
	preferred, err := c.CreateSink("preferred", testSpec, sample.ChannelMapStereo(), nil, nil, nil, true)
	require.NoError(t, err)

	got, err := c.DefaultSink()
	require.NoError(t, err)
	assert.Equal(t, preferred, got)
}

func TestCoreDisconnectSinkRemovesMonitor(t *testing.T) {
	c, _ := newTestCore(Config{})
	sink, err := c.CreateSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, true)
	require.NoError(t, err)
	monIdx := sink.Monitor().Index

	c.DisconnectSink(sink)
	_, ok := c.Sources.Get(monIdx)
	assert.False(t, ok)
	_, ok = c.Sinks.Get(sink.Index)
	assert.False(t, ok)
}

func TestCoreKillSinkInputFreesAttachCapForReattach(t *testing.T) {
	c, _ := newTestCore(Config{})
	sink, err := c.CreateSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, true)
	require.NoError(t, err)

	for i := 0; i < MaxSinkInputs; i++ {
 prod := &fakeSinkInputProducer{data: []byte{}, stat: c.Stat}
 si, err := NewSinkInput("s", testSpec, sample.ChannelMapStereo(), sink, prod, false, c.Stat)
 require.NoError(t, err)
 require.NoError(t, sink.AttachInput(si))
 c.AttachSinkInput(si)
	}

	// killing and bookkeeping-removing one input must detach it from the
	// sink's own list too, or the cap stays permanently exhausted even
	// though the sink-input is long gone from every index.
	first := sink.Inputs()[0]
	c.KillSinkInput(first)
	c.RemoveSinkInput(first)
	assert.Len(t, sink.Inputs(), MaxSinkInputs-1)

	prod := &fakeSinkInputProducer{data: []byte{}, stat: c.Stat}
	si, err := NewSinkInput("overflow", testSpec, sample.ChannelMapStereo(), sink, prod, false, c.Stat)
	require.NoError(t, err)
	assert.NoError(t, sink.AttachInput(si), "cap should have room again after the removal above")
}

func TestCoreDefaultSourcePrefersNonMonitor(t *testing.T) {
	c, _ := newTestCore(Config{})
	_, err := c.CreateSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, true)
	require.NoError(t, err)
	real, err := c.CreateSource("mic", testSpec, sample.ChannelMapStereo(), nil, true)
	require.NoError(t, err)

	got, err := c.DefaultSource()
	require.NoError(t, err)
	assert.Equal(t, real, got)
}

type stubFactoryImpl struct {
	initErr error
	initHook func(*Core, *Module)
}

func (s *stubFactoryImpl) Init(c *Core, m *Module) error {
	if s.initHook != nil {
 s.initHook(c, m)
	}
	return s.initErr
}
func (s *stubFactoryImpl) Teardown(c *Core, m *Module) {}

func TestCoreLoadModuleByNameUnknownType(t *testing.T) {
	c, _ := newTestCore(Config{})
	_, err := c.LoadModuleByName("does-not-exist", "")
	require.Error(t, err)
}

func TestCoreLoadModuleAndAutoloadResolvesSink(t *testing.T) {
	c, _ := newTestCore(Config{})
	c.RegisterModuleFactory("module-null-sink", func(args ModArgs) (ModuleImpl, ModuleMeta, error) {
 return &stubFactoryImpl{initHook: func(core *Core, m *Module) {
 core.CreateSink("autosink", testSpec, sample.ChannelMapStereo(), m, nil, nil, true)
 }}, ModuleMeta{}, nil
	})
	c.Autoload.Add("autosink", AutoloadSink, "module-null-sink", "")

	sink, err := c.LookupSink("autosink", true)
	require.NoError(t, err)
	assert.Equal(t, "autosink", sink.Name)
	assert.Equal(t, 1, c.Modules.Size())
}

func TestCoreUnloadModuleInvokesTeardown(t *testing.T) {
	c, _ := newTestCore(Config{})
	torn := false
	c.RegisterModuleFactory("mod", func(args ModArgs) (ModuleImpl, ModuleMeta, error) {
 return &teardownTrackingImpl{torn: &torn}, ModuleMeta{}, nil
	})
	mod, err := c.LoadModuleByName("mod", "")
	require.NoError(t, err)

	c.UnloadModule(mod, "test")
	assert.True(t, torn)
	_, ok := c.Modules.Get(mod.Index)
	assert.False(t, ok)
}

type teardownTrackingImpl struct{ torn *bool }

func (t *teardownTrackingImpl) Init(c *Core, m *Module) error { return nil }
func (t *teardownTrackingImpl) Teardown(c *Core, m *Module) { *t.torn = true }

func TestCorePollIdleModulesUnloadsExpiredModules(t *testing.T) {
	c, _ := newTestCore(Config{ModuleIdleTime: time.Millisecond, UnloadPollInterval: time.Hour})
	c.RegisterModuleFactory("mod", func(args ModArgs) (ModuleImpl, ModuleMeta, error) {
 return &stubFactoryImpl{}, ModuleMeta{}, nil
	})
	mod, err := c.LoadModuleByName("mod", "")
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	c.pollIdleModules(c.Loop, c.unloadTimer, time.Now())
	_, ok := c.Modules.Get(mod.Index)
	assert.False(t, ok, "idle module should have been unloaded")
}

func TestCoreRequestModuleUnloadSweepsOnNextIteration(t *testing.T) {
	c, loop := newTestCore(Config{})
	c.RegisterModuleFactory("mod", func(args ModArgs) (ModuleImpl, ModuleMeta, error) {
 return &stubFactoryImpl{}, ModuleMeta{}, nil
	})
	mod, err := c.LoadModuleByName("mod", "")
	require.NoError(t, err)

	c.RequestModuleUnload(mod)
	_, ok := c.Modules.Get(mod.Index)
	assert.True(t, ok, "unload is deferred, not immediate")

	loop.Iterate(false)
	_, ok = c.Modules.Get(mod.Index)
	assert.False(t, ok)
}

func TestCoreAddAndRemoveClient(t *testing.T) {
	c, _ := newTestCore(Config{ExitIdleTime: time.Hour})
	cl := c.AddClient("native", nil, nil)
	assert.Equal(t, 1, c.Clients.Size())

	c.RemoveClient(cl)
	assert.Equal(t, 0, c.Clients.Size())
}

func TestCorePlaySampleAttachesAndCleansUpSinkInput(t *testing.T) {
	c, loop := newTestCore(Config{})
	sink, err := c.CreateSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, true)
	require.NoError(t, err)

	chunk := chunkFromBytes([]byte{1, 2, 3, 4}, c.Stat)
	c.Cache.Add("click", testSpec, chunk, sample.CVolumeNorm(2))

	err = c.PlaySample("click", sink, sample.CVolumeNorm(2))
	require.NoError(t, err)
	assert.Equal(t, 1, c.SinkInputs.Size())

	res := sink.Render(4, c.Bus)
	res.Chunk.Block.Unref()
	loop.Iterate(false)

	assert.Equal(t, 0, c.SinkInputs.Size(), "one-shot sink-input removed once playback is exhausted")
}
