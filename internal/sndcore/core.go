package sndcore

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/pulsed/pulsed/internal/errors"
	"github.com/pulsed/pulsed/internal/mainloop"
	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/observability/metrics"
	"github.com/pulsed/pulsed/internal/sample"
)

// Config bundles the daemon-lifecycle timers and default-entity naming
// Core needs at construction.
type Config struct {
	DefaultSinkName string
	DefaultSourceName string
	ExitIdleTime time.Duration // < 0 disables the auto-quit-on-no-clients timer
	ModuleIdleTime time.Duration
	UnloadPollInterval time.Duration
	SampleCacheIdle time.Duration
}

// Core is the process-wide owner of every indexed set, the name
// registry, the subscription bus, and the module/client/autoload/
// sample-cache lifecycle. Exactly one Core
// instance drives one mainloop.Loop; nothing here is safe to touch off
// that loop's goroutine.
type Core struct {
	Loop *mainloop.Loop
	Stat *memblock.Stat
	Bus *Bus

	Sinks *IndexedSet[*Sink]
	Sources *IndexedSet[*Source]
	SinkInputs *IndexedSet[*SinkInput]
	SourceOutputs *IndexedSet[*SourceOutput]
	Modules *IndexedSet[*Module]
	Clients *IndexedSet[*Client]
	Autoload *AutoloadTable
	Cache *SampleCache

	names *NameRegistry

	cfg Config
	log *slog.Logger

	coreMetrics *metrics.CoreMetrics
	moduleMetrics *metrics.ModuleMetrics

	factories map[string]ModuleFactory

	unloadTimer *mainloop.TimeEvent
	moduleDefer *mainloop.DeferEvent
	quitTimer *mainloop.TimeEvent
}

// NewCore builds a Core bound to loop, with the given stat accounting
// object and sample loader (may be nil if no lazy sample file loading
// is needed). Any of cm/mm/sm may be nil to run without that metrics
// group registered (e.g. in tests with no prometheus registry).
func NewCore(loop *mainloop.Loop, cfg Config, log *slog.Logger, cm *metrics.CoreMetrics, mm *metrics.ModuleMetrics, sm *metrics.SubscriptionMetrics, loader SampleLoader) *Core {
	stat := memblock.NewStat()
	names := NewNameRegistry()
	names.SetDefaultSink(cfg.DefaultSinkName)
	names.SetDefaultSource(cfg.DefaultSourceName)

	var onPublish func(Facility, Operation)
	if sm != nil {
 onPublish = func(f Facility, op Operation) {
 sm.EventsPublished.WithLabelValues(f.String(), op.String()).Inc()
 }
	}

	c := &Core{
 Loop: loop,
 Stat: stat,
 Sinks: NewIndexedSet[*Sink](),
 Sources: NewIndexedSet[*Source](),
 SinkInputs: NewIndexedSet[*SinkInput](),
 SourceOutputs: NewIndexedSet[*SourceOutput](),
 Modules: NewIndexedSet[*Module](),
 Clients: NewIndexedSet[*Client](),
 Autoload: NewAutoloadTable(),
 names: names,
 cfg: cfg,
 log: log,
 coreMetrics: cm,
 moduleMetrics: mm,
	}
	c.Bus = NewBus(loop, onPublish)
	c.Cache = NewSampleCache(loader, stat, names, c.Bus)

	if cfg.UnloadPollInterval > 0 {
 c.unloadTimer = loop.NewTime(time.Now().Add(cfg.UnloadPollInterval), c.pollIdleModules)
	}
	c.moduleDefer = loop.NewDefer(c.sweepUnloadRequested)
	loop.EnableDefer(c.moduleDefer, false)

	return c
}

// --- Sinks ---

// CreateSink registers a new running sink, assigning it a registry name
// (possibly renamed on collision unless strict) and an index, creating
// its implicit monitor source, and posting a "new" event.
func (c *Core) CreateSink(name string, spec sample.Spec, chanMap sample.ChannelMap, owner *Module, hwOps HardwareVolumeOps, latOps LatencyOps, strict bool) (*Sink, error) {
	sink, err := NewSink(name, spec, chanMap, owner, hwOps, latOps, c.Stat)
	if err != nil {
 return nil, err
	}
	idx := c.Sinks.Put(sink)
	sink.Index = idx
	resolvedName, err := c.names.Register(EntityKindSink, name, idx, strict)
	if err != nil {
 c.Sinks.Remove(idx)
 return nil, err
	}
	sink.Name = resolvedName

	mon, err := NewSource(monitorName(resolvedName), spec, chanMap, owner, sink, c.Stat)
	if err != nil {
 c.Sinks.Remove(idx)
 c.names.Unregister(EntityKindSink, resolvedName)
 return nil, err
	}
	monIdx := c.Sources.Put(mon)
	mon.Index = monIdx
	resolvedMonName, _ := c.names.Register(EntityKindSource, mon.Name, monIdx, false)
	mon.Name = resolvedMonName
	sink.SetMonitor(mon)

	if c.coreMetrics != nil {
 c.coreMetrics.ActiveSources.Inc()
	}
	c.Bus.Post(FacilitySource, OpNew, monIdx)
	c.Bus.Post(FacilitySink, OpNew, idx)
	return sink, nil
}

func monitorName(sinkName string) string { return sinkName + ".monitor" }

// DisconnectSink tears a sink (and its monitor, and every attached
// input) down and removes it from the index/registry.
func (c *Core) DisconnectSink(sink *Sink) {
	if sink.State() == SinkDisconnected {
 return
	}
	if mon := sink.Monitor(); mon != nil {
 c.Sources.Remove(mon.Index)
 c.names.Unregister(EntityKindSource, mon.Name)
 if c.coreMetrics != nil {
 c.coreMetrics.ActiveSources.Dec()
 }
	}
	for _, si := range sink.Inputs() {
 c.removeSinkInputBookkeeping(si)
	}
	sink.Disconnect(c.Bus)
	c.Sinks.Remove(sink.Index)
	c.names.Unregister(EntityKindSink, sink.Name)
}

// LookupSink resolves name: exact registry name, then
// decimal-index fallback, then (if autoloadOK) a single non-reentrant
// autoload attempt.
func (c *Core) LookupSink(name string, autoloadOK bool) (*Sink, error) {
	if idx, ok := c.names.LookupExact(EntityKindSink, name); ok {
 if sink, ok := c.Sinks.Get(idx); ok {
 return sink, nil
 }
	}
	if n, err := strconv.ParseUint(name, 10, 32); err == nil {
 if sink, ok := c.Sinks.Get(uint32(n)); ok {
 return sink, nil
 }
	}
	if autoloadOK {
 if sink, err := c.tryAutoload(name, AutoloadSink); err == nil {
 return sink.(*Sink), nil
 }
	}
	return nil, ErrNoEntity()
}

// DefaultSink returns the configured default sink, falling back to the
// first sink in insertion order.
func (c *Core) DefaultSink() (*Sink, error) {
	if name := c.names.DefaultSink(); name != "" {
 if sink, err := c.LookupSink(name, false); err == nil {
 return sink, nil
 }
	}
	if _, sink, ok := c.Sinks.First(); ok {
 return sink, nil
	}
	return nil, ErrNoEntity()
}

// --- Sources ---

// CreateSource registers a new running, non-monitor source.
func (c *Core) CreateSource(name string, spec sample.Spec, chanMap sample.ChannelMap, owner *Module, strict bool) (*Source, error) {
	src, err := NewSource(name, spec, chanMap, owner, nil, c.Stat)
	if err != nil {
 return nil, err
	}
	idx := c.Sources.Put(src)
	src.Index = idx
	resolvedName, err := c.names.Register(EntityKindSource, name, idx, strict)
	if err != nil {
 c.Sources.Remove(idx)
 return nil, err
	}
	src.Name = resolvedName
	if c.coreMetrics != nil {
 c.coreMetrics.ActiveSources.Inc()
	}
	c.Bus.Post(FacilitySource, OpNew, idx)
	return src, nil
}

// DisconnectSource tears src down, killing attached outputs.
func (c *Core) DisconnectSource(src *Source) {
	if src.State() == SourceDisconnected {
 return
	}
	for _, so := range src.Outputs() {
 c.removeSourceOutputBookkeeping(so)
	}
	src.Disconnect(c.Bus)
	c.Sources.Remove(src.Index)
	c.names.Unregister(EntityKindSource, src.Name)
	if c.coreMetrics != nil {
 c.coreMetrics.ActiveSources.Dec()
	}
}

// LookupSource mirrors LookupSink. Preferring a non-monitor source
// only matters for the ambiguous default case, handled in
// DefaultSource below; an exact-name or index match here is
// unambiguous regardless of kind.
func (c *Core) LookupSource(name string, autoloadOK bool) (*Source, error) {
	if idx, ok := c.names.LookupExact(EntityKindSource, name); ok {
 if src, ok := c.Sources.Get(idx); ok {
 return src, nil
 }
	}
	if n, err := strconv.ParseUint(name, 10, 32); err == nil {
 if src, ok := c.Sources.Get(uint32(n)); ok {
 return src, nil
 }
	}
	if autoloadOK {
 if src, err := c.tryAutoload(name, AutoloadSource); err == nil {
 return src.(*Source), nil
 }
	}
	return nil, ErrNoEntity()
}

// DefaultSource returns the configured default source, else the first
// non-monitor source in insertion order, else the first source of any
// kind.
func (c *Core) DefaultSource() (*Source, error) {
	if name := c.names.DefaultSource(); name != "" {
 if src, err := c.LookupSource(name, false); err == nil {
 return src, nil
 }
	}
	var first *Source
	st := &IterState{}
	for {
 _, src, ok := c.Sources.Next(st)
 if !ok {
 break
 }
 if !src.IsMonitor() {
 return src, nil
 }
 if first == nil {
 first = src
 }
	}
	if first != nil {
 return first, nil
	}
	return nil, ErrNoEntity()
}

// SetDefaultSinkName changes which sink DefaultSink prefers. Does not
// validate that name currently resolves to a running sink; a stale
// default just falls through to the first-sink fallback until one
// registers under that name again.
func (c *Core) SetDefaultSinkName(name string) { c.names.SetDefaultSink(name) }

// SetDefaultSourceName mirrors SetDefaultSinkName for sources.
func (c *Core) SetDefaultSourceName(name string) { c.names.SetDefaultSource(name) }

// --- Autoload ---

func (c *Core) tryAutoload(name string, kind AutoloadKind) (any, error) {
	entry, ok := c.Autoload.Lookup(name, kind)
	if !ok {
 return nil, ErrNoEntity()
	}
	if entry.InAction {
 return nil, ErrNoEntity()
	}
	entry.InAction = true
	defer func() { entry.InAction = false }()

	mod, err := c.LoadModuleByName(entry.ModuleName, entry.ModuleArgs)
	if err != nil {
 return nil, err
	}
	_ = mod

	switch kind {
	case AutoloadSink:
 if idx, ok := c.names.LookupExact(EntityKindSink, name); ok {
 if sink, ok := c.Sinks.Get(idx); ok {
 return sink, nil
 }
 }
	case AutoloadSource:
 if idx, ok := c.names.LookupExact(EntityKindSource, name); ok {
 if src, ok := c.Sources.Get(idx); ok {
 return src, nil
 }
 }
	}
	return nil, ErrNoEntity()
}

// ModuleFactory constructs a ModuleImpl instance for a module-type name.
// Core itself doesn't know how to build concrete module types (that is
// the responsibility of whatever registers device/pipe/network modules
// at startup); LoadModuleByName consults the factories map, populated by
// RegisterModuleFactory.
type ModuleFactory func(args ModArgs) (ModuleImpl, ModuleMeta, error)

// RegisterModuleFactory installs a factory for a module type name (e.g.
// "pipe-sink"), used by LoadModuleByName and by autoload resolution.
func (c *Core) RegisterModuleFactory(name string, factory ModuleFactory) {
	if c.factories == nil {
 c.factories = make(map[string]ModuleFactory)
	}
	c.factories[name] = factory
}

// --- Module lifecycle ---

// LoadModuleByName loads and initializes a module of the given type name
// with argString: registers it in the index,
// invokes Init, and tears back down on failure (wire "init-failed").
func (c *Core) LoadModuleByName(name, argString string) (*Module, error) {
	factory, ok := c.factories[name]
	if !ok {
 if c.moduleMetrics != nil {
 c.moduleMetrics.ModuleLoads.WithLabelValues(name, "unknown-type").Inc()
 }
 return nil, errors.New(errors.NewStd("unknown module type")).
 Component("sndcore").Category(errors.CategoryInitFailed).
 Context("module", name).Build()
	}
	args := ParseModArgs(argString)
	impl, meta, err := factory(args)
	if err != nil {
 if c.moduleMetrics != nil {
 c.moduleMetrics.ModuleLoads.WithLabelValues(name, "factory-error").Inc()
 }
 return nil, errors.New(err).Component("sndcore").Category(errors.CategoryInitFailed).Build()
	}
	mod := NewModule(name, argString, meta, impl, true)
	idx := c.Modules.Put(mod)
	mod.Index = idx

	if err := impl.Init(c, mod); err != nil {
 c.Modules.Remove(idx)
 if c.moduleMetrics != nil {
 c.moduleMetrics.ModuleLoads.WithLabelValues(name, "init-failed").Inc()
 }
 return nil, errors.New(err).Component("sndcore").Category(errors.CategoryInitFailed).Build()
	}
	if c.moduleMetrics != nil {
 c.moduleMetrics.ModuleLoads.WithLabelValues(name, "ok").Inc()
	}
	c.Bus.Post(FacilityModule, OpNew, idx)
	return mod, nil
}

// UnloadModule tears down and removes mod, invoking its Teardown hook.
func (c *Core) UnloadModule(mod *Module, reason string) {
	mod.impl.Teardown(c, mod)
	c.Modules.Remove(mod.Index)
	if c.moduleMetrics != nil {
 c.moduleMetrics.ModuleUnloads.WithLabelValues(mod.Name, reason).Inc()
	}
	c.Bus.Post(FacilityModule, OpRemove, mod.Index)
}

// pollIdleModules is the periodic unload-poll-time timer callback: any
// module at use-count 0, auto-unload, idle past ModuleIdleTime is
// unloaded.
func (c *Core) pollIdleModules(loop *mainloop.Loop, e *mainloop.TimeEvent, deadline time.Time) {
	now := time.Now()
	for _, mod := range c.Modules.Values() {
 if mod.idleExpired(now, c.cfg.ModuleIdleTime) {
 c.UnloadModule(mod, "idle")
 }
	}
	if c.cfg.SampleCacheIdle > 0 {
 c.Cache.EvictIdle(now, c.cfg.SampleCacheIdle)
	}
	loop.RestartTime(e, now.Add(c.cfg.UnloadPollInterval))
}

// sweepUnloadRequested is the deferred event that tears down any module
// that called RequestUnload since the last sweep.
func (c *Core) sweepUnloadRequested(loop *mainloop.Loop, e *mainloop.DeferEvent) {
	for _, mod := range c.Modules.Values() {
 if mod.UnloadRequested() {
 c.UnloadModule(mod, "requested")
 }
	}
	loop.EnableDefer(e, false)
}

// RequestModuleUnload flags mod for teardown at the next deferred sweep
// and arms that sweep.
func (c *Core) RequestModuleUnload(mod *Module) {
	mod.RequestUnload()
	c.Loop.EnableDefer(c.moduleDefer, true)
}

// --- Client lifecycle ---

// AddClient registers a new client and cancels any pending exit-idle
// quit timer: a client arriving while the daemon is waiting out its
// grace period means the daemon is no longer idle.
func (c *Core) AddClient(name string, owner *Module, kill ClientKillFunc) *Client {
	cl := NewClient(name, owner, kill)
	idx := c.Clients.Put(cl)
	cl.Index = idx
	if c.quitTimer != nil {
 c.Loop.RestartTime(c.quitTimer, time.Time{})
 c.quitTimer = nil
	}
	c.Bus.Post(FacilityClient, OpNew, idx)
	return cl
}

// RemoveClient unregisters cl. If this was the last client and
// ExitIdleTime ≥ 0, arms a grace-period quit timer.
func (c *Core) RemoveClient(cl *Client) {
	c.Clients.Remove(cl.Index)
	c.Bus.Post(FacilityClient, OpRemove, cl.Index)
	if c.Clients.Size() == 0 && c.cfg.ExitIdleTime >= 0 {
 c.quitTimer = c.Loop.NewTime(time.Now().Add(c.cfg.ExitIdleTime), func(loop *mainloop.Loop, e *mainloop.TimeEvent, deadline time.Time) {
 loop.Quit(0)
 })
	}
}

// --- Sink-input / source-output bookkeeping ---

// AttachSinkInput indexes si, registers the volume subscription facility
// entry, and bumps the active-input gauge.
func (c *Core) AttachSinkInput(si *SinkInput) {
	idx := c.SinkInputs.Put(si)
	si.Index = idx
	si.EnableSkewLogging(c.log)
	if c.coreMetrics != nil {
 c.coreMetrics.ActiveSinkInputs.Inc()
	}
	c.Bus.Post(FacilitySinkInput, OpNew, idx)
}

func (c *Core) removeSinkInputBookkeeping(si *SinkInput) {
	si.Disconnect(c.Bus)
	if si.sink != nil {
 si.sink.removeInput(si)
	}
	c.SinkInputs.Remove(si.Index)
	if c.coreMetrics != nil {
 c.coreMetrics.ActiveSinkInputs.Dec()
	}
}

// KillSinkInput force-disconnects si via its producer's kill callback.
func (c *Core) KillSinkInput(si *SinkInput) {
	si.Kill()
}

// RemoveSinkInput is the bookkeeping half of a sink-input's teardown,
// called once the producer's kill callback has actually disconnected it
// from its sink.
func (c *Core) RemoveSinkInput(si *SinkInput) { c.removeSinkInputBookkeeping(si) }

// AttachSourceOutput indexes so.
func (c *Core) AttachSourceOutput(so *SourceOutput) {
	idx := c.SourceOutputs.Put(so)
	so.Index = idx
	so.EnableSkewLogging(c.log)
	c.Bus.Post(FacilitySourceOutput, OpNew, idx)
}

func (c *Core) removeSourceOutputBookkeeping(so *SourceOutput) {
	so.Disconnect(c.Bus)
	if so.source != nil {
 so.source.removeOutput(so)
	}
	c.SourceOutputs.Remove(so.Index)
}

// RemoveSourceOutput is the bookkeeping half of a source-output's
// teardown.
func (c *Core) RemoveSourceOutput(so *SourceOutput) { c.removeSourceOutputBookkeeping(so) }

// KillSourceOutput force-disconnects so.
func (c *Core) KillSourceOutput(so *SourceOutput) {
	so.Kill()
}

// --- Sample cache playback wiring ---

// PlaySample resolves name in the cache (loading it lazily if needed)
// and plays it into sink at volume, wiring the one-shot sink-input's
// completion back into Core's bookkeeping.
func (c *Core) PlaySample(name string, sink *Sink, volume sample.CVolume) error {
	entry, err := c.Cache.Lookup(name)
	if err != nil {
 if c.moduleMetrics != nil {
 c.moduleMetrics.SampleCacheMiss.Inc()
 }
 return err
	}
	if c.moduleMetrics != nil {
 c.moduleMetrics.SampleCacheHits.Inc()
	}
	var si *SinkInput
	si, err = Play(entry, sink, volume, c.Loop, c.Stat, func() {
 c.removeSinkInputBookkeeping(si)
	})
	if err != nil {
 return err
	}
	c.AttachSinkInput(si)
	return nil
}
