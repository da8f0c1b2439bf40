package sndcore

import "time"

// ModuleImpl is the plug-in interface every module implements: Init
// registers every entity the module owns before returning; Teardown
// disconnects every entity it owns before returning.
type ModuleImpl interface {
	Init(core *Core, m *Module) error
	Teardown(core *Core, m *Module)
}

// ModuleMeta is static descriptive metadata a module reports.
type ModuleMeta struct {
	Author string
	Description string
	Usage string
	Version string
}

// Module is a loaded plug-in instance: its argument string, use-count,
// and auto-unload flag.
type Module struct {
	Index uint32
	Name string // the module type name, e.g. "pipe-sink"
	Args string
	Meta ModuleMeta

	impl ModuleImpl

	useCount int
	autoUnload bool
	unloadRequested bool
	lastUsed time.Time
}

// NewModule constructs a module record. Init is not called here; Core's
// LoadModuleByName calls it once the module is indexed so impl.Init can see a
// valid *Module.Index.
func NewModule(name, args string, meta ModuleMeta, impl ModuleImpl, autoUnload bool) *Module {
	return &Module{
 Name: name,
 Args: args,
 Meta: meta,
 impl: impl,
 autoUnload: autoUnload,
 lastUsed: time.Now(),
	}
}

// UseCount returns the module's current reference count.
func (m *Module) UseCount() int { return m.useCount }

// IncUse increments the module's use-count and refreshes its
// last-used timestamp, used whenever an entity or client starts
// depending on this module.
func (m *Module) IncUse() {
	m.useCount++
	m.lastUsed = time.Now()
}

// DecUse decrements the use-count (floored at 0) and refreshes
// last-used, so the idle clock restarts from the moment of last release
// rather than last acquire.
func (m *Module) DecUse() {
	if m.useCount > 0 {
 m.useCount--
	}
	m.lastUsed = time.Now()
}

// RequestUnload flags the module for asynchronous teardown at the next
// deferred sweep.
func (m *Module) RequestUnload() { m.unloadRequested = true }

// UnloadRequested reports whether RequestUnload was called.
func (m *Module) UnloadRequested() bool { return m.unloadRequested }

// idleExpired reports whether the module is eligible for the periodic
// idle-unload sweep: zero use-count, auto-unload enabled, and idle for
// at least idleTime.
func (m *Module) idleExpired(now time.Time, idleTime time.Duration) bool {
	return m.useCount == 0 && m.autoUnload && now.Sub(m.lastUsed) >= idleTime
}
