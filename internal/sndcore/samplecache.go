package sndcore

import (
	"time"

	"github.com/pulsed/pulsed/internal/errors"
	"github.com/pulsed/pulsed/internal/mainloop"
	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/sample"
)

// CacheEntry is one named PCM clip. Lazy entries defer
// loading their chunk until first playback.
type CacheEntry struct {
	Index uint32
	Name string
	Spec sample.Spec
	Chunk memblock.Chunk
	Volume sample.CVolume
	Lazy bool
	Filename string
	LastUsed time.Time

	loaded bool
}

// SampleLoader loads a lazy entry's PCM data from its filename the first
// time it's played. Out of this package's scope is *which* file formats
// it understands (explicitly carves sound-file loading out); the
// cache only needs something implementing this signature.
type SampleLoader func(filename string) (memblock.Chunk, sample.Spec, error)

// SampleCache is the named-sample registry behind the play-sample
// protocol command.
type SampleCache struct {
	set *IndexedSet[*CacheEntry]
	byName map[string]uint32
	loader SampleLoader
	stat *memblock.Stat
	registry *NameRegistry
	bus *Bus
}

// NewSampleCache builds an empty cache. loader may be nil if no lazy
// entries will ever be registered.
func NewSampleCache(loader SampleLoader, stat *memblock.Stat, registry *NameRegistry, bus *Bus) *SampleCache {
	return &SampleCache{
 set: NewIndexedSet[*CacheEntry](),
 byName: make(map[string]uint32),
 loader: loader,
 stat: stat,
 registry: registry,
 bus: bus,
	}
}

// Add registers (or replaces) name with an already-loaded chunk,
// incrementing chunk's refcount. Emits "new" or "change" depending on
// whether name already existed.
func (c *SampleCache) Add(name string, spec sample.Spec, chunk memblock.Chunk, volume sample.CVolume) uint32 {
	chunk.Block.Ref()
	if idx, exists := c.byName[name]; exists {
 e, _ := c.set.Get(idx)
 if e.loaded {
 e.Chunk.Block.Unref()
 }
 e.Spec, e.Chunk, e.Volume, e.Lazy, e.loaded = spec, chunk, volume, false, true
 e.LastUsed = time.Now()
 if c.bus != nil {
 c.bus.Post(FacilitySampleCache, OpChange, idx)
 }
 return idx
	}
	e := &CacheEntry{Name: name, Spec: spec, Chunk: chunk, Volume: volume, loaded: true, LastUsed: time.Now()}
	idx := c.set.Put(e)
	e.Index = idx
	c.byName[name] = idx
	if c.registry != nil {
 c.registry.Register(EntityKindSample, name, idx, false)
	}
	if c.bus != nil {
 c.bus.Post(FacilitySampleCache, OpNew, idx)
	}
	return idx
}

// AddFileLazy registers name pointing at filename without loading it;
// spec/volume are filled in once the first Play loads it.
func (c *SampleCache) AddFileLazy(name, filename string) uint32 {
	e := &CacheEntry{Name: name, Lazy: true, Filename: filename, Volume: sample.CVolumeNorm(2)}
	idx := c.set.Put(e)
	e.Index = idx
	c.byName[name] = idx
	if c.registry != nil {
 c.registry.Register(EntityKindSample, name, idx, false)
	}
	if c.bus != nil {
 c.bus.Post(FacilitySampleCache, OpNew, idx)
	}
	return idx
}

// Remove evicts name entirely, releasing its chunk if loaded.
func (c *SampleCache) Remove(name string) bool {
	idx, ok := c.byName[name]
	if !ok {
 return false
	}
	e, _ := c.set.Get(idx)
	if e.loaded {
 e.Chunk.Block.Unref()
	}
	c.set.Remove(idx)
	delete(c.byName, name)
	if c.registry != nil {
 c.registry.Unregister(EntityKindSample, name)
	}
	if c.bus != nil {
 c.bus.Post(FacilitySampleCache, OpRemove, idx)
	}
	return true
}

// List returns every cache entry in insertion order.
func (c *SampleCache) List() []*CacheEntry { return c.set.Values() }

// Get returns the entry at idx.
func (c *SampleCache) Get(idx uint32) (*CacheEntry, bool) { return c.set.Get(idx) }

// Lookup resolves name, lazily loading it through loader if needed.
func (c *SampleCache) Lookup(name string) (*CacheEntry, error) {
	idx, ok := c.byName[name]
	if !ok {
 return nil, ErrNoEntity()
	}
	e, _ := c.set.Get(idx)
	if !e.loaded {
 if c.loader == nil {
 return nil, errors.New(errors.NewStd("sample cache: no loader configured for lazy entries")).
 Component("sndcore").Category(errors.CategoryInternal).Build()
 }
 chunk, spec, err := c.loader(e.Filename)
 if err != nil {
 return nil, errors.New(err).Component("sndcore").
 Category(errors.CategoryInternal).Context("file", e.Filename).Build()
 }
 e.Chunk = chunk
 e.Spec = spec
 e.loaded = true
	}
	e.LastUsed = time.Now()
	return e, nil
}

// EvictIdle unloads any lazy entry's chunk that hasn't been used in
// idleTime. Loaded non-lazy entries (added via Add) are never
// evicted — only Remove drops those.
func (c *SampleCache) EvictIdle(now time.Time, idleTime time.Duration) {
	for _, e := range c.set.Values() {
 if !e.Lazy || !e.loaded {
 continue
 }
 if now.Sub(e.LastUsed) < idleTime {
 continue
 }
 e.Chunk.Block.Unref()
 e.Chunk = memblock.Chunk{}
 e.loaded = false
 if c.bus != nil {
 c.bus.Post(FacilitySampleCache, OpChange, e.Index)
 }
	}
}

// Play instantiates a one-shot sink-input playing entry's cached chunk
// into sink at the given volume. onDone is invoked from a deferred
// one-shot once playback is exhausted, and directly from the producer's
// Kill when the input is killed; Core wires onDone to remove the
// sink-input from its indexed set and detach it from sink.
func Play(entry *CacheEntry, sink *Sink, volume sample.CVolume, loop *mainloop.Loop, stat *memblock.Stat, onDone func()) (*SinkInput, error) {
	data := entry.Chunk.Bytes()
	prod := &sampleSinkProducer{block: entry.Chunk.Block, data: data, loop: loop, onDone: onDone}
	si, err := NewSinkInput(entry.Name, entry.Spec, sample.ChannelMapAuto(entry.Spec.Channels), sink, prod, false, stat)
	if err != nil {
 return nil, err
	}
	si.SetVolume(volume, nil)
	if err := sink.AttachInput(si); err != nil {
 return nil, err
	}
	return si, nil
}

// sampleSinkProducer is the SinkInputProducer Play uses: Peek returns a
// chunk view (a ref on the cache entry's block, offset by how much has
// already played), which is what the sink mixer reads.
type sampleSinkProducer struct {
	block *memblock.Block
	data []byte
	offset int
	loop *mainloop.Loop
	onDone func()
	armed bool
}

func (p *sampleSinkProducer) Peek() (memblock.Chunk, bool) {
	if p.offset >= len(p.data) {
 return memblock.Chunk{}, false
	}
	p.block.Ref()
	return memblock.Chunk{Block: p.block, Index: p.offset, Length: len(p.data) - p.offset}, true
}

func (p *sampleSinkProducer) Drop(length int) {
	p.offset += length
	if p.offset >= len(p.data) && !p.armed {
 p.armed = true
 var defEvt *mainloop.DeferEvent
 defEvt = p.loop.NewDefer(func(l *mainloop.Loop, e *mainloop.DeferEvent) {
 l.EnableDefer(e, false)
 l.FreeDefer(e)
 if p.onDone != nil {
 p.onDone()
 }
 })
 p.loop.EnableDefer(defEvt, true)
	}
}

func (p *sampleSinkProducer) Kill() {
	if p.onDone != nil {
 p.onDone()
	}
}
