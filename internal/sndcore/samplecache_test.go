package sndcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsed/pulsed/internal/mainloop"
	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/sample"
)

func chunkFromBytes(data []byte, s *memblock.Stat) memblock.Chunk {
	b := memblock.New(len(data), s)
	copy(b.Data(), data)
	return memblock.Chunk{Block: b, Index: 0, Length: len(data)}
}

func TestSampleCacheAddAndLookup(t *testing.T) {
	stat := memblock.NewStat()
	reg := NewNameRegistry()
	cache := NewSampleCache(nil, stat, reg, nil)

	chunk := chunkFromBytes([]byte{1, 2, 3, 4}, stat)
	idx := cache.Add("click", testSpec, chunk, sample.CVolumeNorm(2))

	e, err := cache.Lookup("click")
	require.NoError(t, err)
	assert.Equal(t, idx, e.Index)
	assert.Equal(t, []byte{1, 2, 3, 4}, e.Chunk.Bytes())
}

func TestSampleCacheLookupMissing(t *testing.T) {
	cache := NewSampleCache(nil, memblock.NewStat(), NewNameRegistry(), nil)
	_, err := cache.Lookup("nope")
	require.Error(t, err)
}

func TestSampleCacheAddFileLazyLoadsOnFirstLookup(t *testing.T) {
	stat := memblock.NewStat()
	loadCalls := 0
	loader := func(filename string) (memblock.Chunk, sample.Spec, error) {
 loadCalls++
 return chunkFromBytes([]byte{9, 9}, stat), testSpec, nil
	}
	cache := NewSampleCache(loader, stat, NewNameRegistry(), nil)
	cache.AddFileLazy("bell", "/sounds/bell.wav")

	e, err := cache.Lookup("bell")
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9}, e.Chunk.Bytes())
	assert.Equal(t, 1, loadCalls)

	_, err = cache.Lookup("bell")
	require.NoError(t, err)
	assert.Equal(t, 1, loadCalls, "second lookup must not reload an already-loaded lazy entry")
}

func TestSampleCacheLazyLookupWithoutLoaderFails(t *testing.T) {
	cache := NewSampleCache(nil, memblock.NewStat(), NewNameRegistry(), nil)
	cache.AddFileLazy("bell", "/sounds/bell.wav")
	_, err := cache.Lookup("bell")
	require.Error(t, err)
}

func TestSampleCacheEvictIdleOnlyTouchesLoadedLazyEntries(t *testing.T) {
	stat := memblock.NewStat()
	reg := NewNameRegistry()
	cache := NewSampleCache(func(string) (memblock.Chunk, sample.Spec, error) {
 return chunkFromBytes([]byte{1}, stat), testSpec, nil
	}, stat, reg, nil)

	cache.Add("perm", testSpec, chunkFromBytes([]byte{1, 2}, stat), sample.CVolumeNorm(2))
	cache.AddFileLazy("lazy", "/sounds/x.wav")
	_, err := cache.Lookup("lazy")
	require.NoError(t, err)

	cache.EvictIdle(time.Now().Add(time.Hour), time.Minute)

	permEntry, _ := cache.Lookup("perm")
	assert.Equal(t, []byte{1, 2}, permEntry.Chunk.Bytes(), "non-lazy entries are never evicted")

	lazy, _ := cache.set.Get(1)
	assert.False(t, lazy.loaded, "lazy entry unloaded after idle eviction")
}

func TestSampleCacheRemove(t *testing.T) {
	stat := memblock.NewStat()
	cache := NewSampleCache(nil, stat, NewNameRegistry(), nil)
	cache.Add("click", testSpec, chunkFromBytes([]byte{1}, stat), sample.CVolumeNorm(1))
	assert.True(t, cache.Remove("click"))
	assert.False(t, cache.Remove("click"))
}

func TestPlayProducesASinkInputThatExhaustsAndCallsOnDone(t *testing.T) {
	stat := memblock.NewStat()
	loop := mainloop.New(nil)
	sink, err := NewSink("out", testSpec, sample.ChannelMapStereo(), nil, nil, nil, stat)
	require.NoError(t, err)

	entry := &CacheEntry{
 Name: "click",
 Spec: testSpec,
 Chunk: chunkFromBytes([]byte{1, 2, 3, 4}, stat),
 Volume: sample.CVolumeNorm(2),
 loaded: true,
	}

	done := false
	si, err := Play(entry, sink, sample.CVolumeNorm(2), loop, stat, func() { done = true })
	require.NoError(t, err)
	require.Contains(t, sink.Inputs(), si)

	res := sink.Render(4, nil)
	require.Equal(t, 4, res.Chunk.Length)
	res.Chunk.Block.Unref()

	assert.False(t, done, "onDone only fires once the deferred self-termination event runs")
	loop.Iterate(false)
	assert.True(t, done)
}
