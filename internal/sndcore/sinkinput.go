package sndcore

import (
	"log/slog"

	"github.com/pulsed/pulsed/internal/errors"
	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/resampler"
	"github.com/pulsed/pulsed/internal/sample"
)

// resamplerRequestChunkBytes is the output-side chunk size a sink-input
// asks its resampler to size an upstream request around (step
// 3's "buffer_target"): large enough to amortize per-call resampler
// overhead, small enough to keep render-path latency low.
const resamplerRequestChunkBytes = 4096

// SinkInputState is a sink-input's lifecycle state.
type SinkInputState int

const (
	SinkInputRunning SinkInputState = iota
	SinkInputCorked
	SinkInputDisconnected
)

// SinkInput is one client's adapter into a Sink. It owns an optional
// resampler (present iff its spec or channel map differ from the sink's)
// and a single-chunk resampler output cache.
type SinkInput struct {
	Index uint32
	Name string

	spec sample.Spec
	chanMap sample.ChannelMap
	volume sample.CVolume
	sinkSpec sample.Spec
	sinkMap sample.ChannelMap
	variableRt bool

	state SinkInputState
	producer SinkInputProducer

	rs *resampler.Resampler

	// cache holds the most recent resampled output not yet fully
	// consumed by the sink's render loop.
	cache memblock.Chunk
	haveCach bool
	// preAdjusted records whether the input's volume was already baked
	// into cache's samples upstream (channel maps differ), in which
	// case Peek must report unity volume to the sink mixer instead of
	// double-applying it (step 4).
	preAdjusted bool

	sink *Sink
	stat *memblock.Stat

	// wasPlaying records whether the previous render's peek on this
	// input succeeded, so Sink.render only fires Underrun on the
	// transition into a failed peek, not on every subsequent one.
	wasPlaying bool
}

// notifyUnderrun invokes the producer's optional underrun hook.
func (si *SinkInput) notifyUnderrun() {
	if up, ok := si.producer.(SinkInputUnderrunProducer); ok {
 up.Underrun()
	}
}

// NewSinkInput builds a sink-input bound to sink. A resampler is
// instantiated automatically iff spec/chanMap differ from the sink's own.
func NewSinkInput(name string, spec sample.Spec, chanMap sample.ChannelMap, sink *Sink, producer SinkInputProducer, variableRate bool, stat *memblock.Stat) (*SinkInput, error) {
	if err := spec.Validate(); err != nil {
 return nil, err
	}
	si := &SinkInput{
 Name: name,
 spec: spec,
 chanMap: chanMap,
 volume: sample.CVolumeNorm(spec.Channels),
 sinkSpec: sink.Spec(),
 sinkMap: sink.ChannelMap(),
 variableRt: variableRate,
 state: SinkInputRunning,
 producer: producer,
 sink: sink,
 stat: stat,
	}
	if !spec.Equal(si.sinkSpec) || !chanMap.Equal(si.sinkMap) {
 rs, err := resampler.New(spec, si.sinkSpec, resampler.MethodSrcSincMediumQuality, stat)
 if err != nil {
 return nil, err
 }
 si.rs = rs
	}
	return si, nil
}

// Spec returns the input's own sample spec.
func (si *SinkInput) Spec() sample.Spec { return si.spec }

// Sink returns the sink this input is attached to.
func (si *SinkInput) Sink() *Sink { return si.sink }

// ChannelMap returns the input's own channel map.
func (si *SinkInput) ChannelMap() sample.ChannelMap { return si.chanMap }

// State returns the input's current lifecycle state.
func (si *SinkInput) State() SinkInputState { return si.state }

// Volume returns the input's per-channel volume vector.
func (si *SinkInput) Volume() sample.CVolume { return si.volume }

// SetVolume changes the input's per-channel volume, emitting a change
// event on bus ("Changing volume emits a change subscription
// event", applied here by analogy to sink-inputs).
func (si *SinkInput) SetVolume(v sample.CVolume, bus *Bus) {
	si.volume = v
	if bus != nil {
 bus.Post(FacilitySinkInput, OpChange, si.Index)
	}
}

// Cork pauses (true) or resumes (false) the input without tearing it
// down. Uncorking invokes the sink's Notify so rendering can resume.
func (si *SinkInput) Cork(corked bool) {
	if si.state == SinkInputDisconnected {
 return
	}
	if corked {
 si.state = SinkInputCorked
 return
	}
	si.state = SinkInputRunning
	if si.sink != nil {
 si.sink.Notify()
	}
}

// EnableSkewLogging turns on the resampler's rate-limited "clock skew
// too large" warning (non-fatal warnings). A no-op when the
// input has no resampler (spec/chanmap already match the sink) or log
// is nil.
func (si *SinkInput) EnableSkewLogging(log *slog.Logger) {
	if si.rs != nil && log != nil {
 si.rs.SetSkewLogger(log)
	}
}

// SetRate changes the input's sample rate in place; only legal for
// inputs created with variableRate=true.
func (si *SinkInput) SetRate(rate uint32) error {
	if !si.variableRt {
 return errors.New(errors.NewStd("sink-input was not created with variable_rate")).
 Component("sndcore").
 Category(errors.CategoryInvalid).
 Build()
	}
	si.spec.Rate = rate
	if si.rs != nil {
 si.rs.SetInputRate(int(rate))
	}
	return nil
}

// peek resolves the chunk the sink mixer should use and the volume to
// apply against it (unity if the volume was already baked in upstream
// because channel maps differ).
func (si *SinkInput) peek() (memblock.Chunk, sample.CVolume, bool) {
	if si.state == SinkInputCorked || si.state == SinkInputDisconnected {
 return memblock.Chunk{}, sample.CVolume{}, false
	}

	if si.rs == nil {
 c, ok := si.producer.Peek()
 if !ok {
 return memblock.Chunk{}, sample.CVolume{}, false
 }
 return c, si.volume, true
	}

	if !si.haveCach {
 upstream, ok := si.producer.Peek()
 if !ok {
 return memblock.Chunk{}, sample.CVolume{}, false
 }
 si.preAdjusted = !si.chanMap.Equal(si.sinkMap)
 if si.preAdjusted {
 upstream = memblock.MakeWritable(upstream, si.stat)
 applyVolumeInPlace(upstream, si.spec, si.volume)
 }
 need := si.rs.Request(resamplerRequestChunkBytes)
 if need <= 0 {
 need = si.spec.FrameSize()
 }
 if upstream.Length > need {
 upstream.Length = need
 }
 si.producer.Drop(upstream.Length)

 out := si.rs.Run(upstream)
 upstream.Block.Unref()
 if out.Length == 0 {
 return memblock.Chunk{}, sample.CVolume{}, false
 }
 si.cache = out
 si.haveCach = true
	}

	vol := si.volume
	if si.preAdjusted {
 vol = sample.CVolumeNorm(si.sinkSpec.Channels)
	}
	// Every peek, cache hit or miss, hands the caller its own reference to
	// release after use (drop only ever unrefs the cache's own internal
	// hold, on full consumption) — the same one-ref-per-peek contract the
	// no-resampler branch gets for free from producer.Peek().
	si.cache.Block.Ref()
	return si.cache, vol, true
}

// drop advances the consumed position of whatever peek last returned,
// forwarding straight to the producer when there is no resampler, or
// advancing/clearing the resampler cache otherwise.
func (si *SinkInput) drop(length int) {
	if si.rs == nil {
 si.producer.Drop(length)
 return
	}
	if !si.haveCach {
 return
	}
	si.cache.Index += length
	si.cache.Length -= length
	if si.cache.Length <= 0 {
 si.cache.Block.Unref()
 si.cache = memblock.Chunk{}
 si.haveCach = false
	}
}

// Latency returns the producer's reported latency, or 0 if it doesn't
// implement SinkInputLatencyProducer.
func (si *SinkInput) Latency() int64 {
	if lp, ok := si.producer.(SinkInputLatencyProducer); ok {
 return lp.GetLatency()
	}
	return 0
}

// Kill invokes the producer's kill callback, which is expected to
// eventually call Disconnect.
func (si *SinkInput) Kill() {
	si.producer.Kill()
}

// Disconnect tears the input down and releases the resampler cache.
// Idempotent.
func (si *SinkInput) Disconnect(bus *Bus) {
	if si.state == SinkInputDisconnected {
 return
	}
	si.state = SinkInputDisconnected
	if si.haveCach {
 si.cache.Block.Unref()
 si.cache = memblock.Chunk{}
 si.haveCach = false
	}
	if bus != nil {
 bus.Post(FacilitySinkInput, OpRemove, si.Index)
	}
}

// MoveTo detaches the input from its current sink and reattaches it to
// newSink, keeping its producer's queue. The resampler is rebuilt for
// the new sink's spec whenever the input's spec/map differ from it (and
// dropped when they match), and any cached resampler output is
// discarded.
func (si *SinkInput) MoveTo(newSink *Sink, bus *Bus) error {
	if si.state == SinkInputDisconnected {
 return errors.New(errors.NewStd("sink-input is disconnected")).
 Component("sndcore").Category(errors.CategoryState).Build()
	}
	oldSink := si.sink
	if oldSink != nil {
 oldSink.removeInput(si)
	}
	if err := newSink.attachInput(si); err != nil {
 if oldSink != nil {
 _ = oldSink.attachInput(si)
 }
 return err
	}
	si.sink = newSink
	newSpec, newMap := newSink.Spec(), newSink.ChannelMap()
	if !si.spec.Equal(newSpec) || !si.chanMap.Equal(newMap) {
 rs, err := resampler.New(si.spec, newSpec, resampler.MethodSrcSincMediumQuality, si.stat)
 if err != nil {
 return err
 }
 si.rs = rs
	} else {
 si.rs = nil
	}
	si.sinkSpec, si.sinkMap = newSpec, newMap
	if si.haveCach {
 si.cache.Block.Unref()
 si.cache = memblock.Chunk{}
 si.haveCach = false
	}
	if bus != nil {
 bus.Post(FacilitySinkInput, OpChange, si.Index)
	}
	return nil
}

func applyVolumeInPlace(c memblock.Chunk, spec sample.Spec, vol sample.CVolume) {
	if vol.IsNorm() {
 return
	}
	out := sample.Mix([]sample.MixInput{{Data: c.Bytes(), Volume: vol}}, c.Bytes(), spec)
	_ = out
}
