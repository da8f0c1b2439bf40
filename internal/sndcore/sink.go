package sndcore

import (
	"github.com/pulsed/pulsed/internal/errors"
	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/sample"
)

// MaxSinkInputs caps the number of sink-inputs one sink will mix per
// render call.
const MaxSinkInputs = 32

// VolumeMode selects which volume layer a Sink's Get/SetVolume targets.
type VolumeMode int

const (
	VolumeModeSoftware VolumeMode = iota
	VolumeModeHardware
	VolumeModeAuto
)

// SinkState is a sink's lifecycle state.
type SinkState int

const (
	SinkRunning SinkState = iota
	SinkDisconnected
)

// HardwareVolumeOps is implemented by the module owning a sink's
// hardware when it wants VolumeModeAuto/VolumeModeHardware to reach the
// real mixer instead of being applied purely in software.
type HardwareVolumeOps interface {
	SetHardwareVolume(v sample.CVolume)
	GetHardwareVolume() sample.CVolume
}

// LatencyOps is implemented by the module driving a sink's hardware, to
// report device latency (get_latency).
type LatencyOps interface {
	GetLatency() int64 // microseconds
	// Notify is called when input state changes (new data, uncork) so
	// the module can decide whether to schedule another render.
	Notify()
}

// Sink is a named playback endpoint.
type Sink struct {
	Index uint32
	Name string
	OwnerModule *Module

	spec sample.Spec
	chanMap sample.ChannelMap

	swVolume sample.CVolume
	hwOps HardwareVolumeOps
	latOps LatencyOps

	inputs []*SinkInput
	monitor *Source

	state SinkState
	stat *memblock.Stat
}

// NewSink creates a running sink with the given spec/channel map. hwOps
// and latOps may be nil if the implementing module has no hardware
// volume control or latency reporting.
func NewSink(name string, spec sample.Spec, chanMap sample.ChannelMap, owner *Module, hwOps HardwareVolumeOps, latOps LatencyOps, stat *memblock.Stat) (*Sink, error) {
	if err := spec.Validate(); err != nil {
 return nil, err
	}
	return &Sink{
 Name: name,
 OwnerModule: owner,
 spec: spec,
 chanMap: chanMap,
 swVolume: sample.CVolumeNorm(spec.Channels),
 hwOps: hwOps,
 latOps: latOps,
 state: SinkRunning,
 stat: stat,
	}, nil
}

// Spec returns the sink's sample spec.
func (s *Sink) Spec() sample.Spec { return s.spec }

// ChannelMap returns the sink's channel map.
func (s *Sink) ChannelMap() sample.ChannelMap { return s.chanMap }

// State returns the sink's lifecycle state.
func (s *Sink) State() SinkState { return s.state }

// Monitor returns the sink's attached monitor source, or nil before
// SetMonitor has been called by Core at creation time.
func (s *Sink) Monitor() *Source { return s.monitor }

// SetMonitor attaches the implicit monitor source Core creates alongside
// every sink. The monitor's sample spec must equal the sink's own.
func (s *Sink) SetMonitor(mon *Source) { s.monitor = mon }

// Inputs returns the currently attached sink-inputs, in insertion order.
func (s *Sink) Inputs() []*SinkInput {
	out := make([]*SinkInput, len(s.inputs))
	copy(out, s.inputs)
	return out
}

// attachInput adds si to the sink's input list, enforcing MaxSinkInputs
// and rejecting attachment to a disconnected sink.
func (s *Sink) attachInput(si *SinkInput) error {
	if s.state == SinkDisconnected {
 return errors.New(errors.NewStd("sink is disconnected")).
 Component("sndcore").Category(errors.CategoryState).Build()
	}
	if len(s.inputs) >= MaxSinkInputs {
 return errors.New(errors.NewStd("sink has reached its sink-input cap")).
 Component("sndcore").Category(errors.CategoryLimit).
 Context("cap", MaxSinkInputs).Build()
	}
	s.inputs = append(s.inputs, si)
	return nil
}

// AttachInput is the exported entry point Core uses when creating a
// sink-input against this sink.
func (s *Sink) AttachInput(si *SinkInput) error { return s.attachInput(si) }

func (s *Sink) removeInput(si *SinkInput) {
	for i, in := range s.inputs {
 if in == si {
 s.inputs = append(s.inputs[:i], s.inputs[i+1:]...)
 return
 }
	}
}

// GetVolume returns the sink's volume under mode. VolumeModeAuto
// resolves to hardware iff a HardwareVolumeOps was registered.
func (s *Sink) GetVolume(mode VolumeMode) sample.CVolume {
	if s.useHardware(mode) {
 return s.hwOps.GetHardwareVolume()
	}
	return s.swVolume
}

// SetVolume sets the sink's volume under mode and emits a change event.
// VolumeModeAuto resolves to hardware iff a HardwareVolumeOps was
// registered, else software.
func (s *Sink) SetVolume(mode VolumeMode, v sample.CVolume, bus *Bus) {
	if s.useHardware(mode) {
 s.hwOps.SetHardwareVolume(v)
	} else {
 s.swVolume = v
	}
	if bus != nil {
 bus.Post(FacilitySink, OpChange, s.Index)
	}
}

func (s *Sink) useHardware(mode VolumeMode) bool {
	switch mode {
	case VolumeModeHardware:
 return s.hwOps != nil
	case VolumeModeAuto:
 return s.hwOps != nil
	default:
 return false
	}
}

// GetLatency delegates to the implementing module's LatencyOps, or
// returns 0 if none was registered.
func (s *Sink) GetLatency() int64 {
	if s.latOps != nil {
 return s.latOps.GetLatency()
	}
	return 0
}

// Notify tells the implementing module that input state changed — e.g.
// an input uncorked, or new data became available.
func (s *Sink) Notify() {
	if s.latOps != nil {
 s.latOps.Notify()
	}
}

// RenderResult is the outcome of one Render call: the produced chunk
// (possibly shorter than requested) and the indices of the inputs that
// ran dry during it.
type RenderResult struct {
	Chunk memblock.Chunk
	Underruns []uint32 // indices of inputs that failed to peek this call
}

// Render pulls up to length bytes of mixed output from every attached,
// running sink-input, applying volume and mixing. It posts the mixed
// chunk to the sink's monitor source before returning.
func (s *Sink) Render(length int, bus *Bus) RenderResult {
	type contrib struct {
 si *SinkInput
 block *memblock.Block
 data []byte
 vol sample.CVolume
	}
	var live []contrib
	var underruns []uint32

	for _, si := range s.inputs {
 if si.state != SinkInputRunning {
 si.wasPlaying = false
 continue
 }
 c, vol, ok := si.peek()
 if !ok {
 if si.wasPlaying {
 si.notifyUnderrun()
 underruns = append(underruns, si.Index)
 }
 si.wasPlaying = false
 continue
 }
 si.wasPlaying = true
 data := c.Bytes()
 if len(data) > length {
 data = data[:length]
 }
 live = append(live, contrib{si: si, block: c.Block, data: data, vol: vol})
	}

	if len(live) == 0 {
 return RenderResult{Underruns: underruns}
	}

	var outChunk memblock.Chunk
	consumed := length
	for _, c := range live {
 if len(c.data) < consumed {
 consumed = len(c.data)
 }
	}
	if consumed <= 0 {
 for _, c := range live {
 c.si.drop(0)
 c.block.Unref()
 }
 return RenderResult{Underruns: underruns}
	}

	if len(live) == 1 {
 only := live[0]
 blk := memblock.New(consumed, s.stat)
 copy(blk.Data(), only.data[:consumed])
 combined := only.vol.Multiply(s.swVolume)
 sample.Mix([]sample.MixInput{{Data: blk.Data(), Volume: combined}}, blk.Data(), s.spec)
 outChunk = memblock.Chunk{Block: blk, Index: 0, Length: consumed}
	} else {
 inputs := make([]sample.MixInput, len(live))
 for i, c := range live {
 inputs[i] = sample.MixInput{Data: c.data[:consumed], Volume: c.vol.Multiply(s.swVolume)}
 }
 blk := memblock.New(consumed, s.stat)
 sample.Mix(inputs, blk.Data(), s.spec)
 outChunk = memblock.Chunk{Block: blk, Index: 0, Length: consumed}
	}

	for _, c := range live {
 c.si.drop(consumed)
 c.block.Unref()
	}

	if s.monitor != nil {
 s.monitor.Post(outChunk)
	}

	return RenderResult{Chunk: outChunk, Underruns: underruns}
}

// RenderFull loops Render until length bytes are produced, padding any
// shortfall with silence. The caller owns the returned
// chunk's reference.
func (s *Sink) RenderFull(length int, bus *Bus) memblock.Chunk {
	blk := memblock.New(length, s.stat)
	out := blk.Data()
	filled := 0
	for filled < length {
 res := s.Render(length-filled, bus)
 if res.Chunk.Length == 0 {
 break
 }
 copy(out[filled:], res.Chunk.Bytes())
 filled += res.Chunk.Length
 res.Chunk.Block.Unref()
	}
	if filled < length {
 sample.Silence(out[filled:], s.spec.Format)
	}
	return memblock.Chunk{Block: blk, Index: 0, Length: length}
}

// Disconnect kills every attached input, disconnects the monitor source,
// and transitions the sink to disconnected, in that order.
// Iterating is done over a snapshot so a producer's Kill callback that
// reenters Disconnect (e.g. via Core removing the input) can't corrupt
// the loop.
func (s *Sink) Disconnect(bus *Bus) {
	if s.state == SinkDisconnected {
 return
	}
	snapshot := make([]*SinkInput, len(s.inputs))
	copy(snapshot, s.inputs)
	for _, si := range snapshot {
 si.Kill()
	}
	if s.monitor != nil {
 s.monitor.Disconnect(bus)
	}
	s.state = SinkDisconnected
	if bus != nil {
 bus.Post(FacilitySink, OpRemove, s.Index)
	}
}
