package sndcore

import (
	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/sample"
)

// SourceState mirrors SinkState for the capture direction.
type SourceState int

const (
	SourceRunning SourceState = iota
	SourceDisconnected
)

// Source is a capture endpoint. A Source that is
// MonitorOfSink is the implicit tap on a sink's mixed output: it has no
// independent hardware clock and is driven solely by Post calls from
// that sink's Render path.
type Source struct {
	Index uint32
	Name string
	OwnerModule *Module

	spec sample.Spec
	chanMap sample.ChannelMap

	MonitorOfSink *Sink // nil for a real hardware/virtual capture source

	outputs []*SourceOutput
	state SourceState
	stat *memblock.Stat
}

// NewSource creates a running source.
func NewSource(name string, spec sample.Spec, chanMap sample.ChannelMap, owner *Module, monitorOf *Sink, stat *memblock.Stat) (*Source, error) {
	if err := spec.Validate(); err != nil {
 return nil, err
	}
	return &Source{
 Name: name,
 OwnerModule: owner,
 spec: spec,
 chanMap: chanMap,
 MonitorOfSink: monitorOf,
 state: SourceRunning,
 stat: stat,
	}, nil
}

// Spec returns the source's sample spec.
func (s *Source) Spec() sample.Spec { return s.spec }

// ChannelMap returns the source's channel map.
func (s *Source) ChannelMap() sample.ChannelMap { return s.chanMap }

// State returns the source's lifecycle state.
func (s *Source) State() SourceState { return s.state }

// IsMonitor reports whether this source shadows a sink rather than a
// real capture device.
func (s *Source) IsMonitor() bool { return s.MonitorOfSink != nil }

// Outputs returns the currently attached source-outputs, in insertion
// order.
func (s *Source) Outputs() []*SourceOutput {
	out := make([]*SourceOutput, len(s.outputs))
	copy(out, s.outputs)
	return out
}

// AttachOutput registers so against this source.
func (s *Source) AttachOutput(so *SourceOutput) {
	s.outputs = append(s.outputs, so)
}

func (s *Source) removeOutput(so *SourceOutput) {
	for i, o := range s.outputs {
 if o == so {
 s.outputs = append(s.outputs[:i], s.outputs[i+1:]...)
 return
 }
	}
}

// Post fans a freshly captured (or sink-rendered, for monitors) chunk to
// every attached source-output in insertion order. Each output
// resamples (if needed) and forwards the result to its producer's Push
// callback, skipping outputs that are corked or disconnected, or whose
// resampler produced no output yet.
func (s *Source) Post(chunk memblock.Chunk) {
	for _, so := range s.outputs {
 so.push(chunk)
	}
}

// Disconnect kills every attached output and transitions to
// disconnected, symmetrical to Sink.Disconnect.
func (s *Source) Disconnect(bus *Bus) {
	if s.state == SourceDisconnected {
 return
	}
	snapshot := make([]*SourceOutput, len(s.outputs))
	copy(snapshot, s.outputs)
	for _, so := range snapshot {
 so.Kill()
	}
	s.state = SourceDisconnected
	if bus != nil {
 bus.Post(FacilitySource, OpRemove, s.Index)
	}
}
