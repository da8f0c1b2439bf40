package sndcore

import (
	"log/slog"

	"github.com/pulsed/pulsed/internal/errors"
	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/resampler"
	"github.com/pulsed/pulsed/internal/sample"
)

// SourceOutputState mirrors SinkInputState for the capture direction.
type SourceOutputState int

const (
	SourceOutputRunning SourceOutputState = iota
	SourceOutputCorked
	SourceOutputDisconnected
)

// SourceOutput is one client's adapter out of a Source: the mirror image
// of SinkInput. Its resampler, if present, runs in the
// opposite direction (source spec -> output spec).
type SourceOutput struct {
	Index uint32
	Name string

	spec sample.Spec
	chanMap sample.ChannelMap
	sourceSpec sample.Spec
	variableRt bool

	state SourceOutputState
	producer SourceOutputProducer

	rs *resampler.Resampler

	source *Source
	stat *memblock.Stat
}

// NewSourceOutput builds a source-output bound to src. A resampler is
// instantiated automatically iff spec or chanMap differ from the
// source's own.
func NewSourceOutput(name string, spec sample.Spec, chanMap sample.ChannelMap, src *Source, producer SourceOutputProducer, variableRate bool, stat *memblock.Stat) (*SourceOutput, error) {
	if err := spec.Validate(); err != nil {
 return nil, err
	}
	so := &SourceOutput{
 Name: name,
 spec: spec,
 chanMap: chanMap,
 sourceSpec: src.Spec(),
 variableRt: variableRate,
 state: SourceOutputRunning,
 producer: producer,
 source: src,
 stat: stat,
	}
	if !spec.Equal(so.sourceSpec) || !chanMap.Equal(src.ChannelMap()) {
 rs, err := resampler.New(so.sourceSpec, spec, resampler.MethodSrcSincMediumQuality, stat)
 if err != nil {
 return nil, err
 }
 so.rs = rs
	}
	return so, nil
}

// Spec returns the output's own sample spec.
func (so *SourceOutput) Spec() sample.Spec { return so.spec }

// State returns the output's lifecycle state.
func (so *SourceOutput) State() SourceOutputState { return so.state }

// Cork pauses (true) or resumes (false) the output.
func (so *SourceOutput) Cork(corked bool) {
	if so.state == SourceOutputDisconnected {
 return
	}
	if corked {
 so.state = SourceOutputCorked
 return
	}
	so.state = SourceOutputRunning
}

// SetRate changes the output's sample rate; only legal for outputs
// created with variableRate=true.
func (so *SourceOutput) SetRate(rate uint32) error {
	if !so.variableRt {
 return errors.New(errors.NewStd("source-output was not created with variable_rate")).
 Component("sndcore").
 Category(errors.CategoryInvalid).
 Build()
	}
	so.spec.Rate = rate
	if so.rs != nil {
 so.rs.SetOutputRate(int(rate))
	}
	return nil
}

// EnableSkewLogging turns on the resampler's rate-limited "clock skew
// too large" warning (non-fatal warnings). A no-op when the
// output has no resampler or log is nil.
func (so *SourceOutput) EnableSkewLogging(log *slog.Logger) {
	if so.rs != nil && log != nil {
 so.rs.SetSkewLogger(log)
	}
}

// push is called by Source.Post with a source-side chunk. It resamples
// (if needed) and invokes the producer's Push callback with the result,
// skipping entirely while corked or disconnected, or if resampling
// produced no output yet.
func (so *SourceOutput) push(chunk memblock.Chunk) {
	if so.state != SourceOutputRunning {
 return
	}
	if so.rs == nil {
 so.producer.Push(chunk)
 return
	}
	out := so.rs.Run(chunk)
	if out.Length == 0 {
 return
	}
	so.producer.Push(out)
	out.Block.Unref()
}

// Kill invokes the producer's kill callback.
func (so *SourceOutput) Kill() {
	so.producer.Kill()
}

// Disconnect tears the output down. Idempotent.
func (so *SourceOutput) Disconnect(bus *Bus) {
	if so.state == SourceOutputDisconnected {
 return
	}
	so.state = SourceOutputDisconnected
	if bus != nil {
 bus.Post(FacilitySourceOutput, OpRemove, so.Index)
	}
}
