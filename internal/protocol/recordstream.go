package protocol

import (
	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/sndcore"
)

// RecordPushCallback delivers resampled captured PCM to the transport
// (the wire equivalent of a playback stream's REQUEST, but flowing the
// other direction — capture pushes, it never waits to be asked).
type RecordPushCallback func(chunk memblock.Chunk)

// RecordStream is the record-side counterpart of PlaybackStream: a thin
// sndcore.SourceOutputProducer adapter with no queue of its own, since
// Source.Post already fans resampled chunks straight to
// Push with no intermediate buffering required on the core side.
type RecordStream struct {
	Index uint32
	Name string
	sourceOutput *sndcore.SourceOutput
	onPush RecordPushCallback
	killed func()
}

// newRecordStream creates a record stream attached to src.
func newRecordStream(core *sndcore.Core, name string, req CreateRecordStreamRequest, src *sndcore.Source, onPush RecordPushCallback) (*RecordStream, error) {
	rs := &RecordStream{Name: name, onPush: onPush}
	prod := &recordProducer{rs: rs}
	so, err := sndcore.NewSourceOutput(name, req.Spec, req.ChannelMap, src, prod, req.VariableRate, core.Stat)
	if err != nil {
 return nil, err
	}
	rs.sourceOutput = so
	src.AttachOutput(so)
	if req.Corked {
 so.Cork(true)
	}
	core.AttachSourceOutput(so)
	rs.Index = so.Index
	return rs, nil
}

// SourceOutput exposes the backing source-output.
func (rs *RecordStream) SourceOutput() *sndcore.SourceOutput { return rs.sourceOutput }

// Cork pauses or resumes delivery.
func (rs *RecordStream) Cork(corked bool) { rs.sourceOutput.Cork(corked) }

type recordProducer struct{ rs *RecordStream }

func (p *recordProducer) Push(chunk memblock.Chunk) {
	if p.rs.onPush != nil {
 p.rs.onPush(chunk)
	}
}

func (p *recordProducer) Kill() {
	if p.rs.killed != nil {
 p.rs.killed()
	}
}
