package protocol

import (
	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/sndcore"
	"github.com/pulsed/pulsed/internal/squeue"
)

// RequestCallback is how a PlaybackStream tells its transport "the client
// should send exactly n more bytes" (REQUEST event).
type RequestCallback func(n int)

// DrainCallback reports whether a pending drain completed (ok=true) or
// was cut short because the stream was killed first (ok=false, which
// the transport surfaces as the wire "no-entity" error).
type DrainCallback func(ok bool)

// PlaybackStream is the built-in producer behind create-playback-stream:
// it couples a client-facing squeue.Queue to a sndcore.SinkInput and
// implements the back-pressure and drain contracts so no concrete
// transport module has to re-derive them.
type PlaybackStream struct {
	Index uint32
	Name string
	Queue *squeue.Queue
	sinkInput *sndcore.SinkInput

	alreadyRequested int
	onRequest RequestCallback
	drainWaiters []DrainCallback
	killed bool

	lastPeek memblock.Chunk
	havePeek bool
}

// newPlaybackStream wires a fresh queue to a new sink-input on sink,
// attaching it immediately so the sink's render loop can start pulling.
// maxLength/tlength/prebuf/minreq are already-resolved byte counts; the
// caller (Dispatcher.CreatePlaybackStream) is responsible for folding
// request overrides over the configured StreamDefaults first.
func newPlaybackStream(core *sndcore.Core, name string, req CreatePlaybackStreamRequest, sink *sndcore.Sink, maxLength, tlength, prebuf, minreq int, onRequest RequestCallback) (*PlaybackStream, error) {
	ps := &PlaybackStream{
 Name: name,
 Queue: squeue.New(maxLength, tlength, req.Spec.FrameSize(), prebuf, minreq, core.Stat),
 onRequest: onRequest,
	}
	si, err := sndcore.NewSinkInput(name, req.Spec, req.ChannelMap, sink, &playbackProducer{ps: ps}, req.VariableRate, core.Stat)
	if err != nil {
 return nil, err
	}
	ps.sinkInput = si
	if req.Volume.Channels > 0 {
 si.SetVolume(req.Volume, nil)
	}
	if err := sink.AttachInput(si); err != nil {
 return nil, err
	}
	if req.Corked {
 si.Cork(true)
	}
	core.AttachSinkInput(si)
	ps.Index = si.Index
	ps.maybeRequest()
	return ps, nil
}

// SinkInput exposes the backing sink-input, e.g. for volume/cork
// commands keyed by stream index.
func (ps *PlaybackStream) SinkInput() *sndcore.SinkInput { return ps.sinkInput }

// Push appends client-uploaded PCM to the stream's queue (create-upload
// vs create-playback both funnel data in this way; create-playback just
// also runs the request-flow accounting below), decrementing
// already_requested:'s "On each chunk the client pushes,
// already_requested is decremented by the chunk length."
func (ps *PlaybackStream) Push(chunk memblock.Chunk, seekDelta int) {
	ps.Queue.PushAlign(chunk, seekDelta)
	ps.alreadyRequested -= chunk.Length
	if ps.alreadyRequested < 0 {
 ps.alreadyRequested = 0
	}
}

// Cork pauses or resumes the stream's sink-input.
func (ps *PlaybackStream) Cork(corked bool) { ps.sinkInput.Cork(corked) }

// Flush discards all queued data and re-checks drain waiters (an empty
// queue after an explicit flush satisfies any pending drain just like
// playing it out fully would).
func (ps *PlaybackStream) Flush() {
	ps.Queue.Flush()
	ps.maybeRequest()
	ps.checkDrain()
}

// Trigger disables prebuffering so the next render sees data
// immediately, without waiting for the configured prebuf threshold.
func (ps *PlaybackStream) Trigger() { ps.Queue.PrebufDisable() }

// Prebuf re-enables the configured prebuf threshold.
func (ps *PlaybackStream) Prebuf() { ps.Queue.PrebufReenable() }

// Drain succeeds exactly when the queue becomes unreadable; if that's
// already true, cb fires synchronously, otherwise it is queued and
// fired from the producer's Drop path once the queue empties, or from
// Kill if the stream dies first. On a killed stream cb fails at once.
func (ps *PlaybackStream) Drain(cb DrainCallback) {
	if ps.killed {
 cb(false)
 return
	}
	if !ps.Queue.IsReadable() {
 cb(true)
 return
	}
	ps.drainWaiters = append(ps.drainWaiters, cb)
}

func (ps *PlaybackStream) checkDrain() {
	if len(ps.drainWaiters) == 0 || ps.Queue.IsReadable() {
 return
	}
	waiters := ps.drainWaiters
	ps.drainWaiters = nil
	for _, cb := range waiters {
 cb(true)
	}
}

// maybeRequest implements the stream-request flow:
// missing = target − current_length − already_requested; emits a
// REQUEST for exactly that many bytes when it's at least minreq, and
// folds it into already_requested so a burst of small pushes can't
// trigger overlapping requests for the same headroom.
func (ps *PlaybackStream) maybeRequest() {
	deficit := ps.Queue.TLength() - ps.Queue.Length() - ps.alreadyRequested
	if deficit < ps.Queue.MinReq() {
 return
	}
	ps.alreadyRequested += deficit
	if ps.onRequest != nil {
 ps.onRequest(deficit)
	}
}

// kill fails any pending drain and marks the stream so a late Drain call
// (racing the transport's own teardown) reports failure immediately
// rather than hanging forever.
func (ps *PlaybackStream) kill() {
	ps.killed = true
	waiters := ps.drainWaiters
	ps.drainWaiters = nil
	for _, cb := range waiters {
 cb(false)
	}
}

// playbackProducer is the sndcore.SinkInputProducer backing every
// PlaybackStream: Peek/Drop forward to the queue, tracking the chunk a
// prior Peek returned so Drop's equality check against the queue's own
// head is satisfied, and Drop re-runs the request-flow and
// drain checks after every consumption.
type playbackProducer struct {
	ps *PlaybackStream
}

func (p *playbackProducer) Peek() (memblock.Chunk, bool) {
	c, ok := p.ps.Queue.Peek()
	if !ok {
 return memblock.Chunk{}, false
	}
	p.ps.lastPeek = c
	p.ps.havePeek = true
	return c, true
}

func (p *playbackProducer) Drop(length int) {
	if !p.ps.havePeek {
 return
	}
	p.ps.Queue.Drop(p.ps.lastPeek, length)
	p.ps.havePeek = false
	p.ps.maybeRequest()
	p.ps.checkDrain()
}

func (p *playbackProducer) Kill() {
	p.ps.kill()
}
