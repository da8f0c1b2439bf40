// Package modules' loopback module bridges an existing source to an
// existing sink entirely inside the daemon: capture from one side, play
// back on the other, with a small ring buffer absorbing the jitter
// between the two independently-scheduled render/capture paths.
package modules

import (
	"fmt"

	"github.com/smallnest/ringbuffer"

	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/sndcore"
)

// loopbackDefaultLatencyMsec is the ring buffer's target capacity in
// one direction; the buffer itself is sized to 2x this to absorb a
// full cycle of jitter in either direction without overflowing.
const loopbackDefaultLatencyMsec = 200

// loopback is the ModuleImpl for "module-loopback". It does not own
// the source or sink it bridges (they belong to whatever module
// created them), so Teardown only detaches its own sink-input and
// source-output bookkeeping, per Core.RemoveSinkInput/RemoveSourceOutput
// rather than Core.Disconnect{Sink,Source}.
type loopback struct {
	sourceName string
	sinkName string
	latencyMsec uint64

	core *sndcore.Core
	module *sndcore.Module

	so *sndcore.SourceOutput
	si *sndcore.SinkInput

	buf *ringbuffer.RingBuffer
	stat *memblock.Stat
}

// LoopbackFactory returns the sndcore.ModuleFactory for
// "module-loopback". Required args: source, sink (both must already
// exist). Optional: latency_msec (default 200).
func LoopbackFactory() sndcore.ModuleFactory {
	return func(args sndcore.ModArgs) (sndcore.ModuleImpl, sndcore.ModuleMeta, error) {
 source, ok := args.Get("source")
 if !ok {
 return nil, sndcore.ModuleMeta{}, fmt.Errorf("module-loopback: missing required arg \"source\"")
 }
 sink, ok := args.Get("sink")
 if !ok {
 return nil, sndcore.ModuleMeta{}, fmt.Errorf("module-loopback: missing required arg \"sink\"")
 }
 lb := &loopback{
 sourceName: source,
 sinkName: sink,
 latencyMsec: loopbackDefaultLatencyMsec,
 }
 if v, ok := args.Get("latency_msec"); ok {
 if n, err := parseUint(v); err == nil && n > 0 {
 lb.latencyMsec = n
 }
 }
 meta := sndcore.ModuleMeta{
 Author: "pulsed",
 Description: "Forwards audio from a source to a sink",
 Usage: "source=<name>,sink=<name>,latency_msec=<n>",
 Version: "1.0",
 }
 return lb, meta, nil
	}
}

func (lb *loopback) Init(core *sndcore.Core, m *sndcore.Module) error {
	src, err := core.LookupSource(lb.sourceName, true)
	if err != nil {
 return err
	}
	sink, err := core.LookupSink(lb.sinkName, true)
	if err != nil {
 return err
	}

	lb.core = core
	lb.module = m
	lb.stat = core.Stat

	capacity := int(sink.Spec().UsecToBytes(int64(lb.latencyMsec) * 2 * 1000))
	if capacity <= 0 {
 capacity = 1
	}
	lb.buf = ringbuffer.New(capacity)

	so, err := sndcore.NewSourceOutput("loopback", src.Spec(), src.ChannelMap(), src, &loopbackSourceProducer{lb: lb}, false, core.Stat)
	if err != nil {
 return err
	}
	core.AttachSourceOutput(so)
	lb.so = so

	si, err := sndcore.NewSinkInput("loopback", sink.Spec(), sink.ChannelMap(), sink, &loopbackSinkProducer{lb: lb}, false, core.Stat)
	if err != nil {
 core.RemoveSourceOutput(so)
 return err
	}
	if err := sink.AttachInput(si); err != nil {
 core.RemoveSourceOutput(so)
 return err
	}
	core.AttachSinkInput(si)
	lb.si = si
	return nil
}

func (lb *loopback) Teardown(core *sndcore.Core, m *sndcore.Module) {
	if lb.si != nil {
 core.RemoveSinkInput(lb.si)
	}
	if lb.so != nil {
 core.RemoveSourceOutput(lb.so)
	}
}

// loopbackSourceProducer implements sndcore.SourceOutputProducer,
// writing captured audio into the shared ring buffer. A full buffer
// (the sink side falling behind) silently drops the write, the same
// tail-drop behavior squeue.Queue applies when a push exceeds maxlength.
type loopbackSourceProducer struct{ lb *loopback }

func (p *loopbackSourceProducer) Push(chunk memblock.Chunk) {
	p.lb.buf.Write(chunk.Bytes())
}

func (p *loopbackSourceProducer) Kill() {
	p.lb.core.RequestModuleUnload(p.lb.module)
}

// loopbackSinkProducer implements sndcore.SinkInputProducer, draining
// the ring buffer into the sink's render path. Peek stages whatever is
// currently available as one chunk; Drop trims the staged chunk rather
// than touching the ring buffer again, since the bytes were already
// removed from it at staging time.
type loopbackSinkProducer struct {
	lb *loopback
	staged memblock.Chunk
	haveStaged bool
}

func (p *loopbackSinkProducer) Peek() (memblock.Chunk, bool) {
	if !p.haveStaged {
 avail := p.lb.buf.Length()
 if avail == 0 {
 return memblock.Chunk{}, false
 }
 data := make([]byte, avail)
 n, _ := p.lb.buf.Read(data)
 if n <= 0 {
 return memblock.Chunk{}, false
 }
 blk := memblock.New(n, p.lb.stat)
 copy(blk.Data(), data[:n])
 p.staged = memblock.Chunk{Block: blk, Index: 0, Length: n}
 p.haveStaged = true
	}
	p.staged.Block.Ref()
	return p.staged, true
}

func (p *loopbackSinkProducer) Drop(length int) {
	if !p.haveStaged {
 return
	}
	p.staged.Index += length
	p.staged.Length -= length
	if p.staged.Length <= 0 {
 p.staged.Block.Unref()
 p.staged = memblock.Chunk{}
 p.haveStaged = false
	}
}

func (p *loopbackSinkProducer) Kill() {
	p.lb.core.RequestModuleUnload(p.lb.module)
}
