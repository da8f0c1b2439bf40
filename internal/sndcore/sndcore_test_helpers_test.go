package sndcore

import "github.com/pulsed/pulsed/internal/memblock"

// fakeSinkInputProducer feeds a fixed byte slice to a SinkInput, tracking
// consumption and kill/underrun calls for assertions.
type fakeSinkInputProducer struct {
	data []byte
	offset int
	stat *memblock.Stat
	killed bool
	underruns int
	dropCalls []int
}

func (p *fakeSinkInputProducer) Peek() (memblock.Chunk, bool) {
	if p.offset >= len(p.data) {
 return memblock.Chunk{}, false
	}
	b := memblock.New(len(p.data)-p.offset, p.stat)
	copy(b.Data(), p.data[p.offset:])
	return memblock.Chunk{Block: b, Index: 0, Length: len(p.data) - p.offset}, true
}

func (p *fakeSinkInputProducer) Drop(length int) {
	p.dropCalls = append(p.dropCalls, length)
	p.offset += length
}

func (p *fakeSinkInputProducer) Kill() { p.killed = true }

func (p *fakeSinkInputProducer) Underrun() { p.underruns++ }

// fakeSourceOutputProducer records every chunk pushed to it.
type fakeSourceOutputProducer struct {
	pushed [][]byte
	killed bool
}

func (p *fakeSourceOutputProducer) Push(c memblock.Chunk) {
	buf := make([]byte, c.Length)
	copy(buf, c.Bytes())
	p.pushed = append(p.pushed, buf)
}

func (p *fakeSourceOutputProducer) Kill() { p.killed = true }
