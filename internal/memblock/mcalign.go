package memblock

// MCAlign re-chunks a stream of memchunks of arbitrary length into
// chunks that are exact multiples of base (the stream's frame size).
// It is used wherever a source of audio — an on-disk sample, a client
// upload — may deliver misaligned fragments that must not split a
// sample frame across two render steps.
type MCAlign struct {
	base int
	chunk Chunk
	haveChunk bool
	buffer []byte
	bufferFill int
	stat *Stat
}

// NewMCAlign creates a re-chunker for frames of the given base size.
func NewMCAlign(base int, s *Stat) *MCAlign {
	return &MCAlign{base: base, stat: s}
}

// Push hands the filter one input chunk. The filter holds at most one
// pushed chunk at a time; callers must drain with Pop before pushing
// again.
func (m *MCAlign) Push(c Chunk) {
	m.chunk = Chunk{Block: c.Block.Ref(), Index: c.Index, Length: c.Length}
	m.haveChunk = true
}

// Pop returns the next base-aligned chunk, or ok=false if not enough
// data has been pushed yet to complete one.
func (m *MCAlign) Pop() (Chunk, bool) {
	if !m.haveChunk {
 return Chunk{}, false
	}

	if m.bufferFill > 0 {
 l := m.base - m.bufferFill
 if l > m.chunk.Length {
 l = m.chunk.Length
 }
 copy(m.buffer[m.bufferFill:], m.chunk.Bytes()[:l])
 m.bufferFill += l
 m.chunk.Index += l
 m.chunk.Length -= l

 if m.chunk.Length == 0 {
 m.chunk.Block.Unref()
 m.chunk = Chunk{}
 m.haveChunk = false
 }

 if m.bufferFill == m.base {
 blk := NewDynamic(m.buffer, m.stat)
 m.buffer = nil
 m.bufferFill = 0
 return Chunk{Block: blk, Index: 0, Length: m.base}, true
 }
 return Chunk{}, false
	}

	m.bufferFill = m.chunk.Length % m.base
	if m.bufferFill > 0 {
 m.buffer = make([]byte, m.base)
 m.chunk.Length -= m.bufferFill
 tailStart := m.chunk.Index + m.chunk.Length
 copy(m.buffer, m.chunk.Block.Data()[tailStart:tailStart+m.bufferFill])
	}

	var out Chunk
	ok := false
	if m.chunk.Length > 0 {
 out = Chunk{Block: m.chunk.Block.Ref(), Index: m.chunk.Index, Length: m.chunk.Length}
 ok = true
	}

	m.chunk.Block.Unref()
	m.chunk = Chunk{}
	m.haveChunk = false

	return out, ok
}
