package memblock

// Chunk is a view into a Block: index is the chunk's start offset within
// the block's data, length is how many bytes from there belong to the
// chunk. Multiple chunks may share one block (e.g. multiple sink-inputs
// reading the same Render output), which is what makes MakeWritable
// necessary before any in-place mutation.
type Chunk struct {
	Block *Block
	Index int
	Length int
}

// Bytes returns the chunk's view of its block's data.
func (c Chunk) Bytes() []byte {
	return c.Block.Data()[c.Index : c.Index+c.Length]
}

// MakeWritable ensures c's block is exclusively referenced, copying the
// chunk's bytes into a fresh block first if not. Returns the (possibly
// new) chunk; the original block's reference is dropped if a copy was
// made.
func MakeWritable(c Chunk, s *Stat) Chunk {
	if c.Block.RefCount() == 1 {
 return c
	}
	n := New(c.Length, s)
	copy(n.Data(), c.Bytes())
	c.Block.Unref()
	return Chunk{Block: n, Index: 0, Length: c.Length}
}
