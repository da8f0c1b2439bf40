package memblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndUnrefUpdatesStat(t *testing.T) {
	s := NewStat()
	b := New(16, s)
	snap := s.Snapshot()
	assert.Equal(t, int64(1), snap.Total)
	assert.Equal(t, int64(16), snap.TotalSize)

	b.Unref()
	snap = s.Snapshot()
	assert.Equal(t, int64(0), snap.Total)
	assert.Equal(t, int64(1), snap.Allocated)
}

func TestRefUnrefRoundTrip(t *testing.T) {
	b := New(8, nil)
	b.Ref()
	assert.Equal(t, int32(2), b.RefCount())
	b.Unref()
	assert.Equal(t, int32(1), b.RefCount())
	b.Unref()
}

func TestUnrefFixedCopiesWhenSharedThenFrees(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	b := NewFixed(data, nil)
	b.Ref()

	b.UnrefFixed()
	assert.Equal(t, KindDynamic, b.Kind())
	assert.Equal(t, int32(1), b.RefCount())

	data[0] = 99
	assert.Equal(t, byte(1), b.Data()[0], "fixed block must have copied out before the caller's buffer changed")

	b.UnrefFixed()
}

func TestUserBlockReleaseCallbackFiresOnce(t *testing.T) {
	released := 0
	data := []byte{1, 2, 3}
	b := NewUser(data, func([]byte) { released++ }, nil)
	b.Ref()
	b.Unref()
	assert.Equal(t, 0, released)
	b.Unref()
	assert.Equal(t, 1, released)
}

func TestMakeWritableCopiesOnSharedBlock(t *testing.T) {
	s := NewStat()
	b := New(4, s)
	copy(b.Data(), []byte{1, 2, 3, 4})
	b.Ref()

	c := Chunk{Block: b, Index: 0, Length: 4}
	writable := MakeWritable(c, s)

	assert.NotSame(t, b, writable.Block)
	assert.Equal(t, []byte{1, 2, 3, 4}, writable.Bytes())
	assert.Equal(t, int32(1), writable.Block.RefCount())
}

func TestMakeWritableIsNoopWhenExclusive(t *testing.T) {
	b := New(4, nil)
	c := Chunk{Block: b, Index: 0, Length: 4}
	writable := MakeWritable(c, nil)
	assert.Same(t, b, writable.Block)
}

func TestMCAlignReassemblesMisalignedPushes(t *testing.T) {
	const base = 4
	s := NewStat()
	m := NewMCAlign(base, s)

	first := New(3, s)
	copy(first.Data(), []byte{1, 2, 3})
	m.Push(Chunk{Block: first, Index: 0, Length: 3})

	_, ok := m.Pop()
	assert.False(t, ok, "3 bytes is not a full 4-byte frame yet")

	second := New(5, s)
	copy(second.Data(), []byte{4, 5, 6, 7, 8})
	m.Push(Chunk{Block: second, Index: 0, Length: 5})

	out, ok := m.Pop()
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, out.Bytes())

	out2, ok := m.Pop()
	require.True(t, ok)
	assert.Equal(t, []byte{5, 6, 7, 8}, out2.Bytes())
}

func TestMCAlignPassesThroughAlreadyAlignedChunk(t *testing.T) {
	const base = 2
	m := NewMCAlign(base, nil)
	b := New(4, nil)
	copy(b.Data(), []byte{9, 9, 9, 9})
	m.Push(Chunk{Block: b, Index: 0, Length: 4})

	out, ok := m.Pop()
	require.True(t, ok)
	assert.Equal(t, []byte{9, 9, 9, 9}, out.Bytes())
}
