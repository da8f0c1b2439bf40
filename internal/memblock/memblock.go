// Package memblock implements the refcounted memory blocks that every PCM
// buffer in pulsed is built from, plus the copy-on-write
// memory chunk and the mcalign re-chunking filter layered on top of them.
//
// Go's garbage collector reclaims the backing array once nothing
// references it, so this package does not need malloc/free bookkeeping —
// what matters is the *reference count itself*, because the count (not
// the GC) is what decides whether a chunk sharing a block may be
// mutated in place (Chunk.MakeWritable) and whether a User block's
// release callback should fire yet.
package memblock

import (
	"sync/atomic"
)

// Kind tags a block's allocation/ownership variant: Ref and UnrefFixed
// promote a Fixed block to Dynamic, and Unref invokes the caller-supplied
// release callback for User blocks.
type Kind int

const (
	// KindAppended blocks own a freshly allocated buffer (New).
	KindAppended Kind = iota
	// KindFixed wraps a buffer the caller still owns outright; UnrefFixed
	// copies out rather than racing the caller's own lifetime.
	KindFixed
	// KindDynamic wraps a buffer this package now owns exclusively.
	KindDynamic
	// KindUser wraps a buffer with a caller-supplied release callback.
	KindUser
)

// Block is a refcounted byte buffer. The zero value is not valid; use
// New, NewFixed, NewDynamic, or NewUser.
type Block struct {
	kind Kind
	data []byte
	freeCB func([]byte)
	ref atomic.Int32
	stat *Stat
}

// New allocates a fresh length-byte block tracked against s (s may be
// nil to opt out of accounting).
func New(length int, s *Stat) *Block {
	b := &Block{kind: KindAppended, data: make([]byte, length), stat: s}
	b.ref.Store(1)
	s.add(b)
	return b
}

// NewFixed wraps data without taking ownership: UnrefFixed, not Unref,
// must be used to release the last reference, since the caller may still
// be holding the backing array.
func NewFixed(data []byte, s *Stat) *Block {
	b := &Block{kind: KindFixed, data: data, stat: s}
	b.ref.Store(1)
	s.add(b)
	return b
}

// NewDynamic wraps data this package now owns exclusively (e.g. the
// result of a buffer the caller is handing off, like mcalign's internal
// re-chunking buffer).
func NewDynamic(data []byte, s *Stat) *Block {
	b := &Block{kind: KindDynamic, data: data, stat: s}
	b.ref.Store(1)
	s.add(b)
	return b
}

// NewUser wraps data with a release callback invoked when the last
// reference is dropped — e.g. to return a buffer to a device driver's own
// pool.
func NewUser(data []byte, freeCB func([]byte), s *Stat) *Block {
	b := &Block{kind: KindUser, data: data, freeCB: freeCB, stat: s}
	b.ref.Store(1)
	s.add(b)
	return b
}

// Data returns the block's bytes. Callers must not retain a slice past
// Unref dropping the block to zero references if the block is Dynamic or
// User, since the underlying array may be recycled by the release
// callback.
func (b *Block) Data() []byte { return b.data }

// Len is the block's byte length.
func (b *Block) Len() int { return len(b.data) }

// Kind reports the block's allocation kind.
func (b *Block) Kind() Kind { return b.kind }

// Ref increments the reference count and returns b, for chaining at the
// call site. A Fixed block being shared for the first time is promoted
// to Dynamic (deep-copied) first: the caller that
// still owns the borrowed buffer is only guaranteed to keep it alive
// across a single reference, so a second holder can't safely depend on
// that buffer outliving the first's own release.
func (b *Block) Ref() *Block {
	if b.kind == KindFixed {
 cp := make([]byte, len(b.data))
 copy(cp, b.data)
 b.data = cp
 b.kind = KindDynamic
	}
	b.ref.Add(1)
	return b
}

// Unref drops a reference. At zero, a User block's release callback
// fires and a Dynamic block's data is dropped; stats are updated in
// both cases.
func (b *Block) Unref() {
	if b.ref.Add(-1) != 0 {
 return
	}
	b.stat.remove(b)
	if b.kind == KindUser && b.freeCB != nil {
 b.freeCB(b.data)
	}
	b.data = nil
}

// UnrefFixed releases a Fixed block. If this is the last reference it
// behaves like Unref; otherwise the block's content is copied into a
// private buffer and converted to Dynamic before dropping one reference,
// so the last holder doesn't read a buffer the original caller has since
// reused.
func (b *Block) UnrefFixed() {
	if b.ref.Load() == 1 {
 b.Unref()
 return
	}
	cp := make([]byte, len(b.data))
	copy(cp, b.data)
	b.data = cp
	b.kind = KindDynamic
	b.ref.Add(-1)
}

// RefCount returns the current reference count, for tests and diagnostics.
func (b *Block) RefCount() int32 { return b.ref.Load() }
