// Package squeue implements the stream queue that backs every sink-input
// and source-output: an ordered list of memory chunks with a maximum
// length, a target length, a prebuffer threshold, and a minimum request
// size. It is the component that turns a client's irregular
// write/read pattern into the sink/source's steady per-iteration render
// pull.
package squeue

import (
	"container/list"

	"github.com/pulsed/pulsed/internal/memblock"
)

// Queue is a stream queue. The zero value is not valid; use New.
type Queue struct {
	blocks *list.List // of memblock.Chunk
	currentLength int
	maxLength int
	tlength int
	base int
	prebuf int
	origPrebuf int
	minreq int
	align *memblock.MCAlign
	stat *memblock.Stat
}

// New creates a queue, sanitizing its size parameters against base (the
// stream's frame size): maxlength and tlength are rounded up to a
// multiple of base, prebuf and minreq are rounded down to one, tlength
// collapses to maxlength if it would be zero or reach it, prebuf of -1
// means "half of maxlength", and a minreq that rounds to zero is bumped
// to 1 so Missing never reports a requestable amount of nothing.
func New(maxLength, tlength, base, prebuf, minreq int, s *memblock.Stat) *Queue {
	q := &Queue{blocks: list.New(), base: base, stat: s}

	q.maxLength = roundUp(maxLength, base)

	q.tlength = roundUp(tlength, base)
	if q.tlength == 0 || q.tlength >= q.maxLength {
 q.tlength = q.maxLength
	}

	if prebuf < 0 {
 q.prebuf = q.maxLength / 2
	} else {
 q.prebuf = prebuf
	}
	q.prebuf = (q.prebuf / base) * base
	if q.prebuf > q.maxLength {
 q.prebuf = q.maxLength
	}
	q.origPrebuf = q.prebuf

	q.minreq = (minreq / base) * base
	if q.minreq == 0 {
 q.minreq = 1
	}

	return q
}

func roundUp(v, base int) int {
	return ((v + base - 1) / base) * base
}

// Push appends chunk to the queue after first Seek-ing by delta (delta
// is typically 0 on ingest; non-zero only when a client explicitly seeks
// before writing). Adjacent pushes of the same underlying block are
// merged into one list entry rather than kept as separate chunks, and the
// queue is shortened back to maxLength if the push overflowed it.
// chunk.Length must already be a multiple of Queue's base; use PushAlign
// for data that isn't.
func (q *Queue) Push(chunk memblock.Chunk, delta int) {
	q.Seek(delta)

	// Push does not consume chunk's reference: the caller keeps owning
	// the reference it passed in and must release it itself (PushAlign
	// does exactly that after each Pop/Push round trip). A stored entry
	// gets its own independent reference via Ref below.
	if tail := q.blocks.Back(); tail != nil {
 tc := tail.Value.(memblock.Chunk)
 if tc.Block == chunk.Block && tc.Index+tc.Length == chunk.Index {
 tc.Length += chunk.Length
 tail.Value = tc
 q.currentLength += chunk.Length
 q.Shorten(q.maxLength)
 return
 }
	}

	chunk.Block.Ref()
	q.blocks.PushBack(chunk)
	q.currentLength += chunk.Length
	q.Shorten(q.maxLength)
}

// PushAlign re-chunks chunk through an internal MCAlign filter before
// pushing, for ingest paths that may deliver fragments not aligned to
// base. If base is 1 no alignment is needed.
func (q *Queue) PushAlign(chunk memblock.Chunk, delta int) {
	if q.base == 1 {
 q.Push(chunk, delta)
 return
	}
	if q.align == nil {
 q.align = memblock.NewMCAlign(q.base, q.stat)
	}
	q.align.Push(chunk)
	for {
 rchunk, ok := q.align.Pop()
 if !ok {
 break
 }
 q.Push(rchunk, delta)
 rchunk.Block.Unref()
 delta = 0
	}
}

// Peek returns the head chunk without removing it. It fails while the
// queue holds less than its prebuf threshold; the first successful Peek
// after that point disables prebuf until PrebufReenable is called, so a
// stream that briefly drains to empty doesn't re-buffer before every
// subsequent read.
func (q *Queue) Peek() (memblock.Chunk, bool) {
	front := q.blocks.Front()
	if front == nil || q.currentLength < q.prebuf {
 return memblock.Chunk{}, false
	}
	q.prebuf = 0

	c := front.Value.(memblock.Chunk)
	c.Block.Ref()
	return c, true
}

// Drop removes length bytes from the queue's head, but only if chunk
// still matches the current head exactly — guarding against a caller
// dropping data it peeked before a concurrent Flush/Seek changed the
// head from under it.
func (q *Queue) Drop(chunk memblock.Chunk, length int) {
	front := q.blocks.Front()
	if front == nil {
 return
	}
	head := front.Value.(memblock.Chunk)
	if head.Block != chunk.Block || head.Index != chunk.Index || head.Length != chunk.Length {
 return
	}
	q.Skip(length)
}

// Skip removes exactly length bytes from the queue's head, which must be
// a multiple of base and no more than the current total length.
func (q *Queue) Skip(length int) {
	for length > 0 {
 l := length
 front := q.blocks.Front()
 c := front.Value.(memblock.Chunk)
 if l > c.Length {
 l = c.Length
 }

 c.Index += l
 c.Length -= l
 q.currentLength -= l

 if c.Length == 0 {
 c.Block.Unref()
 q.blocks.Remove(front)
 } else {
 front.Value = c
 }

 length -= l
	}
}

// Shorten drops from the head until the queue's length is at most
// length, rounding the amount dropped down to a multiple of base so it
// never strands a partial frame at the new head.
func (q *Queue) Shorten(length int) {
	if q.currentLength <= length {
 return
	}
	l := q.currentLength - length
	l = (l / q.base) * q.base
	if l > 0 {
 q.Skip(l)
	}
}

// Empty discards all queued data, equivalent to Shorten(0).
func (q *Queue) Empty() { q.Shorten(0) }

// IsReadable reports whether the queue holds data and has cleared its
// prebuf threshold.
func (q *Queue) IsReadable() bool {
	return q.currentLength > 0 && q.currentLength >= q.prebuf
}

// IsWritable reports whether length more bytes would still fit under
// tlength.
func (q *Queue) IsWritable(length int) bool {
	return q.currentLength+length <= q.tlength
}

// Length is the number of bytes currently queued.
func (q *Queue) Length() int { return q.currentLength }

// Missing returns how many bytes the queue could currently accept up to
// tlength, or 0 if that amount is smaller than minreq — the core's
// request-more-data threshold, which keeps clients
// from being woken for requests too small to be worth a write.
func (q *Queue) Missing() int {
	if q.currentLength >= q.tlength {
 return 0
	}
	l := q.tlength - q.currentLength
	if l >= q.minreq {
 return l
	}
	return 0
}

// MinReq returns the queue's minimum-request size.
func (q *Queue) MinReq() int { return q.minreq }

// TLength returns the queue's target length.
func (q *Queue) TLength() int { return q.tlength }

// PrebufDisable turns off prebuffering immediately, used when a client
// triggers a playback stream (PlaybackStream.Trigger).
func (q *Queue) PrebufDisable() { q.prebuf = 0 }

// PrebufReenable restores the original prebuf threshold configured at
// New.
func (q *Queue) PrebufReenable() { q.prebuf = q.origPrebuf }

// Seek discards length bytes from the queue's *tail*, used when a client
// seeks backward before a write to overwrite data it already queued.
// Unlike Skip, this removes whole list entries from the back and can
// remove an entry even if it isn't the current head.
func (q *Queue) Seek(length int) {
	if length == 0 {
 return
	}
	for length >= q.base {
 if q.currentLength == 0 {
 return
 }
 back := q.blocks.Back()
 c := back.Value.(memblock.Chunk)

 l := length
 if l > c.Length {
 l = c.Length
 }
 c.Length -= l
 q.currentLength -= l

 if c.Length == 0 {
 c.Block.Unref()
 q.blocks.Remove(back)
 } else {
 back.Value = c
 }

 length -= l
	}
}

// Flush discards all queued data and frees the underlying list, used on
// stream flush/cork-and-discard. The transient prebuf is restored to
// its configured value, so the stream must refill before the next Peek
// succeeds.
func (q *Queue) Flush() {
	for e := q.blocks.Front(); e != nil; e = e.Next() {
 e.Value.(memblock.Chunk).Block.Unref()
	}
	q.blocks.Init()
	q.currentLength = 0
	q.prebuf = q.origPrebuf
}
