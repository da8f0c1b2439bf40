package memblock

import "sync/atomic"

// Stat tracks aggregate memblock allocation counts, used by the core's
// "stat" introspection command to report current vs. lifetime block
// counts and bytes.
// A nil *Stat is valid and simply does no accounting, so callers that
// don't care about stats can pass nil to New/NewFixed/NewDynamic/NewUser.
type Stat struct {
	total atomic.Int64
	totalSize atomic.Int64
	allocated atomic.Int64
	allocatedSize atomic.Int64
}

// NewStat returns a fresh, zeroed Stat.
func NewStat() *Stat { return &Stat{} }

func (s *Stat) add(b *Block) {
	if s == nil {
 return
	}
	s.total.Add(1)
	s.allocated.Add(1)
	n := int64(len(b.data))
	s.totalSize.Add(n)
	s.allocatedSize.Add(n)
}

func (s *Stat) remove(b *Block) {
	if s == nil {
 return
	}
	s.total.Add(-1)
	s.totalSize.Add(-int64(len(b.data)))
}

// Snapshot is a point-in-time read of a Stat's counters.
type Snapshot struct {
	Total int64
	TotalSize int64
	Allocated int64
	AllocatedSize int64
}

// Snapshot reads the current counter values.
func (s *Stat) Snapshot() Snapshot {
	if s == nil {
 return Snapshot{}
	}
	return Snapshot{
 Total: s.total.Load(),
 TotalSize: s.totalSize.Load(),
 Allocated: s.allocated.Load(),
 AllocatedSize: s.allocatedSize.Load(),
	}
}
