package sndcore

import "fmt"

// AutoloadKind is the entity kind an autoload entry triggers a module
// load for.
type AutoloadKind int

const (
	AutoloadSink AutoloadKind = iota
	AutoloadSource
)

func (k AutoloadKind) String() string {
	if k == AutoloadSource {
 return "source"
	}
	return "sink"
}

// AutoloadEntry is a name-triggered lazy module load record.
// InAction prevents reentrant autoload for the same name while a load
// triggered by it is still in flight ("non-reentrantly").
type AutoloadEntry struct {
	Index uint32
	Name string
	Kind AutoloadKind
	ModuleName string
	ModuleArgs string
	InAction bool
}

// AutoloadTable indexes autoload entries both by IndexedSet position
// (for list/get-by-index) and by (kind, name) (for the lookup-miss
// fast path).
type AutoloadTable struct {
	set *IndexedSet[*AutoloadEntry]
	byKey map[string]uint32
}

// NewAutoloadTable returns an empty table.
func NewAutoloadTable() *AutoloadTable {
	return &AutoloadTable{set: NewIndexedSet[*AutoloadEntry](), byKey: make(map[string]uint32)}
}

func autoloadKey(kind AutoloadKind, name string) string {
	return fmt.Sprintf("%d:%s", kind, name)
}

// Add registers a new autoload entry, returning its index.
func (t *AutoloadTable) Add(name string, kind AutoloadKind, moduleName, moduleArgs string) uint32 {
	e := &AutoloadEntry{Name: name, Kind: kind, ModuleName: moduleName, ModuleArgs: moduleArgs}
	idx := t.set.Put(e)
	e.Index = idx
	t.byKey[autoloadKey(kind, name)] = idx
	return idx
}

// Remove deletes the entry matching (name, kind), if any.
func (t *AutoloadTable) Remove(name string, kind AutoloadKind) {
	key := autoloadKey(kind, name)
	idx, ok := t.byKey[key]
	if !ok {
 return
	}
	t.set.Remove(idx)
	delete(t.byKey, key)
}

// Lookup returns the entry registered for (name, kind).
func (t *AutoloadTable) Lookup(name string, kind AutoloadKind) (*AutoloadEntry, bool) {
	idx, ok := t.byKey[autoloadKey(kind, name)]
	if !ok {
 return nil, false
	}
	return t.set.Get(idx)
}

// Get returns the entry at idx, for get-by-index listing.
func (t *AutoloadTable) Get(idx uint32) (*AutoloadEntry, bool) { return t.set.Get(idx) }

// List returns every entry in insertion order.
func (t *AutoloadTable) List() []*AutoloadEntry { return t.set.Values() }
