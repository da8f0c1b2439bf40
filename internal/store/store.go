// Package store persists sample-cache metadata — name, source file,
// sample spec, volume, and whether an entry is lazy — across restarts,
// grounded on internal/datastore/sqlite.go's gorm.Open(sqlite.Open(...))
// + AutoMigrate pattern. Only metadata is kept here: the PCM bytes
// themselves live in memory via memblock and are reloaded through the
// sample cache's own SampleLoader on first play after a restart.
package store

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pulsed/pulsed/internal/errors"
	"github.com/pulsed/pulsed/internal/sample"
	"github.com/pulsed/pulsed/internal/sndcore"
)

// SampleRecord is the persisted row behind one sndcore.CacheEntry.
// Volume is stored as a comma-joined list of per-channel linear gains
// (sample.Volume is itself just a uint32) rather than a second table,
// since a cache entry's channel count is always small and fixed.
type SampleRecord struct {
	Name string `gorm:"primaryKey"`
	Filename string
	Format int
	Rate uint32
	Channels uint8
	Volume string
	Lazy bool
	UpdatedAt time.Time
}

func (SampleRecord) TableName() string { return "sample_cache_entries" }

// Store wraps a gorm/sqlite connection holding the sample-cache table.
type Store struct {
	db *gorm.DB
	log *slog.Logger
}

// Open creates (or reuses) the sqlite database at path and migrates its
// schema.
func Open(path string, log *slog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
 Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
 return nil, errors.New(err).Component("store").
 Category(errors.CategoryInternal).Context("path", path).Build()
	}
	if err := db.AutoMigrate(&SampleRecord{}); err != nil {
 return nil, errors.New(err).Component("store").
 Category(errors.CategoryInternal).Context("operation", "automigrate").Build()
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying sqlite connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
 return err
	}
	return sqlDB.Close()
}

// UpsertLazy persists a lazy (filename-backed) entry, the metadata
// AddFileLazy registers before anything is ever loaded.
func (s *Store) UpsertLazy(name, filename string) error {
	rec := SampleRecord{Name: name, Filename: filename, Lazy: true, UpdatedAt: time.Now()}
	return s.upsert(rec)
}

// UpsertLoaded persists an already-loaded entry's spec and volume.
func (s *Store) UpsertLoaded(name string, spec sample.Spec, volume sample.CVolume) error {
	rec := SampleRecord{
 Name: name,
 Format: int(spec.Format),
 Rate: spec.Rate,
 Channels: spec.Channels,
 Volume: encodeVolume(volume),
 Lazy: false,
 UpdatedAt: time.Now(),
	}
	return s.upsert(rec)
}

func (s *Store) upsert(rec SampleRecord) error {
	result := s.db.Save(&rec)
	if result.Error != nil {
 return errors.New(result.Error).Component("store").
 Category(errors.CategoryInternal).Context("name", rec.Name).Build()
	}
	return nil
}

// Remove deletes name's persisted row, if any.
func (s *Store) Remove(name string) error {
	result := s.db.Delete(&SampleRecord{}, "name = ?", name)
	if result.Error != nil {
 return errors.New(result.Error).Component("store").
 Category(errors.CategoryInternal).Context("name", name).Build()
	}
	return nil
}

// LazyEntries returns every persisted lazy entry, for replaying through
// sndcore.SampleCache.AddFileLazy at startup.
func (s *Store) LazyEntries() ([]SampleRecord, error) {
	var recs []SampleRecord
	if err := s.db.Where("lazy = ?", true).Find(&recs).Error; err != nil {
 return nil, errors.New(err).Component("store").
 Category(errors.CategoryInternal).Context("operation", "list_lazy").Build()
	}
	return recs, nil
}

func encodeVolume(v sample.CVolume) string {
	parts := make([]string, v.Channels)
	for i := 0; i < int(v.Channels); i++ {
 parts[i] = strconv.FormatUint(uint64(v.Values[i]), 10)
	}
	return strings.Join(parts, ",")
}

// Mirror keeps a Store in sync with a running Core's sample cache by
// subscribing to FacilitySampleCache events. It tracks index->name
// itself because by the time an OpRemove event is delivered, the entry
// is already gone from the cache's own index.
type Mirror struct {
	store *Store
	cache *sndcore.SampleCache
	log *slog.Logger
	names map[uint32]string
}

// NewMirror builds a Mirror bound to cache, persisting through store.
func NewMirror(store *Store, cache *sndcore.SampleCache, log *slog.Logger) *Mirror {
	return &Mirror{store: store, cache: cache, log: log, names: make(map[uint32]string)}
}

// Start subscribes to bus and returns the subscription handle so the
// caller can unsubscribe on shutdown.
func (m *Mirror) Start(bus *sndcore.Bus) sndcore.Handle {
	return bus.Subscribe(sndcore.MaskFor(sndcore.FacilitySampleCache), m.onEvent)
}

func (m *Mirror) onEvent(ev sndcore.Event) {
	switch ev.Operation {
	case sndcore.OpRemove:
 name, ok := m.names[ev.Index]
 if !ok {
 return
 }
 delete(m.names, ev.Index)
 if err := m.store.Remove(name); err != nil {
 m.warnf("remove %s: %v", name, err)
 }
	default: // OpNew or OpChange
 entry, ok := m.cache.Get(ev.Index)
 if !ok {
 return
 }
 m.names[ev.Index] = entry.Name
 var err error
 if entry.Lazy {
 err = m.store.UpsertLazy(entry.Name, entry.Filename)
 } else {
 err = m.store.UpsertLoaded(entry.Name, entry.Spec, entry.Volume)
 }
 if err != nil {
 m.warnf("persist %s: %v", entry.Name, err)
 }
	}
}

func (m *Mirror) warnf(format string, args ...any) {
	if m.log != nil {
 m.log.Warn(fmt.Sprintf(format, args...))
	}
}
