// Package cache implements the lookup cache: product code to display name
// records held in memory and flushed to a durable slot on request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"sbname/internal/catalog/metrics"
	"sbname/internal/catalog/models"
	"sbname/internal/catalog/store"
	dErrors "sbname/pkg/domain-errors"
)

const (
	// StoreName is the fixed key of the durable slot.
	StoreName = "sbnameDB"
	// SchemaVersion is the version written with every persisted blob.
	SchemaVersion = "0.1"
)

var (
	// ErrNotFound is returned by Get on a miss.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")
	// ErrCorrupt marks a slot whose content could not be adopted.
	ErrCorrupt = dErrors.New(dErrors.CodeCacheCorrupt, "cache slot is corrupt")
)

// Slot is a durable key/value location holding one serialized blob per key.
// Load returns store.ErrSlotEmpty when the key has never been written.
type Slot interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, data []byte) error
}

// scheme is the persisted shape of the cache.
type scheme struct {
	Version string                `json:"version"`
	Names   []models.CachedRecord `json:"names"`
}

// Cache holds CachedRecords in insertion order with an index by code.
// It is safe for concurrent use. Durability is explicit: call Persist.
type Cache struct {
	mu        sync.RWMutex
	slot      Slot
	name      string
	version   string
	records   []models.CachedRecord
	index     map[string]int
	condition error

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the Cache.
type Option func(*Cache)

// WithLogger sets the logger for the cache.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics sink for the cache.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithStoreName overrides the slot key. Mostly useful for tests sharing a slot.
func WithStoreName(name string) Option {
	return func(c *Cache) {
		if name != "" {
			c.name = name
		}
	}
}

// Open loads the cache from slot.
//
// An absent slot is initialized with an empty scheme; this is the only write
// Open performs. Content that fails to decode, or that carries a schema
// version other than SchemaVersion, is not adopted: the cache starts empty
// and Condition reports ErrCorrupt. Slot read and write failures are returned.
//
// A nil slot yields a cache without support; see HasSupport.
func Open(ctx context.Context, slot Slot, opts ...Option) (*Cache, error) {
	c := &Cache{
		slot:    slot,
		name:    StoreName,
		version: SchemaVersion,
		records: []models.CachedRecord{},
		index:   make(map[string]int),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if slot == nil {
		return c, nil
	}

	data, err := slot.Load(ctx, c.name)
	switch {
	case errors.Is(err, store.ErrSlotEmpty):
		if err := c.Persist(ctx); err != nil {
			return nil, fmt.Errorf("initialize cache slot: %w", err)
		}
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("load cache slot: %w", err)
	}

	loaded, err := decode(data)
	if err != nil {
		c.condition = err
		c.logger.WarnContext(ctx, "cache slot unreadable, starting empty",
			"store", c.name,
			"error", err,
		)
		if c.metrics != nil {
			c.metrics.RecordCorrupt()
		}
		return c, nil
	}

	c.version = loaded.Version
	for _, r := range loaded.Names {
		c.putLocked(r)
	}
	c.observeEntries()
	return c, nil
}

// decode parses a persisted blob. Any failure is reported as ErrCorrupt.
func decode(data []byte) (*scheme, error) {
	var s scheme
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCacheCorrupt, "decode cache slot")
	}
	if s.Version != SchemaVersion {
		return nil, &dErrors.Error{
			Code:    dErrors.CodeCacheCorrupt,
			Message: fmt.Sprintf("cache schema version %q does not match %q", s.Version, SchemaVersion),
		}
	}
	return &s, nil
}

// HasSupport reports whether the cache is backed by durable storage.
// It has no side effects and is safe to call on a nil Cache.
func (c *Cache) HasSupport() bool {
	return c != nil && c.slot != nil
}

// Condition returns the reason the cache started empty, or nil. It is cleared
// by the first successful Persist, which replaces the unreadable slot content.
func (c *Cache) Condition() error {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.condition
}

// Version returns the schema version adopted at Open.
func (c *Cache) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Get returns the record stored for code, or ErrNotFound.
func (c *Cache) Get(code string) (models.CachedRecord, error) {
	c.mu.RLock()
	i, ok := c.index[code]
	var record models.CachedRecord
	if ok {
		record = c.records[i]
	}
	c.mu.RUnlock()

	if !ok {
		if c.metrics != nil {
			c.metrics.RecordCacheMiss()
		}
		return models.CachedRecord{}, ErrNotFound
	}
	if c.metrics != nil {
		c.metrics.RecordCacheHit()
	}
	return record, nil
}

// Set inserts or replaces the record for code. It does not persist.
func (c *Cache) Set(code, name, extendedName string) {
	c.mu.Lock()
	c.putLocked(models.CachedRecord{Code: code, Name: name, ExtendedName: extendedName})
	c.mu.Unlock()
	c.observeEntries()
}

// Remove deletes the record for code and reports whether one was present.
func (c *Cache) Remove(code string) bool {
	c.mu.Lock()
	i, ok := c.index[code]
	if ok {
		c.records = append(c.records[:i], c.records[i+1:]...)
		delete(c.index, code)
		for j := i; j < len(c.records); j++ {
			c.index[c.records[j].Code] = j
		}
	}
	c.mu.Unlock()

	if ok {
		c.observeEntries()
	}
	return ok
}

// List returns a copy of all records in insertion order.
func (c *Cache) List() []models.CachedRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.CachedRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Persist overwrites the durable slot with the current version and records.
// Concurrent calls are not ordered; the last write to the slot wins.
func (c *Cache) Persist(ctx context.Context) error {
	if !c.HasSupport() {
		return dErrors.New(dErrors.CodeUnavailable, "cache has no durable slot")
	}

	c.mu.RLock()
	payload, err := json.Marshal(scheme{Version: c.version, Names: c.records})
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	err = c.slot.Store(ctx, c.name, payload)
	if c.metrics != nil {
		c.metrics.RecordPersist(err)
	}
	if err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.mu.Lock()
	c.condition = nil
	c.mu.Unlock()
	return nil
}

// putLocked requires c.mu held for writing.
func (c *Cache) putLocked(r models.CachedRecord) {
	if i, ok := c.index[r.Code]; ok {
		c.records[i] = r
		return
	}
	c.index[r.Code] = len(c.records)
	c.records = append(c.records, r)
}

func (c *Cache) observeEntries() {
	if c.metrics == nil {
		return
	}
	c.metrics.SetCacheEntries(c.Len())
}
