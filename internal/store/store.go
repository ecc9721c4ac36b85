// Package store provides the telemetry store: the single source of truth
// mapping peer addresses to their latest reported metrics.
//
// The store is safe for concurrent use. The in-memory map is guarded by an
// RWMutex; every Merge additionally holds a persist mutex across the map
// update and the read-merge-write of the mirror file, so two persists
// never race on the file and the file never moves backward in time.
// Readers only contend with the short map update, never with file I/O.
package store

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/xtxerr/telemetryd/config"
	"github.com/xtxerr/telemetryd/internal/errors"
	"github.com/xtxerr/telemetryd/internal/logging"
)

var log = logging.Component("store")

// Config holds store configuration.
type Config struct {
	// MirrorPath is the durable JSON mirror. Empty keeps the store in memory.
	MirrorPath string

	// SketchAccuracy is the relative accuracy of Summary percentiles.
	SketchAccuracy float64
}

// Store maps peer addresses to records.
type Store struct {
	mu      sync.RWMutex
	records map[string]Record

	// persistMu serializes Merge end to end, including mirror I/O.
	persistMu sync.Mutex
	mirror    *Mirror

	accuracy float64
}

// New creates an empty store.
func New(cfg *Config) *Store {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.SketchAccuracy <= 0 || cfg.SketchAccuracy >= 1 {
		cfg.SketchAccuracy = config.DefaultSketchAccuracy
	}

	s := &Store{
		records:  make(map[string]Record),
		accuracy: cfg.SketchAccuracy,
	}
	if cfg.MirrorPath != "" {
		s.mirror = NewMirror(cfg.MirrorPath)
	}
	return s
}

// Open creates a store seeded from the existing mirror, if any.
// A corrupt mirror is an error; a missing one is not.
func Open(cfg *Config) (*Store, error) {
	s := New(cfg)
	if s.mirror == nil {
		return s, nil
	}

	records, err := s.mirror.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load mirror")
	}
	// Several spellings of one address settle on a single entry: the
	// canonical key if present, otherwise the smallest raw key.
	chosen := make(map[string]string, len(records))
	for addr, rec := range records {
		key, ok := NormalizeAddress(addr)
		if !ok {
			log.Warn("skipping mirror entry with invalid address", "address", addr)
			continue
		}
		if prev, seen := chosen[key]; seen {
			if prev == key || (addr != key && prev < addr) {
				log.Warn("ignoring duplicate mirror entry", "address", addr, "kept", prev)
				continue
			}
			log.Warn("ignoring duplicate mirror entry", "address", prev, "kept", addr)
		}
		chosen[key] = addr
		s.records[key] = rec
	}

	log.Info("store loaded", "path", s.mirror.Path(), "peers", len(s.records))
	return s, nil
}

// NormalizeAddress returns the canonical text of an IP address, so that
// "::ffff:10.0.0.1" and "10.0.0.1" name the same peer.
func NormalizeAddress(addr string) (string, bool) {
	addr = strings.TrimSpace(addr)
	if i := strings.IndexByte(addr, '%'); i >= 0 {
		addr = addr[:i]
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return "", false
	}
	return ip.String(), true
}

// =============================================================================
// Write Side
// =============================================================================

// Merge inserts or replaces the record for addr, then persists the whole
// map with a read-merge-write of the mirror.
//
// A persistence failure is returned wrapping errors.ErrPersist, but the
// in-memory update is kept: memory stays authoritative and the next
// successful Merge brings the mirror up to date.
func (s *Store) Merge(addr string, rec Record) error {
	key, ok := NormalizeAddress(addr)
	if !ok {
		return errors.Wrapf(errors.ErrInvalidAddress, "merge %q", addr)
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.records[key] = rec
	var snapshot map[string]Record
	if s.mirror != nil {
		snapshot = s.copyLocked()
	}
	s.mu.Unlock()

	if s.mirror == nil {
		return nil
	}
	if err := s.mirror.Merge(snapshot); err != nil {
		return fmt.Errorf("%w: %s: %w", errors.ErrPersist, s.mirror.Path(), err)
	}
	return nil
}

// Flush writes the current map to the mirror without a new report.
func (s *Store) Flush() error {
	if s.mirror == nil {
		return nil
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	snapshot := s.copyLocked()
	s.mu.RUnlock()

	if err := s.mirror.Merge(snapshot); err != nil {
		return fmt.Errorf("%w: %s: %w", errors.ErrPersist, s.mirror.Path(), err)
	}
	return nil
}

// =============================================================================
// Read Side
// =============================================================================

// ReadAll returns a consistent copy of the whole map.
func (s *Store) ReadAll() map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// ReadOne returns the record for addr. ok is false when the address was
// never merged or is not a valid address.
func (s *Store) ReadOne(addr string) (rec Record, ok bool) {
	key, valid := NormalizeAddress(addr)
	if !valid {
		return Record{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok = s.records[key]
	return rec, ok
}

// Addresses returns the known peer addresses in sorted order.
func (s *Store) Addresses() []string {
	s.mu.RLock()
	addrs := make([]string, 0, len(s.records))
	for addr := range s.records {
		addrs = append(addrs, addr)
	}
	s.mu.RUnlock()

	sort.Strings(addrs)
	return addrs
}

// Len returns the number of known peers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Average returns the mean of each metric across all peers. Unknown values
// are excluded from their metric's mean; a metric nobody reported has
// Count 0. An empty store returns errors.ErrNoData.
//
// Percentile fields of the result are left zero; see Summary.
func (s *Store) Average() (Summary, error) {
	return s.aggregate(0)
}

// Summary is Average plus approximate p50/p90 percentiles per metric.
func (s *Store) Summary() (Summary, error) {
	return s.aggregate(s.accuracy)
}

func (s *Store) aggregate(accuracy float64) (Summary, error) {
	snapshot := s.ReadAll()
	if len(snapshot) == 0 {
		return Summary{}, errors.ErrNoData
	}
	return summarize(snapshot, accuracy), nil
}

func (s *Store) copyLocked() map[string]Record {
	out := make(map[string]Record, len(s.records))
	for addr, rec := range s.records {
		out[addr] = rec
	}
	return out
}
