// Package style draws an art style from a weighted catalog.
package style

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"ai-slovo/internal/domain/entity"
)

// Random is the source of uniform draws in [0, 1).
type Random interface {
	Float64() float64
}

// Selector performs weighted random selection over an ordered catalog.
// Entries with weight zero are never selected. Safe for concurrent use.
type Selector struct {
	catalog []entity.StyleEntry
	total   int

	mu     sync.Mutex
	rnd    Random
	logger *slog.Logger
}

// NewSelector creates a Selector. A nil rnd uses a time-seeded math/rand source.
func NewSelector(catalog []entity.StyleEntry, rnd Random, logger *slog.Logger) *Selector {
	if rnd == nil {
		// #nosec G404 -- style choice is not security sensitive
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}

	entries := make([]entity.StyleEntry, len(catalog))
	copy(entries, catalog)

	total := 0
	for _, e := range entries {
		if e.Weight > 0 {
			total += e.Weight
		}
	}

	logger.Info("style selector initialized",
		slog.Int("styles", len(entries)),
		slog.Int("total_weight", total))

	return &Selector{catalog: entries, total: total, rnd: rnd, logger: logger}
}

// TotalWeight returns the sum of positive weights.
func (s *Selector) TotalWeight() int { return s.total }

// Catalog returns a copy of the catalog in selection order.
func (s *Selector) Catalog() []entity.StyleEntry {
	out := make([]entity.StyleEntry, len(s.catalog))
	copy(out, s.catalog)
	return out
}

// Select draws one entry with probability weight/total. It returns
// entity.ErrEmptyCatalog when no entry has a positive weight.
func (s *Selector) Select() (entity.Selection, error) {
	if len(s.catalog) == 0 || s.total <= 0 {
		return entity.Selection{}, entity.ErrEmptyCatalog
	}

	s.mu.Lock()
	r := s.rnd.Float64() * float64(s.total)
	s.mu.Unlock()

	cumulative := 0.0
	for _, e := range s.catalog {
		if e.Weight <= 0 {
			continue
		}
		cumulative += float64(e.Weight)
		if r < cumulative {
			s.logger.Info("style selected",
				slog.String("style", e.Name),
				slog.Int("weight", e.Weight))
			return entity.Selection{Name: e.Name, Entry: e}, nil
		}
	}

	// only reachable if the random source returns values outside [0, 1)
	last := s.lastWeighted()
	s.logger.Warn("falling back to last style", slog.String("style", last.Name))
	return entity.Selection{Name: last.Name, Entry: last}, nil
}

func (s *Selector) lastWeighted() entity.StyleEntry {
	for i := len(s.catalog) - 1; i >= 0; i-- {
		if s.catalog[i].Weight > 0 {
			return s.catalog[i]
		}
	}
	return s.catalog[len(s.catalog)-1]
}
