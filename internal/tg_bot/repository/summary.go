package repository

import (
	"errors"
	"fmt"
	"sync"

	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/models"
	"github.com/sirupsen/logrus"
)

// ErrUnknownCategory is returned when a device reports a category outside the fixed set.
var ErrUnknownCategory = errors.New("unknown summary category")

// Summary counts device completions per category. Counters start at zero and only grow.
type Summary struct {
	counters models.SummaryCounters
	mu       sync.RWMutex
}

// NewSummary creates a Summary with every known category present at zero.
func NewSummary() *Summary {
	counters := make(models.SummaryCounters, len(models.SummaryCategories))
	for _, category := range models.SummaryCategories {
		counters[category] = 0
	}
	return &Summary{counters: counters}
}

// Increment adds one completion to the category.
func (s *Summary) Increment(category models.SummaryCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.counters[category]; !ok {
		return fmt.Errorf("increment %q: %w", category, ErrUnknownCategory)
	}
	s.counters[category]++
	logrus.WithField("category", category).Debugf("Summary counter is now %d", s.counters[category])
	return nil
}

// Snapshot returns a copy of the counters.
func (s *Summary) Snapshot() models.SummaryCounters {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(models.SummaryCounters, len(s.counters))
	for category, n := range s.counters {
		snapshot[category] = n
	}
	return snapshot
}
