// Package cache keeps short-lived per-session copies of backend reads.
package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Cache is a string-keyed store of T.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is a cache whose expired entries can be swept.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps registered caches on an interval.
type Manager struct {
	logger *slog.Logger
	caches []Cleaner

	started     atomic.Bool
	once        sync.Once
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewManager creates a manager that logs sweeps at debug level.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:      logger,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the sweep. Call before StartCleanup.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// StartCleanup begins periodic sweeps.
func (m *Manager) StartCleanup(interval time.Duration) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go m.cleanup(interval)
}

// Sweep cleans every registered cache once and returns the entries removed.
func (m *Manager) Sweep() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the sweep loop started by StartCleanup. It is safe to call
// more than once, and without StartCleanup.
func (m *Manager) Stop() {
	m.once.Do(func() {
		close(m.stopCleanup)
	})
	if m.started.Load() {
		<-m.cleanupDone
	}
}
