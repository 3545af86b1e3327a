package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryConfig configures a MemoryStore
type MemoryConfig struct {
	Limit         int
	Window        time.Duration
	IdleTTL       time.Duration // entries untouched for longer are evicted once their window has elapsed
	SweepInterval time.Duration
	Now           func() time.Time
}

type window struct {
	mu          sync.Mutex
	count       int
	start       time.Time
	lastRequest time.Time
}

// MemoryStore is a process-local Store. Callers own its lifetime through Start and Stop.
type MemoryStore struct {
	cfg MemoryConfig

	mu      sync.Mutex
	entries map[string]*window

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &MemoryStore{
		cfg:     cfg,
		entries: make(map[string]*window),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (s *MemoryStore) Limit() int {
	return s.cfg.Limit
}

// Take counts one request for key. The first request opens the window and the
// counter starts over once the window has fully elapsed.
func (s *MemoryStore) Take(_ context.Context, key string) (Result, error) {
	now := s.cfg.Now()

	s.mu.Lock()
	w, ok := s.entries[key]
	if !ok {
		w = &window{start: now}
		s.entries[key] = w
	}
	s.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	if now.Sub(w.start) >= s.cfg.Window {
		w.start = now
		w.count = 0
	}
	w.lastRequest = now

	res := Result{
		Limit:   s.cfg.Limit,
		ResetAt: w.start.Add(s.cfg.Window),
	}

	if w.count >= s.cfg.Limit {
		return res, nil
	}

	w.count++
	res.Allowed = true
	res.Remaining = remaining(s.cfg.Limit, w.count)
	return res, nil
}

// Sweep evicts entries idle for longer than IdleTTL and returns how many were removed.
// An entry whose window is still open is kept so its count survives until the reset.
func (s *MemoryStore) Sweep() int {
	now := s.cfg.Now()
	cutoff := now.Add(-s.cfg.IdleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, w := range s.entries {
		w.mu.Lock()
		evict := w.lastRequest.Before(cutoff) && now.Sub(w.start) >= s.cfg.Window
		w.mu.Unlock()

		if evict {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Start runs the background sweep until Stop is called
func (s *MemoryStore) Start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop ends the sweep goroutine and waits for it to exit. Safe to call more than once.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
}
