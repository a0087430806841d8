package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter replica el fixed window del RedisLimiter en proceso.
// Es el fallback cuando no hay Redis configurado: sirve para una sola
// instancia, no comparte estado entre réplicas.
type MemoryLimiter struct {
	Max    int64
	Window time.Duration

	mu      sync.Mutex
	windows map[string]*memoryWindow
}

type memoryWindow struct {
	start time.Time
	hits  int64
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		Max:     int64(max),
		Window:  window,
		windows: make(map[string]*memoryWindow),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !w.start.Equal(winStart) {
		w = &memoryWindow{start: winStart}
		l.windows[key] = w
		// barrido oportunista de ventanas muertas
		for k, old := range l.windows {
			if now.Sub(old.start) > 2*l.Window {
				delete(l.windows, k)
			}
		}
	}
	w.hits++

	ttl := winStart.Add(l.Window).Sub(now)
	remaining := l.Max - w.hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:     w.hits <= l.Max,
		Remaining:   remaining,
		CurrentHits: w.hits,
		WindowTTL:   ttl,
	}
	if !res.Allowed {
		res.RetryAfter = ttl
	}
	return res, nil
}
