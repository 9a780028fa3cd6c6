package ratelimit

import (
	"sync"
	"time"
)

// KeyedConfig configures a KeyedLimiter instance.
type KeyedConfig struct {
	// Name identifies this limiter in metrics (e.g., "user")
	Name string

	// Token bucket settings
	Burst      float64 // Maximum tokens (burst capacity)
	RefillRate float64 // Tokens refilled per second

	// CleanupPeriod controls how often idle entries are dropped.
	CleanupPeriod time.Duration

	// OnDrop is called when a request is rejected.
	OnDrop func(name string)
}

// KeyedLimiter tracks rate limits per key (e.g., session ID).
// It creates a separate token bucket for each key and drops buckets
// that have been idle long enough to be full again.
type KeyedLimiter struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
	config  KeyedConfig
	stopCh  chan struct{}
	stopped sync.Once
}

type keyedEntry struct {
	limiter  *Limiter
	lastSeen time.Time
}

// NewKeyedLimiter creates a per-key rate limiter and starts its cleanup
// loop. Call Stop when done.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}
	kl := &KeyedLimiter{
		entries: make(map[string]*keyedEntry),
		config:  cfg,
		stopCh:  make(chan struct{}),
	}

	go kl.cleanupLoop()

	return kl
}

// Allow reports whether a request for the given key is allowed,
// consuming a token when it is. An empty key is always rejected.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return false
	}

	kl.mu.Lock()
	entry, ok := kl.entries[key]
	if !ok {
		entry = &keyedEntry{limiter: New(kl.config.Burst, kl.config.RefillRate)}
		kl.entries[key] = entry
	}
	entry.lastSeen = time.Now()
	kl.mu.Unlock()

	allowed := entry.limiter.Allow()
	if !allowed && kl.config.OnDrop != nil {
		kl.config.OnDrop(kl.config.Name)
	}
	return allowed
}

// Len returns the number of tracked keys.
func (kl *KeyedLimiter) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.entries)
}

// Stop terminates the cleanup loop.
func (kl *KeyedLimiter) Stop() {
	kl.stopped.Do(func() { close(kl.stopCh) })
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.cleanup()
		}
	}
}

// cleanup drops entries idle for at least one cleanup period. An idle
// bucket has refilled anyway, so dropping it loses nothing.
func (kl *KeyedLimiter) cleanup() {
	cutoff := time.Now().Add(-kl.config.CleanupPeriod)

	kl.mu.Lock()
	defer kl.mu.Unlock()
	for key, entry := range kl.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(kl.entries, key)
		}
	}
}
