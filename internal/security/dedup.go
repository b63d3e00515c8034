package security

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type dedupEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// FailureDeduper collapses duplicate failed-attempt handling for the same
// (account, client IP) pair inside a short window, so overlapping hooks in
// one logical request cannot count a single user-perceived attempt twice.
type FailureDeduper struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]*dedupEntry
}

// NewFailureDeduper creates a deduper with the given window and starts its
// background cleanup of stale entries.
func NewFailureDeduper(window time.Duration) *FailureDeduper {
	d := &FailureDeduper{
		window:  window,
		entries: make(map[string]*dedupEntry),
	}
	go d.cleanupLoop()
	return d
}

// Allow reports whether this failure should be processed. The first call for
// a key passes; repeats inside the window are dropped.
func (d *FailureDeduper) Allow(userID int64, ip string) bool {
	key := strconv.FormatInt(userID, 10) + "|" + ip

	d.mu.Lock()
	defer d.mu.Unlock()

	entry, exists := d.entries[key]
	if !exists {
		entry = &dedupEntry{
			limiter: rate.NewLimiter(rate.Every(d.window), 1),
		}
		d.entries[key] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter.Allow()
}

// cleanupLoop removes entries that haven't been seen recently
func (d *FailureDeduper) cleanupLoop() {
	for {
		time.Sleep(time.Minute)

		d.mu.Lock()
		for key, entry := range d.entries {
			if time.Since(entry.lastSeen) > 3*time.Minute {
				delete(d.entries, key)
			}
		}
		d.mu.Unlock()
	}
}
