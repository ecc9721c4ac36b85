package server

import (
	"sync"
	"time"
)

// RateLimiter counts MALFORMED reports per IP address per time window.
// Well-formed reports are NOT counted and reset the counter.
//
// Flow:
//  1. Peer connects
//  2. Check IsBlocked() - if true, drop the connection immediately
//  3. Read and decode the report
//  4. If decoding FAILS: call RecordFailure()
//  5. If the report is stored: call Reset() to clear the count
type RateLimiter struct {
	mu       sync.RWMutex
	failures map[string]*rateLimitEntry
	limit    int           // max failures before blocking
	window   time.Duration // time window for counting failures

	stop     chan struct{}
	stopOnce sync.Once
}

type rateLimitEntry struct {
	count     int       // number of malformed reports
	resetTime time.Time // when this entry expires
}

// NewRateLimiter creates a new rate limiter. A limit of zero or less
// disables blocking.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		failures: make(map[string]*rateLimitEntry),
		limit:    limit,
		window:   window,
		stop:     make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// IsBlocked returns true if the IP has exceeded the failure limit.
func (rl *RateLimiter) IsBlocked(ip string) bool {
	if rl.limit <= 0 {
		return false
	}

	rl.mu.RLock()
	defer rl.mu.RUnlock()

	entry, ok := rl.failures[ip]
	if !ok {
		return false
	}

	if time.Now().After(entry.resetTime) {
		return false
	}

	return entry.count >= rl.limit
}

// RecordFailure records a malformed report.
func (rl *RateLimiter) RecordFailure(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, ok := rl.failures[ip]

	if !ok || now.After(entry.resetTime) {
		rl.failures[ip] = &rateLimitEntry{
			count:     1,
			resetTime: now.Add(rl.window),
		}
		return
	}

	entry.count++
}

// Reset clears the failure count for an IP.
func (rl *RateLimiter) Reset(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.failures, ip)
}

// FailureCount returns the current failure count for an IP.
func (rl *RateLimiter) FailureCount(ip string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	entry, ok := rl.failures[ip]
	if !ok {
		return 0
	}

	if time.Now().After(entry.resetTime) {
		return 0
	}

	return entry.count
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, entry := range rl.failures {
		if now.After(entry.resetTime) {
			delete(rl.failures, ip)
		}
	}
}
