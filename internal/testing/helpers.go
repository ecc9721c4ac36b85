// Package testing provides test helpers for the telemetryd application.
//
// Using t.Fatal() or t.FailNow() in goroutines causes undefined behavior because
// these methods call runtime.Goexit() which only terminates the current goroutine,
// not the test goroutine. The helpers here collect errors from goroutines and
// report them from the test goroutine instead.
package testing

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Error Channel Pattern
// =============================================================================

// GoroutineTest runs functions in goroutines and fails the test with every
// error they return.
//
// Example usage:
//
//	gt := itesting.NewGoroutineTest(t)
//	for _, addr := range peers {
//	    addr := addr
//	    gt.Go(func() error { return s.Merge(addr, rec) })
//	}
//	gt.Wait()
type GoroutineTest struct {
	t      *testing.T
	wg     sync.WaitGroup
	mu     sync.Mutex
	errors []error
}

// NewGoroutineTest creates a new GoroutineTest helper.
func NewGoroutineTest(t *testing.T) *GoroutineTest {
	return &GoroutineTest{t: t}
}

// Go runs fn in a goroutine and records its error, if any.
func (gt *GoroutineTest) Go(fn func() error) {
	gt.wg.Add(1)
	go func() {
		defer gt.wg.Done()
		if err := fn(); err != nil {
			gt.mu.Lock()
			gt.errors = append(gt.errors, err)
			gt.mu.Unlock()
		}
	}()
}

// Wait waits for all goroutines to complete and fails the test if any errors occurred.
func (gt *GoroutineTest) Wait() {
	gt.t.Helper()
	gt.wg.Wait()

	gt.mu.Lock()
	defer gt.mu.Unlock()
	if len(gt.errors) > 0 {
		gt.t.Errorf("goroutine test failed with %d error(s):", len(gt.errors))
		for i, err := range gt.errors {
			gt.t.Errorf("  [%d] %v", i+1, err)
		}
		gt.t.FailNow()
	}
}

// TestHelper manages error collection from goroutines that are started
// by hand, for tests that need finer control than GoroutineTest.
//
// Usage:
//
//	h := itesting.NewTestHelper(t)
//	h.Add(1)
//	go func() {
//	    defer h.Done()
//	    if err := work(); err != nil {
//	        h.Errorf("work: %v", err)
//	    }
//	}()
//	h.Wait()
type TestHelper struct {
	t      *testing.T
	wg     sync.WaitGroup
	errors chan error
}

// NewTestHelper creates a new test helper.
func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{
		t:      t,
		errors: make(chan error, 100),
	}
}

// Add increments the goroutine counter.
func (h *TestHelper) Add(delta int) {
	h.wg.Add(delta)
}

// Done decrements the goroutine counter.
func (h *TestHelper) Done() {
	h.wg.Done()
}

// Errorf records a test error from a goroutine.
// This is safe to call from any goroutine.
func (h *TestHelper) Errorf(format string, args ...interface{}) {
	select {
	case h.errors <- fmt.Errorf(format, args...):
	default:
		// Buffer full, error will be lost but test will still fail
	}
}

// Wait waits for all goroutines and reports any errors.
func (h *TestHelper) Wait() {
	h.t.Helper()
	h.wg.Wait()
	close(h.errors)

	var failed bool
	for err := range h.errors {
		h.t.Errorf("goroutine error: %v", err)
		failed = true
	}

	if failed {
		h.t.FailNow()
	}
}

// =============================================================================
// Polling
// =============================================================================

// Eventually polls cond every 10ms until it returns true or timeout elapses,
// then fails the test with msg.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}

// =============================================================================
// Sockets
// =============================================================================

// ListenUDP opens a loopback UDP socket on an ephemeral port and closes it
// when the test ends.
func ListenUDP(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// FreeTCPAddr returns a loopback address with a port that was free a moment ago.
func FreeTCPAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen tcp: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}
