package testing

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestGoroutineTestCollectsNothingOnSuccess(t *testing.T) {
	var n atomic.Int32
	gt := NewGoroutineTest(t)
	for i := 0; i < 8; i++ {
		gt.Go(func() error {
			n.Add(1)
			return nil
		})
	}
	gt.Wait()

	if n.Load() != 8 {
		t.Errorf("ran %d goroutines, want 8", n.Load())
	}
}

func TestEventually(t *testing.T) {
	var ready atomic.Bool
	go func() {
		time.Sleep(30 * time.Millisecond)
		ready.Store(true)
	}()
	Eventually(t, time.Second, ready.Load, "flag never set")
}

func TestListenUDPLoopback(t *testing.T) {
	conn := ListenUDP(t)
	if conn.LocalAddr() == nil {
		t.Fatal("no local address")
	}
	if FreeTCPAddr(t) == "" {
		t.Fatal("no free tcp address")
	}
}
