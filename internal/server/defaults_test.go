package server_test

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/xtxerr/telemetryd/internal/loader"
	"github.com/xtxerr/telemetryd/internal/server"
	"github.com/xtxerr/telemetryd/internal/store"
	itesting "github.com/xtxerr/telemetryd/internal/testing"
)

func sendReport(t *testing.T, addr net.Addr, payload string) {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte(payload))
	conn.(*net.TCPConn).CloseWrite()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	io.Copy(io.Discard, conn)
}

func TestDefaultConfigMergesReportAfterMalformedOnes(t *testing.T) {
	cfg := loader.DefaultConfig()
	cfg.Server.Listen = "127.0.0.1:0"

	st := store.New(nil)
	s := server.New(loader.ToServerConfig(cfg, st))
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go s.Run()
	t.Cleanup(s.Shutdown)

	const malformed = 50
	for i := 0; i < malformed; i++ {
		sendReport(t, s.Addr(), `{`)
	}
	itesting.Eventually(t, 2*time.Second, func() bool { return s.Stats().Malformed == malformed },
		"malformed reports not counted")

	sendReport(t, s.Addr(), `{"processor_count": "4"}`)
	itesting.Eventually(t, 2*time.Second, func() bool { return st.Len() == 1 },
		"well-formed report after malformed ones was not merged")

	rec, _ := st.ReadOne("127.0.0.1")
	if rec.CPUCount != store.Count(4) {
		t.Errorf("CPUCount = %+v, want 4", rec.CPUCount)
	}
	if got := s.Stats().Blocked; got != 0 {
		t.Errorf("Blocked = %d, want 0", got)
	}
}
