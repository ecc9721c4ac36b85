package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	prompt "github.com/c-bata/go-prompt"
	"github.com/xtxerr/telemetryd/internal/server"
	"github.com/xtxerr/telemetryd/internal/store"
)

func newTestConsole(t *testing.T, st *store.Store) (*Console, *bytes.Buffer, *int) {
	t.Helper()
	var out bytes.Buffer
	quits := 0
	c := New(&Config{
		Reader: st,
		Out:    &out,
		Stats: func() server.Stats {
			return server.Stats{Accepted: 1200, Stored: 1100, Malformed: 3}
		},
		OnQuit: func() { quits++ },
	})
	return c, &out, &quits
}

func seeded(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(nil)
	if err := st.Merge("192.168.1.10", store.Record{
		FreeDiskGB:   store.Gigabytes(120.5),
		CPUCount:     store.Count(8),
		FreeMemoryGB: store.Gigabytes(4.2),
	}); err != nil {
		t.Fatal(err)
	}
	if err := st.Merge("192.168.1.11", store.Record{
		FreeDiskGB:   store.Gigabytes(60),
		CPUCount:     store.Count(4),
		FreeMemoryGB: store.Gigabytes(2),
	}); err != nil {
		t.Fatal(err)
	}
	return st
}

func TestList(t *testing.T) {
	c, out, _ := newTestConsole(t, seeded(t))

	if c.Execute("list") {
		t.Fatal("list asked to quit")
	}
	got := out.String()
	for _, want := range []string{"ADDRESS", "192.168.1.10", "120.5 GB", "192.168.1.11", "60 GB", "2 peer(s)"} {
		if !strings.Contains(got, want) {
			t.Errorf("list output missing %q:\n%s", want, got)
		}
	}
	if strings.Index(got, "192.168.1.10") > strings.Index(got, "192.168.1.11") {
		t.Errorf("addresses not sorted:\n%s", got)
	}
}

func TestListEmpty(t *testing.T) {
	c, out, _ := newTestConsole(t, store.New(nil))
	c.Execute("list")
	if !strings.Contains(out.String(), "no peers") {
		t.Errorf("got %q", out.String())
	}
}

func TestShow(t *testing.T) {
	c, out, _ := newTestConsole(t, seeded(t))

	c.Execute("show 192.168.1.11")
	if got := out.String(); !strings.Contains(got, "60 GB") || !strings.Contains(got, "4") {
		t.Errorf("show output:\n%s", got)
	}

	out.Reset()
	c.Execute("show 10.9.9.9")
	if !strings.Contains(out.String(), "no data: peer '10.9.9.9': not found") {
		t.Errorf("missing address: %q", out.String())
	}

	out.Reset()
	c.Execute("show nonsense")
	if !strings.Contains(out.String(), "error:") {
		t.Errorf("invalid address: %q", out.String())
	}

	out.Reset()
	c.Execute("show")
	if !strings.Contains(out.String(), "usage: show <address>") {
		t.Errorf("missing argument: %q", out.String())
	}
}

func TestAverage(t *testing.T) {
	c, out, _ := newTestConsole(t, seeded(t))

	c.Execute("average")
	got := out.String()
	for _, want := range []string{"90.25 GB", "6", "3.1 GB"} {
		if !strings.Contains(got, want) {
			t.Errorf("average output missing %q:\n%s", want, got)
		}
	}
}

func TestAverageEmpty(t *testing.T) {
	c, out, _ := newTestConsole(t, store.New(nil))

	c.Execute("average")
	if got := out.String(); !strings.Contains(got, "no data") || strings.Contains(got, "NaN") {
		t.Errorf("empty average: %q", got)
	}

	out.Reset()
	c.Execute("summary")
	if !strings.Contains(out.String(), "no data") {
		t.Errorf("empty summary: %q", out.String())
	}
}

func TestAverageUnknownMetric(t *testing.T) {
	st := store.New(nil)
	if err := st.Merge("10.0.0.1", store.Record{CPUCount: store.Count(2)}); err != nil {
		t.Fatal(err)
	}
	c, out, _ := newTestConsole(t, st)

	c.Execute("average")
	got := out.String()
	if !strings.Contains(got, "no data") || !strings.Contains(got, "2") {
		t.Errorf("average with unknown sizes:\n%s", got)
	}
}

func TestSummary(t *testing.T) {
	c, out, _ := newTestConsole(t, seeded(t))

	c.Execute("summary")
	got := out.String()
	for _, want := range []string{"P50", "P90", "120.5 GB", "60 GB", "2 peer(s)"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary output missing %q:\n%s", want, got)
		}
	}
}

func TestStatus(t *testing.T) {
	c, out, _ := newTestConsole(t, seeded(t))

	c.Execute("status")
	got := out.String()
	for _, want := range []string{"peers:     2", "accepted:  1,200", "malformed: 3"} {
		if !strings.Contains(got, want) {
			t.Errorf("status output missing %q:\n%s", want, got)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	c, out, quits := newTestConsole(t, seeded(t))

	if c.Execute("frobnicate now") {
		t.Error("unknown command asked to quit")
	}
	if !strings.Contains(out.String(), `unknown command "frobnicate"`) {
		t.Errorf("got %q", out.String())
	}
	if c.Execute("   ") {
		t.Error("blank line asked to quit")
	}
	if *quits != 0 {
		t.Errorf("OnQuit called %d times", *quits)
	}
}

func TestQuit(t *testing.T) {
	c, _, quits := newTestConsole(t, seeded(t))

	if !c.Execute("QUIT") {
		t.Fatal("quit not recognized")
	}
	if !c.Execute("exit") {
		t.Fatal("exit not recognized")
	}
	if !c.Quitting() {
		t.Error("Quitting() = false")
	}
	if *quits != 1 {
		t.Errorf("OnQuit called %d times, want 1", *quits)
	}
}

func TestRunLines(t *testing.T) {
	c, out, quits := newTestConsole(t, seeded(t))

	in := strings.NewReader("help\nbogus\nlist\nquit\nlist\n")
	if err := c.Run(context.Background(), in); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "commands:") || !strings.Contains(got, "unknown command") {
		t.Errorf("output:\n%s", got)
	}
	if strings.Count(got, "ADDRESS") != 1 {
		t.Errorf("commands after quit were executed:\n%s", got)
	}
	if *quits != 1 {
		t.Errorf("OnQuit called %d times", *quits)
	}
}

func TestRunLinesEOF(t *testing.T) {
	c, _, quits := newTestConsole(t, seeded(t))

	if err := c.Run(context.Background(), strings.NewReader("list\n")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if *quits != 0 {
		t.Error("end of input must not quit the process")
	}
}

func TestRunLinesCancel(t *testing.T) {
	c, _, _ := newTestConsole(t, seeded(t))

	ctx, cancel := context.WithCancel(context.Background())
	r, w := newBlockingReader()
	defer w.Close()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, r) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestComplete(t *testing.T) {
	c, _, _ := newTestConsole(t, seeded(t))

	buf := prompt.NewBuffer()
	buf.InsertText("su", false, true)
	got := c.complete(*buf.Document())
	if len(got) != 1 || got[0].Text != "summary" {
		t.Errorf("complete(su) = %v", got)
	}

	buf = prompt.NewBuffer()
	buf.InsertText("show 192.168.1.1", false, true)
	got = c.complete(*buf.Document())
	if len(got) != 2 {
		t.Errorf("complete(show ...) = %v", got)
	}

	buf = prompt.NewBuffer()
	buf.InsertText("list x", false, true)
	if got := c.complete(*buf.Document()); len(got) != 0 {
		t.Errorf("complete(list x) = %v", got)
	}
}
