package events

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"nathanbeddoewebdev/shots/internal/orchestrator"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeConn struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
	closed   bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func (c *fakeConn) Drain() error { c.drained = true; return nil }
func (c *fakeConn) Close()       { c.closed = true }

func decode(t *testing.T, data []byte) Message {
	t.Helper()
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("payload is not a Message: %v\n%s", err, data)
	}
	return m
}

func TestEmit(t *testing.T) {
	nc := &fakeConn{}
	p := newPublisher(nc, "", nil)

	ev := orchestrator.Event{
		RunID:      "run-1",
		Time:       time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		Kind:       orchestrator.EventSnapshotRequested,
		InstanceID: "i-1",
		VolumeID:   "vol-1",
		SnapshotID: "snap-1",
	}
	p.Emit(ev)

	if diff := cmp.Diff([]string{DefaultSubject}, nc.subjects); diff != "" {
		t.Errorf("subjects (-want +got):\n%s", diff)
	}
	m := decode(t, nc.payloads[0])
	if m.Type != TypeEvent || m.Report != nil {
		t.Fatalf("unexpected envelope: %+v", m)
	}
	if diff := cmp.Diff(ev, *m.Event); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestPublishReport(t *testing.T) {
	nc := &fakeConn{}
	p := newPublisher(nc, "backups.teamx", nil)

	p.PublishReport(&orchestrator.Report{
		RunID:     "run-1",
		Operation: "snapshot",
		Results: []orchestrator.InstanceResult{
			{InstanceID: "i-1", Outcome: orchestrator.OutcomeFailed, Err: errors.New("boom")},
		},
		Counts: orchestrator.Counts{Failed: 1},
	})
	p.PublishReport(nil)

	if len(nc.payloads) != 1 {
		t.Fatalf("expected 1 message, got %d", len(nc.payloads))
	}
	if nc.subjects[0] != "backups.teamx" {
		t.Errorf("subject = %q", nc.subjects[0])
	}
	m := decode(t, nc.payloads[0])
	if m.Type != TypeReport || m.Report == nil || m.Report.Counts.Failed != 1 {
		t.Errorf("unexpected report message: %+v", m)
	}
}

func TestEmit_PublishErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	nc := &fakeConn{err: errors.New("nats: connection closed")}
	p := newPublisher(nc, "", zap.New(core))

	p.Emit(orchestrator.Event{Kind: orchestrator.EventError})

	entries := logs.FilterMessage("publish event").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(entries))
	}
}

func TestClose(t *testing.T) {
	nc := &fakeConn{}
	p := newPublisher(nc, "", nil)

	p.Close()

	if !nc.drained || !nc.closed {
		t.Errorf("expected drain and close, got drained=%v closed=%v", nc.drained, nc.closed)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", "", nil)
	if err == nil {
		t.Fatal("expected connection error")
	}
}
