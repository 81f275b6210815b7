package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeConn satisfies Conn and captures frames for assertions
type fakeConn struct {
	mu     sync.Mutex
	fail   bool
	closed bool
	frames chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 64)}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return errors.New("broken pipe")
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	f.frames <- buf
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) breakPipe() {
	f.mu.Lock()
	f.fail = true
	f.mu.Unlock()
}

func recvEnvelope(t *testing.T, f *fakeConn) Envelope {
	t.Helper()
	select {
	case raw := <-f.frames:
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("invalid frame %s: %v", raw, err)
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Envelope{}
	}
}

func expectSilence(t *testing.T, f *fakeConn) {
	t.Helper()
	select {
	case raw := <-f.frames:
		t.Fatalf("unexpected frame: %s", raw)
	case <-time.After(100 * time.Millisecond):
	}
}

func waitCount(t *testing.T, r *Registry, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.Count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("registry count = %d, want %d", r.Count(), want)
}

func payload(t *testing.T, env Envelope) map[string]any {
	t.Helper()
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("envelope data is %T, want object", env.Data)
	}
	return data
}

func TestRegisterSendsConfirmation(t *testing.T) {
	r := NewRegistry()
	fc := newFakeConn()

	id := r.Register(fc, "console-1")
	if id != "console-1" {
		t.Errorf("Register returned %q, want console-1", id)
	}

	env := recvEnvelope(t, fc)
	if env.Type != EventConnection {
		t.Errorf("confirmation type = %q, want %q", env.Type, EventConnection)
	}
	if got := payload(t, env)["client_id"]; got != "console-1" {
		t.Errorf("confirmation client_id = %v, want console-1", got)
	}
	if env.Timestamp.IsZero() {
		t.Error("confirmation timestamp is zero")
	}

	if r.Count() != 1 {
		t.Errorf("count = %d, want 1", r.Count())
	}
}

func TestRegisterGeneratesClientID(t *testing.T) {
	r := NewRegistry()

	a := r.Register(newFakeConn(), "")
	b := r.Register(newFakeConn(), "")

	if a == "" || b == "" {
		t.Fatal("generated client ids must be non-empty")
	}
	if a == b {
		t.Errorf("generated ids collide: %q", a)
	}
}

func TestBroadcastMembership(t *testing.T) {
	r := NewRegistry()
	fc1 := newFakeConn()
	fc2 := newFakeConn()

	r.Register(fc1, "c1")
	r.Register(fc2, "c2")
	recvEnvelope(t, fc1) // connection confirmations
	recvEnvelope(t, fc2)

	r.Broadcast(NewEnvelope("incident_status", map[string]any{"n": 1}), "")
	if env := recvEnvelope(t, fc1); env.Type != "incident_status" {
		t.Errorf("c1 got %q, want incident_status", env.Type)
	}
	if env := recvEnvelope(t, fc2); env.Type != "incident_status" {
		t.Errorf("c2 got %q, want incident_status", env.Type)
	}

	r.Unregister("c1")
	waitCount(t, r, 1)

	r.Broadcast(NewEnvelope("incident_status", map[string]any{"n": 2}), "")
	if env := recvEnvelope(t, fc2); payload(t, env)["n"] != float64(2) {
		t.Errorf("c2 second payload = %v, want 2", env.Data)
	}
	expectSilence(t, fc1)
}

func TestBroadcastExcludesClient(t *testing.T) {
	r := NewRegistry()
	fc1 := newFakeConn()
	fc2 := newFakeConn()

	r.Register(fc1, "c1")
	r.Register(fc2, "c2")
	recvEnvelope(t, fc1)
	recvEnvelope(t, fc2)

	r.Broadcast(NewEnvelope("new_notification", nil), "c1")

	if env := recvEnvelope(t, fc2); env.Type != "new_notification" {
		t.Errorf("c2 got %q, want new_notification", env.Type)
	}
	expectSilence(t, fc1)
}

func TestSendToUnknownClientIsNoOp(t *testing.T) {
	r := NewRegistry()
	fc := newFakeConn()
	r.Register(fc, "c1")
	recvEnvelope(t, fc)

	r.SendTo("ghost", NewEnvelope("pong", nil))
	r.Unregister("ghost")

	if r.Count() != 1 {
		t.Errorf("count = %d, want 1", r.Count())
	}
	expectSilence(t, fc)
}

func TestUnregisterIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Register(newFakeConn(), "c1")

	r.Unregister("c1")
	r.Unregister("c1")

	if r.Count() != 0 {
		t.Errorf("count = %d, want 0", r.Count())
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	r := NewRegistry()
	r.Register(newFakeConn(), "c1")
	r.Register(newFakeConn(), "fresh")

	// double subscribe then double unsubscribe ends where it began
	r.Subscribe("c1", "traffic_update")
	r.Subscribe("c1", "traffic_update")
	r.Unsubscribe("c1", "traffic_update")
	r.Unsubscribe("c1", "traffic_update")

	for _, info := range r.Snapshot() {
		if len(info.Subscriptions) != 0 {
			t.Errorf("client %s has subscriptions %v, want none", info.ClientID, info.Subscriptions)
		}
	}

	// empty tags are rejected, unknown clients are a no-op
	r.Subscribe("c1", "")
	r.Subscribe("ghost", "traffic_update")

	for _, info := range r.Snapshot() {
		if len(info.Subscriptions) != 0 {
			t.Errorf("client %s has subscriptions %v, want none", info.ClientID, info.Subscriptions)
		}
	}
}

func TestBroadcastFiltered(t *testing.T) {
	r := NewRegistry()
	subscribed := newFakeConn()
	other := newFakeConn()

	r.Register(subscribed, "sub")
	r.Register(other, "other")
	recvEnvelope(t, subscribed)
	recvEnvelope(t, other)

	r.Subscribe("sub", "traffic_update")

	r.BroadcastFiltered(NewEnvelope("traffic_update", nil), "traffic_update")

	if env := recvEnvelope(t, subscribed); env.Type != "traffic_update" {
		t.Errorf("subscriber got %q, want traffic_update", env.Type)
	}
	expectSilence(t, other)
}

func TestWriteFailureDropsClient(t *testing.T) {
	r := NewRegistry()
	broken := newFakeConn()
	healthy := newFakeConn()

	r.Register(healthy, "healthy")
	recvEnvelope(t, healthy)

	r.Register(broken, "broken")
	// the confirmation write fails, which is an implicit disconnect
	broken.breakPipe()

	r.Broadcast(NewEnvelope("incident_status", nil), "")
	waitCount(t, r, 1)

	// delivery to the healthy client is unaffected
	if env := recvEnvelope(t, healthy); env.Type != "incident_status" {
		t.Errorf("healthy got %q, want incident_status", env.Type)
	}

	r.Broadcast(NewEnvelope("incident_status", nil), "")
	if env := recvEnvelope(t, healthy); env.Type != "incident_status" {
		t.Errorf("healthy got %q after drop, want incident_status", env.Type)
	}
}

func TestPerClientDeliveryOrder(t *testing.T) {
	r := NewRegistry()
	fc := newFakeConn()
	r.Register(fc, "c1")
	recvEnvelope(t, fc)

	const n = 20
	for i := 0; i < n; i++ {
		r.SendTo("c1", NewEnvelope("seq", map[string]any{"i": i}))
	}

	for i := 0; i < n; i++ {
		env := recvEnvelope(t, fc)
		if got := payload(t, env)["i"]; got != float64(i) {
			t.Fatalf("message %d arrived out of order: got %v", i, got)
		}
	}
}

func TestSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Register(newFakeConn(), "b")
	r.Register(newFakeConn(), "a")
	r.Subscribe("a", "incident_status")
	r.Subscribe("a", "vehicle_location")

	infos := r.Snapshot()
	if len(infos) != 2 {
		t.Fatalf("snapshot has %d entries, want 2", len(infos))
	}
	if infos[0].ClientID != "a" || infos[1].ClientID != "b" {
		t.Errorf("snapshot order: %v", infos)
	}
	want := []string{"incident_status", "vehicle_location"}
	if fmt.Sprint(infos[0].Subscriptions) != fmt.Sprint(want) {
		t.Errorf("subscriptions = %v, want %v", infos[0].Subscriptions, want)
	}
	if infos[0].ConnectedAt.IsZero() {
		t.Error("connected_at is zero")
	}
}

func TestCloseDropsEveryone(t *testing.T) {
	r := NewRegistry()
	r.Register(newFakeConn(), "c1")
	r.Register(newFakeConn(), "c2")

	r.Close()

	if r.Count() != 0 {
		t.Errorf("count after Close = %d, want 0", r.Count())
	}
}
