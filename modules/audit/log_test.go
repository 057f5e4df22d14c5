package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/example/shared-rooms/events"
	"github.com/go-monolith/mono/pkg/types"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

func TestLog_RecentNewestFirst(t *testing.T) {
	l := NewLog(3)
	for i := 0; i < 5; i++ {
		l.Add(events.ModerationEvent{Action: events.ActionRoomCreated, Room: fmt.Sprintf("r%d", i)})
	}

	got := l.Recent(0)
	if len(got) != 3 {
		t.Fatalf("Recent(0) returned %d entries, want 3", len(got))
	}
	for i, want := range []string{"r4", "r3", "r2"} {
		if got[i].Room != want {
			t.Errorf("entry %d = %q, want %q", i, got[i].Room, want)
		}
	}

	if got := l.Recent(1); len(got) != 1 || got[0].Room != "r4" {
		t.Errorf("Recent(1) = %+v, want r4", got)
	}
	if n := l.Counts()[events.ActionRoomCreated]; n != 5 {
		t.Errorf("count = %d, want 5", n)
	}
}

func TestLog_PartiallyFilled(t *testing.T) {
	l := NewLog(0)
	if got := l.Recent(10); len(got) != 0 {
		t.Fatalf("empty log returned %d entries", len(got))
	}

	l.Add(events.ModerationEvent{Action: events.ActionMemberKicked})
	l.Add(events.ModerationEvent{Action: events.ActionMemberBanned})
	got := l.Recent(10)
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Action != events.ActionMemberBanned {
		t.Errorf("newest = %s, want %s", got[0].Action, events.ActionMemberBanned)
	}
}

func TestModule_HandleAndHealth(t *testing.T) {
	m := NewModule(10, &mockLogger{})
	if m.Name() != "audit" {
		t.Errorf("Name() = %q, want audit", m.Name())
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	evs := []events.ModerationEvent{
		{Action: events.ActionRoomCreated, Room: "Alpha", ActorID: "a", Timestamp: at},
		{Action: events.ActionGuardTripped, Detail: "locked", Timestamp: at.Add(time.Second)},
		{Action: events.ActionMemberKicked, Room: "Alpha", ByAdmin: true, Timestamp: at.Add(2 * time.Second)},
	}
	for _, ev := range evs {
		if err := m.handle(ctx, ev, nil); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}

	h := m.Health(ctx)
	if !h.Healthy {
		t.Error("expected healthy")
	}
	if h.Details["guard_tripped"] != int64(1) {
		t.Errorf("guard_tripped = %v, want 1", h.Details["guard_tripped"])
	}
	if h.Details["last_event_at"] != at.Add(2*time.Second) {
		t.Errorf("last_event_at = %v", h.Details["last_event_at"])
	}
	if len(m.Log().Recent(0)) != 3 {
		t.Errorf("expected 3 retained entries")
	}

	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
