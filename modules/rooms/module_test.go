package rooms

import (
	"context"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestModule_Name(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	m := NewModule(f.reg, &mockLogger{})
	assert.Equal(t, "rooms", m.Name())
	assert.Same(t, f.reg, m.Registry())
}

func TestModule_StartStop(t *testing.T) {
	f := newFixture(t, Config{SweepInterval: time.Hour})
	m := NewModule(f.reg, &mockLogger{})
	ctx := context.Background()

	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Stop(ctx))
	require.NoError(t, m.Stop(ctx), "stop is idempotent")
}

func TestModule_StopWithoutStart(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	m := NewModule(f.reg, &mockLogger{})
	assert.NoError(t, m.Stop(context.Background()))
}

func TestModule_SweepUpdatesHealth(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	m := NewModule(f.reg, &mockLogger{})

	f.mustJoin(t, "Empty", "pw", "Bob", "B")
	f.reg.Leave("Empty", "B")
	f.clock.Advance(2 * time.Hour)

	m.sweep(f.clock.Now())

	h := m.Health(context.Background())
	assert.True(t, h.Healthy)
	assert.Equal(t, 0, h.Details["rooms"])
	assert.Equal(t, 1, h.Details["swept_total"])
	assert.Equal(t, f.clock.Now(), h.Details["last_sweep"])
}

func TestModule_HandleListRooms(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	m := NewModule(f.reg, &mockLogger{})
	f.mustJoin(t, "Beta", "pw", "Bob", "B")
	f.mustJoin(t, "Alpha", "pw", "Alice", "A")
	f.mustJoin(t, "Alpha", "pw", "Carol", "C")

	resp, err := m.handleListRooms(context.Background(), ListRoomsRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Rooms, 2)
	assert.Equal(t, "Alpha", resp.Rooms[0].Name)
	assert.Equal(t, 2, resp.Rooms[0].Members)
	assert.Equal(t, "Beta", resp.Rooms[1].Name)
}

func TestNewRoomsAdapter_NilContainerPanics(t *testing.T) {
	assert.Panics(t, func() { NewRoomsAdapter(nil) })
}
