package admin

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/example/shared-rooms/domain/room"
	"github.com/example/shared-rooms/modules/broadcast"
	"github.com/example/shared-rooms/modules/credential"
	"github.com/example/shared-rooms/modules/guard"
	"github.com/example/shared-rooms/modules/rooms"
	"github.com/example/shared-rooms/modules/session"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
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

type frame struct {
	Type    string          `json:"type"`
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

type harness struct {
	dir      *session.Directory
	router   *broadcast.Router
	registry *rooms.Registry
	guard    *guard.Guard
	mirror   *Mirror
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return h.now }

	hasher := credential.NewHasherWithCost(bcrypt.MinCost)
	hash, err := hasher.Hash("admin-secret")
	require.NoError(t, err)
	cipher, err := credential.NewCipher("room-key")
	require.NoError(t, err)

	h.dir = session.NewDirectory(64)
	h.router = broadcast.NewRouter(h.dir, &mockLogger{})
	h.guard = guard.New(guard.DefaultConfig()).WithClock(clock)
	h.registry = rooms.NewRegistry(rooms.DefaultConfig(), cipher, h.guard, h.router).WithClock(clock)
	h.mirror = NewMirror(h.registry, h.dir, h.guard, hasher, hash, h.router)
	h.router.SetAdminSource(h.mirror)
	return h
}

func (h *harness) connect(t *testing.T, id string) *session.Session {
	t.Helper()
	s, err := h.dir.Register(id, room.Metadata{})
	require.NoError(t, err)
	return s
}

func (h *harness) frames(t *testing.T, s *session.Session) []frame {
	t.Helper()
	h.router.Drain()
	var out []frame
	for {
		select {
		case data := <-s.Outbox():
			var f frame
			require.NoError(t, json.Unmarshal(data, &f))
			out = append(out, f)
		default:
			return out
		}
	}
}

func frameTypes(frames []frame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.Type
	}
	return out
}

func TestMirror_LoginShowsDecryptedPasswordsAndStats(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "A")
	adm := h.connect(t, "admin")

	_, err := h.registry.Join(rooms.JoinRequest{Room: "Alpha", Password: "secret123", Name: "Alice", ConnID: "A"})
	require.NoError(t, err)
	h.router.Drain()

	require.NoError(t, h.mirror.Login("admin", "admin-secret"))
	assert.True(t, h.dir.IsAdmin("admin"))

	frames := h.frames(t, adm)
	require.Len(t, frames, 1)
	assert.Equal(t, broadcast.EventAdminAuthenticated, frames[0].Type)

	var snap broadcast.AdminSnapshot
	require.NoError(t, json.Unmarshal(frames[0].Payload, &snap))
	require.Len(t, snap.Rooms, 1)
	assert.Equal(t, "secret123", snap.Rooms[0].Password)
	assert.Equal(t, 1, snap.Stats.ActiveRooms)
	assert.Equal(t, 1, snap.Stats.ActiveUsers)
}

func TestMirror_OneSnapshotPerMutation(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "A")
	h.connect(t, "B")
	adm := h.connect(t, "admin")
	require.NoError(t, h.mirror.Login("admin", "admin-secret"))
	h.frames(t, adm)

	_, err := h.registry.Join(rooms.JoinRequest{Room: "Alpha", Password: "pw", Name: "Alice", ConnID: "A"})
	require.NoError(t, err)
	_, err = h.registry.Join(rooms.JoinRequest{Room: "Alpha", Password: "pw", Name: "Bob", ConnID: "B"})
	require.NoError(t, err)
	_, err = h.registry.PostMessage("Alpha", "B", "hello")
	require.NoError(t, err)
	require.NoError(t, h.registry.EditText("Alpha", "", "text", "A"))

	assert.Equal(t, []string{
		broadcast.EventAdminSnapshot,
		broadcast.EventAdminSnapshot,
		broadcast.EventAdminSnapshot,
		broadcast.EventAdminSnapshot,
	}, frameTypes(h.frames(t, adm)))
}

func TestMirror_WrongPasswordAndLockout(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "admin")

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, h.mirror.Login("admin", "guess"), room.ErrWrongPassword)
	}
	assert.ErrorIs(t, h.mirror.Login("admin", "admin-secret"), room.ErrLockedOut)
	assert.False(t, h.dir.IsAdmin("admin"))

	h.now = h.now.Add(time.Minute + time.Second)
	require.NoError(t, h.mirror.Login("admin", "admin-secret"))
	assert.True(t, h.dir.IsAdmin("admin"))
}

func TestMirror_EmptyPassword(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "admin")
	assert.ErrorIs(t, h.mirror.Login("admin", ""), room.ErrEmptyField)
	assert.Equal(t, 0, h.guard.Failures())
}

func TestMirror_ModerationRequiresCapability(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "A")
	h.connect(t, "B")
	h.connect(t, "admin")

	_, err := h.registry.Join(rooms.JoinRequest{Room: "Alpha", Password: "pw", Name: "Alice", ConnID: "A"})
	require.NoError(t, err)
	_, err = h.registry.Join(rooms.JoinRequest{Room: "Alpha", Password: "pw", Name: "Bob", ConnID: "B"})
	require.NoError(t, err)
	msg, err := h.registry.PostMessage("Alpha", "A", "owner says hi")
	require.NoError(t, err)

	_, err = h.mirror.DeleteRoom("B", "Alpha")
	assert.ErrorIs(t, err, room.ErrNotAdmin)
	_, _, err = h.mirror.Kick("B", "Alpha", "A")
	assert.ErrorIs(t, err, room.ErrNotAdmin)
	_, err = h.mirror.DeleteMessage("B", "Alpha", msg.ID)
	assert.ErrorIs(t, err, room.ErrNotAdmin)

	require.NoError(t, h.mirror.Login("admin", "admin-secret"))

	ok, err := h.mirror.DeleteMessage("admin", "Alpha", msg.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	p, ok, err := h.mirror.Kick("admin", "Alpha", "B")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Bob", p.Name)

	ok, err = h.mirror.DeleteRoom("admin", "Alpha")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, h.registry.Count())
}

func TestMirror_CapabilityRevokedOnDisconnect(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "admin")
	require.NoError(t, h.mirror.Login("admin", "admin-secret"))

	h.dir.Remove("admin")
	_, err := h.mirror.DeleteRoom("admin", "Alpha")
	assert.ErrorIs(t, err, room.ErrNotAdmin)
}

func TestMirror_Stats(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "A")
	_, err := h.registry.Join(rooms.JoinRequest{Room: "Alpha", Password: "pw", Name: "Alice", ConnID: "A"})
	require.NoError(t, err)
	h.now = h.now.Add(5 * time.Second)

	stats := h.mirror.Stats()
	assert.Equal(t, 1, stats.ActiveRooms)
	assert.Equal(t, int64(5000), stats.AverageSessionMillis)
	require.NotNil(t, stats.MostPopularRoom)
	assert.Equal(t, "Alpha", stats.MostPopularRoom.Name)
}
