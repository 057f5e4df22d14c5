package session

import (
	"testing"

	"github.com/example/shared-rooms/domain/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory_RegisterAndRemove(t *testing.T) {
	d := NewDirectory(4)

	s, err := d.Register("c1", room.Metadata{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", s.Metadata.IP)
	assert.False(t, s.ConnectedAt.IsZero())
	assert.Equal(t, 1, d.Count())

	_, err = d.Register("c1", room.Metadata{})
	assert.ErrorIs(t, err, ErrSessionExists)

	assert.True(t, d.Remove("c1"))
	assert.False(t, d.Remove("c1"), "second remove is a no-op")
	assert.Equal(t, 0, d.Count())

	_, open := <-s.Outbox()
	assert.False(t, open, "outbox is closed on remove")
}

func TestDirectory_EnqueueOverflow(t *testing.T) {
	d := NewDirectory(2)
	_, err := d.Register("c1", room.Metadata{})
	require.NoError(t, err)

	require.NoError(t, d.Enqueue("c1", []byte("a")))
	require.NoError(t, d.Enqueue("c1", []byte("b")))
	assert.ErrorIs(t, d.Enqueue("c1", []byte("c")), ErrOutboxFull)
	assert.ErrorIs(t, d.Enqueue("ghost", []byte("x")), ErrUnknownSession)
}

func TestDirectory_EnqueueAfterRemove(t *testing.T) {
	d := NewDirectory(2)
	s, err := d.Register("c1", room.Metadata{})
	require.NoError(t, err)
	d.Remove("c1")

	assert.ErrorIs(t, s.enqueue([]byte("late")), ErrUnknownSession)
}

func TestDirectory_AdminCapability(t *testing.T) {
	d := NewDirectory(1)
	for _, id := range []string{"b", "a", "c"} {
		_, err := d.Register(id, room.Metadata{})
		require.NoError(t, err)
	}

	require.NoError(t, d.GrantAdmin("b"))
	require.NoError(t, d.GrantAdmin("a"))
	assert.ErrorIs(t, d.GrantAdmin("ghost"), ErrUnknownSession)

	assert.True(t, d.IsAdmin("a"))
	assert.False(t, d.IsAdmin("c"))
	assert.Equal(t, []string{"a", "b"}, d.AdminIDs())

	d.Remove("a")
	assert.False(t, d.IsAdmin("a"), "capability is revoked on disconnect")
	assert.Equal(t, []string{"b"}, d.AdminIDs())
}

func TestDirectory_CloseAll(t *testing.T) {
	d := NewDirectory(1)
	_, _ = d.Register("a", room.Metadata{})
	_, _ = d.Register("b", room.Metadata{})

	assert.Equal(t, 2, d.CloseAll())
	assert.Equal(t, 0, d.Count())
}
