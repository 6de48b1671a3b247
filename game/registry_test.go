package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(RegistryConfig{
		Scheduler: newTestScheduler(t),
		BotDelay:  time.Hour, // keep bots idle unless a test wants them
	})
	require.NoError(t, err)
	return reg
}

func TestNewRegistryRequiresScheduler(t *testing.T) {
	_, err := NewRegistry(RegistryConfig{})
	assert.Error(t, err)
}

func TestCreateRoomAssignsSequentialIDs(t *testing.T) {
	reg := newTestRegistry(t)

	p1, _ := newTestPlayer("alice")
	p2, _ := newTestPlayer("bob")
	r1 := reg.CreateRoom(p1)
	r2 := reg.CreateRoom(p2)

	assert.Equal(t, 0, r1.ID)
	assert.Equal(t, 1, r2.ID)
	assert.Equal(t, 0, p1.RoomID)
	assert.Equal(t, 1, p2.RoomID)
}

func TestCreateRoomNeverReusesLiveID(t *testing.T) {
	reg := newTestRegistry(t)

	p1, _ := newTestPlayer("alice")
	p2, _ := newTestPlayer("bob")
	reg.CreateRoom(p1)
	reg.CreateRoom(p2)
	require.True(t, reg.Leave(p1)) // frees id 0, id 1 stays live

	p3, _ := newTestPlayer("carol")
	r3 := reg.CreateRoom(p3)
	assert.NotEqual(t, 1, r3.ID, "an occupied id must not be overwritten")
}

func TestJoinFirstOpenPrefersLowestID(t *testing.T) {
	reg := newTestRegistry(t)

	p1, _ := newTestPlayer("alice")
	p2, _ := newTestPlayer("bob")
	reg.CreateRoom(p1)
	reg.CreateRoom(p2)

	joiner, _ := newTestPlayer("carol")
	room, ok := reg.JoinFirstOpen(joiner)
	require.True(t, ok)
	assert.Equal(t, 0, room.ID)
	assert.Equal(t, 2, room.PlayerCount())
}

func TestJoinFirstOpenSkipsStartedRooms(t *testing.T) {
	reg := newTestRegistry(t)

	p1, _ := newTestPlayer("alice")
	p2, _ := newTestPlayer("bob")
	r1 := reg.CreateRoom(p1)
	_, ok := reg.JoinFirstOpen(p2)
	require.True(t, ok)
	require.NoError(t, r1.Start())

	joiner, _ := newTestPlayer("carol")
	_, ok = reg.JoinFirstOpen(joiner)
	assert.False(t, ok, "no open room left to join")
}

func TestJoinByNameIsCaseInsensitive(t *testing.T) {
	reg := newTestRegistry(t)

	p1, _ := newTestPlayer("alice")
	reg.CreateRoom(p1)

	joiner, _ := newTestPlayer("bob")
	room, ok := reg.JoinByName(joiner, "room0")
	require.True(t, ok)
	assert.Equal(t, 0, room.ID)

	stranger, _ := newTestPlayer("carol")
	_, ok = reg.JoinByName(stranger, "Room9")
	assert.False(t, ok)
}

func TestCreateBotRoomStartsImmediately(t *testing.T) {
	reg := newTestRegistry(t)

	p, _ := newTestPlayer("alice")
	room := reg.CreateBotRoom(p)

	assert.True(t, room.Started())
	assert.Equal(t, maxPlayers, room.PlayerCount())
	assert.True(t, p.TurnReady, "the human moves first")

	names, started := room.Usernames()
	assert.True(t, started)
	assert.Equal(t, []string{"alice", "BOT1", "BOT2", "BOT3"}, names)
}

func TestOpenRoomsExcludesStarted(t *testing.T) {
	reg := newTestRegistry(t)

	p1, _ := newTestPlayer("alice")
	p2, _ := newTestPlayer("bob")
	reg.CreateRoom(p1)
	reg.CreateBotRoom(p2) // started, should not be listed

	infos := reg.OpenRooms()
	require.Len(t, infos, 1)
	assert.Equal(t, RoomInfo{ID: 0, Name: "Room0", PlayerCount: 1}, infos[0])
}

func TestLeaveDestroysEmptyRoom(t *testing.T) {
	reg := newTestRegistry(t)

	p, _ := newTestPlayer("alice")
	reg.CreateRoom(p)
	require.True(t, reg.Leave(p))

	assert.Equal(t, NoRoom, p.RoomID)
	assert.Empty(t, reg.OpenRooms())
	assert.False(t, reg.Leave(p), "leaving twice is a no-op")
}

func TestLeaveClosesBotOnlyRoom(t *testing.T) {
	reg := newTestRegistry(t)

	p, _ := newTestPlayer("alice")
	room := reg.CreateBotRoom(p)
	require.True(t, reg.Leave(p))

	room.mu.Lock()
	closed := room.closed
	room.mu.Unlock()
	assert.True(t, closed, "a room with only bots left must stop")

	reg.roomsMu.Lock()
	_, live := reg.rooms[room.ID]
	reg.roomsMu.Unlock()
	assert.False(t, live)
}

func TestUsernameConnected(t *testing.T) {
	reg := newTestRegistry(t)

	p, _ := newTestPlayer("alice")
	reg.AddClient(p)

	assert.True(t, reg.UsernameConnected("alice"))
	assert.False(t, reg.UsernameConnected("bob"))

	reg.RemoveClient(p.ID)
	assert.False(t, reg.UsernameConnected("alice"))
}
