package game

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RoomInfo is a read-only view of one room for listings.
type RoomInfo struct {
	ID          int
	Name        string
	PlayerCount int
}

// RegistryConfig holds the dependencies of a Registry.
type RegistryConfig struct {
	Scheduler *Scheduler
	BotDelay  time.Duration
	// OnWin records a human player's win. Called at most once per game.
	OnWin func(username string)
}

// Registry owns every room and connected client in the process. It is
// created once and injected into the connection loop; there is no global
// state. Two locks guard the two maps and are never held across a call into
// a room's own mutex-taking method except on the creation/join paths, where
// the ordering is always rooms lock first, room lock second.
type Registry struct {
	roomsMu sync.Mutex
	rooms   map[int]*Room

	clientsMu sync.Mutex
	clients   map[uuid.UUID]*Player

	sched    *Scheduler
	botDelay time.Duration
	onWin    func(string)
}

// NewRegistry creates an empty Registry.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Scheduler == nil {
		return nil, errors.New("scheduler is required")
	}
	return &Registry{
		rooms:    make(map[int]*Room),
		clients:  make(map[uuid.UUID]*Player),
		sched:    cfg.Scheduler,
		botDelay: cfg.BotDelay,
		onWin:    cfg.OnWin,
	}, nil
}

// AddClient registers a connected player under its connection id.
func (g *Registry) AddClient(p *Player) {
	g.clientsMu.Lock()
	defer g.clientsMu.Unlock()
	g.clients[p.ID] = p
}

// RemoveClient drops a connection's player.
func (g *Registry) RemoveClient(id uuid.UUID) {
	g.clientsMu.Lock()
	defer g.clientsMu.Unlock()
	delete(g.clients, id)
}

// UsernameConnected reports whether a logged-in client already uses the
// username. Guards against double login.
func (g *Registry) UsernameConnected(username string) bool {
	g.clientsMu.Lock()
	defer g.clientsMu.Unlock()

	for _, p := range g.clients {
		if p.Username == username {
			return true
		}
	}
	return false
}

// newRoomLocked allocates a room id from the current room count, skipping
// past ids still in use after earlier deletions. Caller holds roomsMu.
func (g *Registry) newRoomLocked() *Room {
	id := len(g.rooms)
	for {
		if _, taken := g.rooms[id]; !taken {
			break
		}
		id++
	}
	room := NewRoom(id, g.sched, g.botDelay, g.onWin)
	g.rooms[id] = room
	return room
}

// CreateRoom makes a new room with creator as its first member.
func (g *Registry) CreateRoom(creator *Player) *Room {
	g.roomsMu.Lock()
	defer g.roomsMu.Unlock()

	room := g.newRoomLocked()
	_ = room.AddPlayer(creator)
	return room
}

// CreateBotRoom makes a room holding creator plus three bots. The fourth
// join starts the game immediately, with the creator as first turn-holder.
func (g *Registry) CreateBotRoom(creator *Player) *Room {
	g.roomsMu.Lock()
	defer g.roomsMu.Unlock()

	room := g.newRoomLocked()
	_ = room.AddPlayer(creator)
	for _, name := range []string{"BOT1", "BOT2", "BOT3"} {
		_ = room.AddPlayer(NewBot(name))
	}
	return room
}

// JoinFirstOpen adds p to the lowest-id room that has not started and has
// space.
func (g *Registry) JoinFirstOpen(p *Player) (*Room, bool) {
	g.roomsMu.Lock()
	defer g.roomsMu.Unlock()

	for _, id := range g.sortedRoomIDsLocked() {
		room := g.rooms[id]
		if err := room.AddPlayer(p); err == nil {
			return room, true
		}
	}
	return nil, false
}

// JoinByName adds p to the named room ("Room<id>", case-insensitive) if it
// has not started.
func (g *Registry) JoinByName(p *Player, name string) (*Room, bool) {
	g.roomsMu.Lock()
	defer g.roomsMu.Unlock()

	for _, id := range g.sortedRoomIDsLocked() {
		room := g.rooms[id]
		if strings.EqualFold(roomName(id), name) {
			if err := room.AddPlayer(p); err != nil {
				return nil, false
			}
			return room, true
		}
	}
	return nil, false
}

// RoomOf returns the room p is assigned to.
func (g *Registry) RoomOf(p *Player) (*Room, bool) {
	if p.RoomID == NoRoom {
		return nil, false
	}

	g.roomsMu.Lock()
	defer g.roomsMu.Unlock()
	room, ok := g.rooms[p.RoomID]
	return room, ok
}

// Leave removes p from its room. Emptied rooms are destroyed, as are rooms
// left with only bots in them.
func (g *Registry) Leave(p *Player) bool {
	room, ok := g.RoomOf(p)
	if !ok {
		return false
	}

	remaining := room.RemovePlayer(p)
	if remaining == 0 || !room.HasHumans() {
		room.Close()
		g.roomsMu.Lock()
		delete(g.rooms, room.ID)
		g.roomsMu.Unlock()
	}
	return true
}

// OpenRooms lists rooms that are still accepting joins, in id order.
func (g *Registry) OpenRooms() []RoomInfo {
	g.roomsMu.Lock()
	defer g.roomsMu.Unlock()

	infos := make([]RoomInfo, 0, len(g.rooms))
	for _, id := range g.sortedRoomIDsLocked() {
		room := g.rooms[id]
		if room.Started() {
			continue
		}
		infos = append(infos, RoomInfo{
			ID:          id,
			Name:        roomName(id),
			PlayerCount: room.PlayerCount(),
		})
	}
	return infos
}

func (g *Registry) sortedRoomIDsLocked() []int {
	ids := make([]int, 0, len(g.rooms))
	for id := range g.rooms {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func roomName(id int) string {
	return "Room" + strconv.Itoa(id)
}
