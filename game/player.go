package game

import "github.com/google/uuid"

// NoRoom marks a player that is not assigned to any room.
const NoRoom = -1

// Conn is the write side of a player's connection. The TCP session
// implements it over the encrypted framing; bots use NullConn.
type Conn interface {
	// SendFrame delivers one protocol message to the peer.
	SendFrame(message string) error
}

// NullConn discards every write. It backs bot players, which have no real
// network connection but travel through the same code paths as humans.
type NullConn struct{}

func (NullConn) SendFrame(string) error { return nil }

// Position is a cell on the board.
type Position struct {
	X int
	Y int
}

// Player is the per-connection game entity. Username and RoomID are set by
// the connection loop under the registry's client lock before room
// assignment; all remaining fields are mutated only under the owning room's
// mutex once the player is in a room.
type Player struct {
	ID        uuid.UUID // opaque connection id issued at accept time
	Conn      Conn
	Addr      string
	Username  string
	RoomID    int
	Pos       *Position
	Alive     bool
	Encrypted bool // hidden from SCAN until the start of the player's next turn
	TurnReady bool
	IsBot     bool
}

// NewPlayer creates a connected player with no username or room yet.
func NewPlayer(id uuid.UUID, conn Conn, addr string) *Player {
	return &Player{
		ID:     id,
		Conn:   conn,
		Addr:   addr,
		RoomID: NoRoom,
		Alive:  true,
	}
}

// NewBot creates a server-local synthetic player.
func NewBot(username string) *Player {
	return &Player{
		ID:       uuid.New(),
		Conn:     NullConn{},
		Username: username,
		RoomID:   NoRoom,
		Alive:    true,
		IsBot:    true,
	}
}
