package game

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Room-related errors.
var (
	ErrRoomFull         = errors.New("room is full")
	ErrAlreadyStarted   = errors.New("game already started")
	ErrNotEnoughPlayers = errors.New("not enough players to start the game")
)

const (
	maxPlayers        = 4
	minPlayersToStart = 2

	maxChatMessages = 4
	chatSeparator   = " // "
)

// Room is one isolated game instance: up to four players, a 6x6 board and
// the turn state machine. All state-machine mutation happens under the
// room's mutex; the chat FIFO has its own nested lock so chat appends never
// block turn processing.
type Room struct {
	ID int

	mu        sync.Mutex
	players   []*Player
	board     Board
	turnIndex int
	started   bool
	gameOver  bool
	closed    bool

	chatMu sync.Mutex
	chat   []string

	sched    *Scheduler
	botDelay time.Duration
	onWin    func(username string)
}

// NewRoom creates an empty, waiting room. onWin is invoked off the room's
// lock at most once, when a human wins.
func NewRoom(id int, sched *Scheduler, botDelay time.Duration, onWin func(string)) *Room {
	return &Room{
		ID:       id,
		sched:    sched,
		botDelay: botDelay,
		onWin:    onWin,
	}
}

// AddPlayer appends a player in join order. Reaching four players starts the
// game immediately.
func (r *Room) AddPlayer(p *Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started || r.closed {
		return ErrAlreadyStarted
	}
	if len(r.players) >= maxPlayers {
		return ErrRoomFull
	}

	r.players = append(r.players, p)
	p.RoomID = r.ID

	if len(r.players) == maxPlayers {
		r.begin()
	}
	return nil
}

// Start begins the game on an explicit request. Requires at least two
// players and an unstarted game; every member is notified.
func (r *Room) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrAlreadyStarted
	}
	if len(r.players) < minPlayersToStart {
		return ErrNotEnoughPlayers
	}

	r.begin()
	for _, p := range r.players {
		_ = p.Conn.SendFrame("STARTING msg='The game has started!'")
	}
	return nil
}

// begin transitions WAITING -> IN_PROGRESS: spawn every player on a unique
// random empty cell and hand the turn to the first living player in join
// order. A player already placed before the start (POSITION request) keeps
// their cell so they never occupy two. Caller holds r.mu.
func (r *Room) begin() {
	r.started = true
	for _, p := range r.players {
		if p.Pos != nil {
			continue
		}
		x, y := r.board.RandomEmptyCell()
		r.board.Place(p, x, y)
	}
	r.startTurn()
}

// startTurn makes the player at turnIndex the turn-holder, skipping forward
// past dead players. The new holder's encryption wears off before anything
// else happens on their turn. Caller holds r.mu and guarantees at least one
// living player.
func (r *Room) startTurn() {
	for !r.players[r.turnIndex].Alive {
		r.turnIndex = (r.turnIndex + 1) % len(r.players)
	}

	current := r.players[r.turnIndex]
	current.TurnReady = true
	current.Encrypted = false

	if current.IsBot && !r.closed && !r.gameOver {
		r.sched.Once(r.botDelay, func() {
			r.takeBotTurn(current)
		})
	}
}

// endTurn passes the turn to the next living player. Once at most one
// player is left alive the game is over and the turn stops advancing; win
// detection is authoritative.
func (r *Room) endTurn() {
	current := r.players[r.turnIndex]
	current.TurnReady = false

	if r.aliveCount() <= 1 {
		r.latchWinner()
		return
	}

	r.turnIndex = (r.turnIndex + 1) % len(r.players)
	r.startTurn()
}

func (r *Room) aliveCount() int {
	n := 0
	for _, p := range r.players {
		if p.Alive {
			n++
		}
	}
	return n
}

// latchWinner marks the game over exactly once and records the win, unless
// the winner is a bot. The leaderboard write runs on the scheduler pool, off
// the room's lock. Caller holds r.mu.
func (r *Room) latchWinner() {
	if r.gameOver || !r.started {
		return
	}

	var winner *Player
	for _, p := range r.players {
		if p.Alive {
			if winner != nil {
				return // more than one alive, nothing to latch
			}
			winner = p
		}
	}
	if winner == nil {
		return
	}

	r.gameOver = true
	if !winner.IsBot && r.onWin != nil {
		username := winner.Username
		r.sched.Post(func() { r.onWin(username) })
	}
}

// HandleAction validates and executes one action for p. Only the living
// turn-holder may act; every accepted action consumes the turn. The result
// is sent back on p's connection.
func (r *Room) HandleAction(p *Player, a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if !p.TurnReady {
		r.sendActionResult(p, false, "It's not your turn!")
		return
	}
	if !p.Alive {
		r.sendActionResult(p, false, "You are eliminated.")
		return
	}

	var msg string
	switch a.Type {
	case ActionScan:
		msg = r.scan(p, a.X, a.Y)
	case ActionHack:
		msg = r.hack(p, a.X, a.Y)
	case ActionEvade:
		msg = r.evade(p)
	case ActionEncrypt:
		msg = r.encrypt(p)
	default:
		return
	}

	r.sendActionResult(p, true, msg)
	r.endTurn()
}

func (r *Room) sendActionResult(p *Player, success bool, msg string) {
	_ = p.Conn.SendFrame(fmt.Sprintf("ACTION_RESULT success=%t msg=%q", success, msg))
}

// scan examines the 3x3 neighborhood around (x, y), clamped to the board,
// for any other living, non-encrypted player. It never reveals who or
// exactly where.
func (r *Room) scan(p *Player, x, y int) string {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			nx, ny := x+dx, y+dy
			if !r.board.InBounds(nx, ny) {
				continue
			}
			for _, other := range r.players {
				if other == p || !other.Alive || other.Encrypted || other.Pos == nil {
					continue
				}
				if other.Pos.X == nx && other.Pos.Y == ny {
					return "Scan found suspicious activity nearby."
				}
			}
		}
	}
	return "Scan revealed no threats nearby."
}

// hack eliminates a living player occupying exactly (x, y). The victim
// stays on their board cell.
func (r *Room) hack(p *Player, x, y int) string {
	for _, other := range r.players {
		if other == p || !other.Alive || other.Pos == nil {
			continue
		}
		if other.Pos.X == x && other.Pos.Y == y {
			other.Alive = false
			return fmt.Sprintf("Hack successful. Player %s eliminated!", other.Username)
		}
	}
	return "Hack failed. No player at this location."
}

// evade vacates the player's cell and relocates them to a random empty one.
func (r *Room) evade(p *Player) string {
	if p.Pos != nil {
		r.board.Clear(p.Pos.X, p.Pos.Y)
	}
	x, y := r.board.RandomEmptyCell()
	r.board.Place(p, x, y)
	return fmt.Sprintf("Evade successful. You moved to a new location. %d %d", x, y)
}

// encrypt hides the player from SCAN until the start of their next turn.
func (r *Room) encrypt(p *Player) string {
	p.Encrypted = true
	return "Your location is encrypted for the next turn."
}

// EndTurn passes the turn on an explicit END_TURN request. Only the current
// turn-holder may pass.
func (r *Room) EndTurn(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started || r.gameOver || r.closed || !p.TurnReady {
		return
	}
	r.endTurn()
}

// BroadcastGameState writes the full room state to one connection: per-player
// alive flags, the current turn-holder, the winner once exactly one player
// remains alive, and the chat tail.
func (r *Room) BroadcastGameState(to Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) == 0 {
		return nil
	}

	parts := make([]string, 0, len(r.players))
	for _, p := range r.players {
		state := "ALIVE"
		if !p.Alive {
			state = "DEAD"
		}
		parts = append(parts, fmt.Sprintf("%s=%s", p.Username, state))
	}
	statusMsg := "STATUS " + strings.Join(parts, " ")

	turnMsg := "|TURN username=" + r.players[r.turnIndex].Username

	winnerMsg := "|WINNER "
	if r.started && r.aliveCount() == 1 {
		for _, p := range r.players {
			if p.Alive {
				winnerMsg += "username=" + p.Username
				break
			}
		}
		r.latchWinner()
	}

	chatMsg := "|CHAT " + r.chatLine()

	return to.SendFrame(statusMsg + turnMsg + winnerMsg + chatMsg)
}

// AddChatMessage appends to the bounded chat FIFO, evicting the oldest entry
// beyond four messages.
func (r *Room) AddChatMessage(p *Player, message string) {
	r.chatMu.Lock()
	defer r.chatMu.Unlock()

	if len(r.chat) >= maxChatMessages {
		r.chat = r.chat[1:]
	}
	r.chat = append(r.chat, fmt.Sprintf("%s: %s", p.Username, message))
}

func (r *Room) chatLine() string {
	r.chatMu.Lock()
	defer r.chatMu.Unlock()
	return strings.Join(r.chat, chatSeparator)
}

// EnsurePosition returns the player's cell, assigning a random empty one if
// the player has not been placed yet.
func (r *Room) EnsurePosition(p *Player) (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.Pos == nil {
		x, y := r.board.RandomEmptyCell()
		r.board.Place(p, x, y)
	}
	return p.Pos.X, p.Pos.Y
}

// RemovePlayer detaches p from the room and resets their game state.
// Returns the number of players left; the caller destroys the room at zero.
func (r *Room) RemovePlayer(p *Player) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, member := range r.players {
		if member == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return len(r.players)
	}

	wasTurnHolder := p.TurnReady
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	if p.Pos != nil && r.board.At(p.Pos.X, p.Pos.Y) == p {
		r.board.Clear(p.Pos.X, p.Pos.Y)
	}
	p.RoomID = NoRoom
	p.Pos = nil
	p.Alive = true
	p.Encrypted = false
	p.TurnReady = false

	if len(r.players) == 0 {
		return 0
	}

	// Keep turnIndex pointing at a valid slot after the removal.
	if idx < r.turnIndex {
		r.turnIndex--
	}
	if r.turnIndex >= len(r.players) {
		r.turnIndex = 0
	}
	if wasTurnHolder && r.started && !r.gameOver && r.aliveCount() > 0 {
		r.startTurn()
	}
	return len(r.players)
}

// Close permanently stops the room. Pending bot turns become no-ops.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// Started reports whether the game has begun.
func (r *Room) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// GameOver reports whether a winner has been latched.
func (r *Room) GameOver() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gameOver
}

// PlayerCount returns the current number of players.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Usernames returns the member names in join order plus the started flag.
func (r *Room) Usernames() ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.players))
	for _, p := range r.players {
		names = append(names, p.Username)
	}
	return names, r.started
}

// HasHumans reports whether any non-bot player remains.
func (r *Room) HasHumans() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.players {
		if !p.IsBot {
			return true
		}
	}
	return false
}
