package tcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beka-birhanu/gridhunt-server/crypto"
	"github.com/beka-birhanu/gridhunt-server/game"
	"github.com/beka-birhanu/gridhunt-server/protocol"
	"github.com/google/uuid"
)

const (
	// handshakeReadLimit bounds the peer's public-value message. A 2048-bit
	// value is at most 617 decimal digits.
	handshakeReadLimit = 4096

	handshakeTimeout   = 10 * time.Second
	leaderboardTimeout = 3 * time.Second
)

// session is one connected client: the encrypted channel, the player entity
// and the command loop. It implements game.Conn so rooms can push frames to
// the peer directly.
type session struct {
	srv     *Server
	conn    net.Conn
	channel *crypto.DiffieHellmanChannel
	player  *game.Player

	writeMu sync.Mutex // serializes frames from the command loop and room broadcasts
}

// SendFrame delivers one protocol message to the peer.
func (s *session) SendFrame(message string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return protocol.Send(s.conn, s.channel, message)
}

// serveConn runs a connection end to end: handshake, registration, command
// loop, cleanup.
func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	channel, err := handshake(conn)
	if err != nil {
		s.logger.Printf("error while completing key exchange with %s: %s", conn.RemoteAddr(), err)
		return
	}

	sess := &session{
		srv:     s,
		conn:    conn,
		channel: channel,
	}
	sess.player = game.NewPlayer(uuid.New(), sess, conn.RemoteAddr().String())
	s.registry.AddClient(sess.player)
	s.logger.Printf("accepted connection with client: %s", sess.player.ID)

	defer func() {
		s.registry.Leave(sess.player)
		s.registry.RemoveClient(sess.player.ID)
		s.logger.Printf("client disconnected: %s", sess.player.ID)
	}()

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		msg, err := protocol.Receive(conn, channel)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				// Undecryptable stream, the channel is unusable.
				s.logger.Printf("error while reading from client %s: %s", sess.player.ID, err)
			}
			return
		}

		sess.dispatch(protocol.Parse(msg))
	}
}

// handshake performs the unauthenticated Diffie-Hellman exchange: the server
// sends its public value as a decimal string, the client replies in kind and
// both sides derive the shared key independently.
func handshake(conn net.Conn) (*crypto.DiffieHellmanChannel, error) {
	channel, err := crypto.NewDiffieHellmanChannel()
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(handshakeTimeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	defer conn.SetDeadline(time.Time{})

	if _, err := conn.Write([]byte(channel.PublicValue())); err != nil {
		return nil, err
	}

	buf := make([]byte, handshakeReadLimit)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}

	if err := channel.GenerateSharedKey(strings.TrimSpace(string(buf[:n]))); err != nil {
		return nil, err
	}
	return channel, nil
}

// dispatch routes one parsed command to its handler. Unknown verbs get an
// explicit error reply.
func (s *session) dispatch(cmd protocol.Command) {
	switch cmd.Verb {
	case "LOGIN":
		s.handleLogin(cmd)
	case "REGISTER":
		s.handleRegister(cmd)
	case "JOIN":
		s.handleJoin()
	case "JOIN_ROOM_NAME":
		s.handleJoinRoomName(cmd)
	case "CREATE":
		s.handleCreate()
	case "CREATE_BOT":
		s.handleCreateBot()
	case "VIEW":
		s.handleView()
	case "PLAYERS":
		s.handlePlayers()
	case "START":
		s.handleStart()
	case "LEAVE":
		s.handleLeave()
	case "STATUS":
		s.handleStatus()
	case "SCAN", "HACK", "EVADE", "ENCRYPT":
		s.handleAction(cmd)
	case "CHAT":
		s.handleChat(cmd)
	case "USERNAME":
		s.handleUsername()
	case "POSITION":
		s.handlePosition()
	case "LEADERBOARD":
		s.handleLeaderboard()
	case "END_TURN":
		s.handleEndTurn()
	default:
		s.reply(fmt.Sprintf("UNKNOWN_COMMAND verb=%s", cmd.Verb))
	}
}

// reply writes a frame, logging delivery failures. The read loop notices a
// dead connection on its next receive.
func (s *session) reply(message string) {
	if err := s.SendFrame(message); err != nil {
		s.srv.logger.Printf("error while writing to client %s: %s", s.player.ID, err)
	}
}

func (s *session) handleLogin(cmd protocol.Command) {
	username := cmd.Arg("username")
	password := cmd.Arg("password")

	if s.srv.registry.UsernameConnected(username) {
		s.reply(`LOGIN_FAIL reason="Invalid password or username"`)
		return
	}

	user, token, err := s.srv.auth.SignIn(username, password)
	if err != nil {
		s.reply(`LOGIN_FAIL reason="Invalid password or username"`)
		return
	}

	s.player.Username = user.Username
	s.reply(fmt.Sprintf("LOGIN_SUCCESS username=%s token=%s", user.Username, token))
}

func (s *session) handleRegister(cmd protocol.Command) {
	username := cmd.Arg("username")
	password := cmd.Arg("password")

	user, token, err := s.srv.auth.Register(username, password)
	if err != nil {
		s.reply(fmt.Sprintf("REGISTER_FAIL reason=%q", err.Error()))
		return
	}

	s.player.Username = user.Username
	s.reply(fmt.Sprintf("REGISTER_SUCCESS username=%s token=%s", user.Username, token))
}

func (s *session) handleJoin() {
	room, ok := s.srv.registry.JoinFirstOpen(s.player)
	if !ok {
		s.reply(`JOIN_FAIL reason="No room found"`)
		return
	}
	s.reply(fmt.Sprintf("ROOM_JOINED room_id=%d room_name=Room%d players=%d/4",
		room.ID, room.ID, room.PlayerCount()))
}

func (s *session) handleJoinRoomName(cmd protocol.Command) {
	name := cmd.Arg("room_name")
	if name == "" {
		s.reply(`JOIN_FAIL reason="No room name provided"`)
		return
	}

	room, ok := s.srv.registry.JoinByName(s.player, name)
	if !ok {
		s.reply(fmt.Sprintf("JOIN_ROOM_NAME_FAILED reason=\"Room %s not found or already started\"", name))
		return
	}
	s.reply(fmt.Sprintf("JOIN_ROOM_NAME room_id=%d room_name=Room%d players=%d/4",
		room.ID, room.ID, room.PlayerCount()))
}

func (s *session) handleCreate() {
	room := s.srv.registry.CreateRoom(s.player)
	s.reply(fmt.Sprintf("ROOM_CREATED room_id=%d room_name=Room%d", room.ID, room.ID))
}

func (s *session) handleCreateBot() {
	room := s.srv.registry.CreateBotRoom(s.player)
	s.reply(fmt.Sprintf("CREATE_BOT room_id=%d room_name=Room%d", room.ID, room.ID))
}

func (s *session) handleView() {
	infos := s.srv.registry.OpenRooms()
	if len(infos) == 0 {
		s.reply("VIEW_ROOM_LIST")
		return
	}

	entries := make([]string, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, fmt.Sprintf("%d=%s(%d/4)", info.ID, info.Name, info.PlayerCount))
	}
	s.reply("VIEW_ROOM_LIST " + strings.Join(entries, " "))
}

func (s *session) handlePlayers() {
	room, ok := s.srv.registry.RoomOf(s.player)
	if !ok {
		s.reply("PLAYERS")
		return
	}

	names, started := room.Usernames()
	s.reply(fmt.Sprintf("PLAYERS %s %t", strings.Join(names, " "), started))
}

func (s *session) handleStart() {
	room, ok := s.srv.registry.RoomOf(s.player)
	if !ok {
		s.reply("START_FAIL reason='Player not in a room'")
		return
	}

	switch err := room.Start(); {
	case errors.Is(err, game.ErrAlreadyStarted):
		s.reply("START_FAIL reason='Game already started'")
	case errors.Is(err, game.ErrNotEnoughPlayers):
		s.reply("START_FAIL reason='Not enough players to start the game'")
	}
	// On success every member, the requester included, got the STARTING
	// broadcast from the room.
}

func (s *session) handleLeave() {
	if !s.srv.registry.Leave(s.player) {
		s.reply(`LEAVE_FAIL reason="Not in a room."`)
		return
	}
	s.reply("LEAVE_SUCCESS")
}

func (s *session) handleStatus() {
	room, ok := s.srv.registry.RoomOf(s.player)
	if !ok {
		return
	}
	if err := room.BroadcastGameState(s); err != nil {
		s.srv.logger.Printf("error while writing to client %s: %s", s.player.ID, err)
	}
}

// handleAction translates an action verb into a game action. SCAN and HACK
// need board coordinates; a malformed coordinate is rejected without
// touching the room, so the turn is not consumed.
func (s *session) handleAction(cmd protocol.Command) {
	room, ok := s.srv.registry.RoomOf(s.player)
	if !ok {
		return
	}

	action := game.Action{}
	switch cmd.Verb {
	case "SCAN":
		action.Type = game.ActionScan
	case "HACK":
		action.Type = game.ActionHack
	case "EVADE":
		action.Type = game.ActionEvade
	case "ENCRYPT":
		action.Type = game.ActionEncrypt
	}

	if action.Type == game.ActionScan || action.Type == game.ActionHack {
		x, errX := strconv.Atoi(cmd.Arg("x"))
		y, errY := strconv.Atoi(cmd.Arg("y"))
		if errX != nil || errY != nil {
			s.reply(`ACTION_RESULT success=false msg="Malformed coordinates."`)
			return
		}
		action.X, action.Y = x, y
	}

	room.HandleAction(s.player, action)
}

func (s *session) handleChat(cmd protocol.Command) {
	room, ok := s.srv.registry.RoomOf(s.player)
	if !ok {
		return
	}

	// The message is everything after "msg=", spaces included, so it is
	// pulled from the raw frame rather than the tokenized args.
	message, ok := cmd.RawAfter("msg=")
	if !ok {
		return
	}

	room.AddChatMessage(s.player, message)
	s.reply("CHAT_SUCCESS")
}

func (s *session) handleUsername() {
	s.reply(fmt.Sprintf("USERNAME_SUCCESS %s", s.player.Username))
}

func (s *session) handlePosition() {
	room, ok := s.srv.registry.RoomOf(s.player)
	if !ok {
		return
	}

	x, y := room.EnsurePosition(s.player)
	s.reply(fmt.Sprintf("POSITION_SUCCESS %d %d", x, y))
}

type leaderboardError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (s *session) handleLeaderboard() {
	ctx, cancel := context.WithTimeout(context.Background(), leaderboardTimeout)
	defer cancel()

	ranked, err := s.srv.leaderboard.TopPlayers(ctx, s.srv.leaderboardSize)
	if err != nil {
		blob, _ := json.Marshal(leaderboardError{
			Type:    "ERROR",
			Message: fmt.Sprintf("Failed to get leaderboard: %s", err),
		})
		s.reply(string(blob))
		return
	}

	entries := make([]string, 0, len(ranked))
	for _, player := range ranked {
		entries = append(entries, fmt.Sprintf("%s:%d", player.Username, player.Wins))
	}

	// The whole reply is a JSON-encoded string, quotes included.
	blob, err := json.Marshal("LEADERBOARD " + strings.Join(entries, " "))
	if err != nil {
		s.srv.logger.Printf("error while encoding leaderboard: %s", err)
		return
	}
	s.reply(string(blob))
}

func (s *session) handleEndTurn() {
	if room, ok := s.srv.registry.RoomOf(s.player); ok {
		room.EndTurn(s.player)
	}
	s.reply("END_TURN")
}
