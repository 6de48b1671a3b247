package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/beka-birhanu/gridhunt-server/crypto"
	"github.com/beka-birhanu/gridhunt-server/game"
	"github.com/beka-birhanu/gridhunt-server/identity"
	"github.com/beka-birhanu/gridhunt-server/protocol"
	"github.com/beka-birhanu/gridhunt-server/service/i"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct{}

func (stubAuth) Register(username, password string) (*identity.User, string, error) {
	if username == "taken" {
		return nil, "", errors.New("username conflict")
	}
	return &identity.User{Username: username}, "token-" + username, nil
}

func (stubAuth) SignIn(username, password string) (*identity.User, string, error) {
	if password != "hunter2hunter2" {
		return nil, "", errors.New("invalid credentials")
	}
	return &identity.User{Username: username}, "token-" + username, nil
}

type stubLeaderboard struct {
	ranked []i.RankedPlayer
	err    error
}

func (s *stubLeaderboard) RecordWin(context.Context, string) error { return nil }

func (s *stubLeaderboard) TopPlayers(context.Context, int64) ([]i.RankedPlayer, error) {
	return s.ranked, s.err
}

func startTestServer(t *testing.T, lb i.Leaderboard) string {
	t.Helper()

	sched, err := game.NewScheduler(4)
	require.NoError(t, err)
	t.Cleanup(sched.Stop)

	registry, err := game.NewRegistry(game.RegistryConfig{
		Scheduler: sched,
		BotDelay:  time.Hour,
	})
	require.NoError(t, err)

	srv, err := NewServer(ServerConfig{
		ListenAddr:  "127.0.0.1:0",
		Registry:    registry,
		Auth:        stubAuth{},
		Leaderboard: lb,
	})
	require.NoError(t, err)

	go srv.Serve()
	t.Cleanup(srv.Stop)
	return srv.Addr().String()
}

// testClient speaks the real wire protocol: Diffie-Hellman handshake, then
// encrypted length-prefixed frames.
type testClient struct {
	conn    net.Conn
	channel *crypto.DiffieHellmanChannel
}

func dialTestServer(t *testing.T, addr string) *testClient {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	buf := make([]byte, handshakeReadLimit)
	n, err := conn.Read(buf)
	require.NoError(t, err)

	channel, err := crypto.NewDiffieHellmanChannel()
	require.NoError(t, err)
	require.NoError(t, channel.GenerateSharedKey(string(buf[:n])))
	_, err = conn.Write([]byte(channel.PublicValue()))
	require.NoError(t, err)

	return &testClient{conn: conn, channel: channel}
}

func (c *testClient) send(t *testing.T, message string) {
	t.Helper()
	require.NoError(t, protocol.Send(c.conn, c.channel, message))
}

func (c *testClient) recv(t *testing.T) string {
	t.Helper()
	message, err := protocol.Receive(c.conn, c.channel)
	require.NoError(t, err)
	return message
}

func TestUnknownVerbGetsExplicitError(t *testing.T) {
	addr := startTestServer(t, &stubLeaderboard{})
	client := dialTestServer(t, addr)

	client.send(t, "PING")
	assert.Equal(t, "UNKNOWN_COMMAND verb=PING", client.recv(t))
}

func TestRegisterAndUsername(t *testing.T) {
	addr := startTestServer(t, &stubLeaderboard{})
	client := dialTestServer(t, addr)

	client.send(t, "REGISTER username=alice password=hunter2hunter2")
	assert.Equal(t, "REGISTER_SUCCESS username=alice token=token-alice", client.recv(t))

	client.send(t, "USERNAME")
	assert.Equal(t, "USERNAME_SUCCESS alice", client.recv(t))
}

func TestRegisterConflict(t *testing.T) {
	addr := startTestServer(t, &stubLeaderboard{})
	client := dialTestServer(t, addr)

	client.send(t, "REGISTER username=taken password=hunter2hunter2")
	assert.Equal(t, `REGISTER_FAIL reason="username conflict"`, client.recv(t))
}

func TestLogin(t *testing.T) {
	addr := startTestServer(t, &stubLeaderboard{})
	client := dialTestServer(t, addr)

	client.send(t, "LOGIN username=alice password=wrong")
	assert.Equal(t, `LOGIN_FAIL reason="Invalid password or username"`, client.recv(t))

	client.send(t, "LOGIN username=alice password=hunter2hunter2")
	assert.Equal(t, "LOGIN_SUCCESS username=alice token=token-alice", client.recv(t))
}

func TestDoubleLoginRejected(t *testing.T) {
	addr := startTestServer(t, &stubLeaderboard{})

	first := dialTestServer(t, addr)
	first.send(t, "LOGIN username=alice password=hunter2hunter2")
	require.Equal(t, "LOGIN_SUCCESS username=alice token=token-alice", first.recv(t))

	second := dialTestServer(t, addr)
	second.send(t, "LOGIN username=alice password=hunter2hunter2")
	assert.Equal(t, `LOGIN_FAIL reason="Invalid password or username"`, second.recv(t))
}

func login(t *testing.T, addr, username string) *testClient {
	t.Helper()
	client := dialTestServer(t, addr)
	client.send(t, fmt.Sprintf("LOGIN username=%s password=hunter2hunter2", username))
	require.Equal(t, fmt.Sprintf("LOGIN_SUCCESS username=%s token=token-%s", username, username), client.recv(t))
	return client
}

func TestRoomLifecycleOverWire(t *testing.T) {
	addr := startTestServer(t, &stubLeaderboard{})

	alice := login(t, addr, "alice")
	bob := login(t, addr, "bob")

	alice.send(t, "CREATE")
	assert.Equal(t, "ROOM_CREATED room_id=0 room_name=Room0", alice.recv(t))

	bob.send(t, "VIEW")
	assert.Equal(t, "VIEW_ROOM_LIST 0=Room0(1/4)", bob.recv(t))

	bob.send(t, "JOIN")
	assert.Equal(t, "ROOM_JOINED room_id=0 room_name=Room0 players=2/4", bob.recv(t))

	alice.send(t, "PLAYERS")
	assert.Equal(t, "PLAYERS alice bob false", alice.recv(t))

	alice.send(t, "START")
	assert.Equal(t, "STARTING msg='The game has started!'", alice.recv(t))
	assert.Equal(t, "STARTING msg='The game has started!'", bob.recv(t))

	// Alice holds the first turn; bob's action is rejected.
	bob.send(t, "ENCRYPT")
	assert.Equal(t, `ACTION_RESULT success=false msg="It's not your turn!"`, bob.recv(t))

	alice.send(t, "ENCRYPT")
	assert.Equal(t, `ACTION_RESULT success=true msg="Your location is encrypted for the next turn."`, alice.recv(t))

	bob.send(t, "STATUS")
	status := bob.recv(t)
	assert.True(t, strings.HasPrefix(status, "STATUS alice=ALIVE bob=ALIVE"), status)
	assert.Contains(t, status, "|TURN username=bob")

	bob.send(t, "CHAT msg=see you on the grid")
	assert.Equal(t, "CHAT_SUCCESS", bob.recv(t))

	alice.send(t, "STATUS")
	assert.Contains(t, alice.recv(t), "|CHAT bob: see you on the grid")

	bob.send(t, "LEAVE")
	assert.Equal(t, "LEAVE_SUCCESS", bob.recv(t))
	bob.send(t, "LEAVE")
	assert.Equal(t, `LEAVE_FAIL reason="Not in a room."`, bob.recv(t))
}

func TestJoinByRoomName(t *testing.T) {
	addr := startTestServer(t, &stubLeaderboard{})

	alice := login(t, addr, "alice")
	alice.send(t, "CREATE")
	require.Equal(t, "ROOM_CREATED room_id=0 room_name=Room0", alice.recv(t))

	bob := login(t, addr, "bob")
	bob.send(t, "JOIN_ROOM_NAME room_name=room0")
	assert.Equal(t, "JOIN_ROOM_NAME room_id=0 room_name=Room0 players=2/4", bob.recv(t))

	carol := login(t, addr, "carol")
	carol.send(t, "JOIN_ROOM_NAME room_name=Room9")
	assert.Equal(t, `JOIN_ROOM_NAME_FAILED reason="Room Room9 not found or already started"`, carol.recv(t))
}

func TestMalformedActionCoordinatesDoNotConsumeTurn(t *testing.T) {
	addr := startTestServer(t, &stubLeaderboard{})

	alice := login(t, addr, "alice")
	bob := login(t, addr, "bob")
	alice.send(t, "CREATE")
	require.Equal(t, "ROOM_CREATED room_id=0 room_name=Room0", alice.recv(t))
	bob.send(t, "JOIN")
	require.Equal(t, "ROOM_JOINED room_id=0 room_name=Room0 players=2/4", bob.recv(t))
	alice.send(t, "START")
	require.Equal(t, "STARTING msg='The game has started!'", alice.recv(t))
	require.Equal(t, "STARTING msg='The game has started!'", bob.recv(t))

	alice.send(t, "SCAN x=one y=2")
	assert.Equal(t, `ACTION_RESULT success=false msg="Malformed coordinates."`, alice.recv(t))

	// The turn was not consumed, a well-formed scan still works.
	alice.send(t, "SCAN x=0 y=0")
	assert.True(t, strings.HasPrefix(alice.recv(t), "ACTION_RESULT success=true"))
}

func TestLeaderboardReplyIsJSONWrapped(t *testing.T) {
	addr := startTestServer(t, &stubLeaderboard{ranked: []i.RankedPlayer{
		{Username: "alice", Wins: 3},
		{Username: "bob", Wins: 1},
	}})
	client := dialTestServer(t, addr)

	client.send(t, "LEADERBOARD")
	assert.Equal(t, `"LEADERBOARD alice:3 bob:1"`, client.recv(t))
}

func TestLeaderboardFailureReply(t *testing.T) {
	addr := startTestServer(t, &stubLeaderboard{err: errors.New("redis down")})
	client := dialTestServer(t, addr)

	client.send(t, "LEADERBOARD")
	assert.Equal(t, `{"type":"ERROR","message":"Failed to get leaderboard: redis down"}`, client.recv(t))
}

func TestCreateBotRoom(t *testing.T) {
	addr := startTestServer(t, &stubLeaderboard{})
	alice := login(t, addr, "alice")

	alice.send(t, "CREATE_BOT")
	assert.Equal(t, "CREATE_BOT room_id=0 room_name=Room0", alice.recv(t))

	alice.send(t, "PLAYERS")
	assert.Equal(t, "PLAYERS alice BOT1 BOT2 BOT3 true", alice.recv(t))

	alice.send(t, "POSITION")
	assert.True(t, strings.HasPrefix(alice.recv(t), "POSITION_SUCCESS "))
}

func TestEndTurnReply(t *testing.T) {
	addr := startTestServer(t, &stubLeaderboard{})
	client := dialTestServer(t, addr)

	client.send(t, "END_TURN")
	assert.Equal(t, "END_TURN", client.recv(t))
}
