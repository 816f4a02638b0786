package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quadpong-server/internal/game"
)

// newTestServer builds a server without the background tasks, so tests drive
// every state change themselves.
func newTestServer() *Server {
	return &Server{
		startedAt:   time.Now(),
		connections: NewConnectionManager(),
		registry:    NewRegistry(game.DefaultCanvasSize),
		limiter:     NewRateLimiter(rateLimitPerSecond, rateLimitBurst),
		done:        make(chan struct{}),
	}
}

type wsClient struct {
	conn *websocket.Conn
	ctx  context.Context
}

func (c *wsClient) send(t *testing.T, msg string) {
	t.Helper()
	require.NoError(t, c.conn.Write(c.ctx, websocket.MessageText, []byte(msg)))
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (c *wsClient) read(t *testing.T) inboundMessage {
	t.Helper()
	_, data, err := c.conn.Read(c.ctx)
	require.NoError(t, err)

	var msg inboundMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func (c *wsClient) readPayload(t *testing.T, wantType string, out interface{}) {
	t.Helper()
	msg := c.read(t)
	require.Equal(t, wantType, msg.Type)
	require.NoError(t, json.Unmarshal(msg.Payload, out))
}

func startTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := newTestServer()
	ts := httptest.NewServer(s.RegisterRoutes())
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *wsClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/websocket"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	return &wsClient{conn: conn, ctx: ctx}
}

// Test: ping answers pong with a server timestamp.
func TestWebsocketPing(t *testing.T) {
	_, ts := startTestServer(t)
	c := dial(t, ts)

	c.send(t, `{"type":"ping"}`)

	var pong PongResponse
	c.readPayload(t, "pong", &pong)
	assert.Greater(t, pong.Timestamp, int64(0))
}

// Test: joining gives the first player the right seat, the gamemaster role
// and a full state snapshot; the second player lands left and the first hears
// player_joined.
func TestWebsocketJoinRoomFlow(t *testing.T) {
	_, ts := startTestServer(t)

	alice := dial(t, ts)
	alice.send(t, `{"type":"join_room","playerId":"alice","roomId":"main"}`)

	var joined JoinedRoomResponse
	alice.readPayload(t, "joined_room", &joined)
	assert.Equal(t, "main", joined.RoomID)
	assert.Equal(t, game.SideRight, joined.Side)
	assert.True(t, joined.IsGamemaster)
	assert.Equal(t, 1, joined.PlayerCount)
	require.NotNil(t, joined.GameState)
	assert.True(t, joined.GameState.ShowStartScreen)

	bob := dial(t, ts)
	bob.send(t, `{"type":"join_room","playerId":"bob","roomId":"main"}`)

	var bobJoined JoinedRoomResponse
	bob.readPayload(t, "joined_room", &bobJoined)
	assert.Equal(t, game.SideLeft, bobJoined.Side)
	assert.False(t, bobJoined.IsGamemaster)

	var note PlayerJoinedNotification
	alice.readPayload(t, "player_joined", &note)
	assert.Equal(t, "bob", note.PlayerID)
	assert.Equal(t, game.SideLeft, note.Side)
	assert.Equal(t, 2, note.PlayerCount)
}

// Test: the compact envelope spelling joins just the same.
func TestWebsocketCompactJoin(t *testing.T) {
	_, ts := startTestServer(t)
	c := dial(t, ts)

	c.send(t, `{"t":"jr","p":"alice","r":"t1"}`)

	var joined JoinedRoomResponse
	c.readPayload(t, "joined_room", &joined)
	assert.Equal(t, "t1", joined.RoomID)
	assert.Equal(t, game.SideRight, joined.Side)
}

// Test: join validation failures come back as error replies on the sender's
// own socket.
func TestWebsocketJoinValidation(t *testing.T) {
	_, ts := startTestServer(t)

	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"missing player id", `{"type":"join_room","roomId":"main"}`, "PLAYER_ID_INVALID"},
		{"empty room id", `{"type":"join_room","playerId":"alice","roomId":""}`, "ROOM_ID_INVALID"},
		{"room id too long", `{"type":"join_room","playerId":"alice","roomId":"` + strings.Repeat("x", 40) + `"}`, "ROOM_ID_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := dial(t, ts)
			c.send(t, tt.msg)

			var errMsg ErrorMessage
			c.readPayload(t, "error", &errMsg)
			assert.Contains(t, errMsg.Message, tt.want)
		})
	}
}

// Test: malformed JSON gets an error reply and the connection stays usable.
func TestWebsocketInvalidJSON(t *testing.T) {
	_, ts := startTestServer(t)
	c := dial(t, ts)

	c.send(t, `{"type":`)

	var errMsg ErrorMessage
	c.readPayload(t, "error", &errMsg)
	assert.Equal(t, "Invalid JSON", errMsg.Message)

	c.send(t, `{"type":"ping"}`)
	var pong PongResponse
	c.readPayload(t, "pong", &pong)
}

// Test: unknown operation names are ignored without a reply.
func TestWebsocketUnknownTypeIgnored(t *testing.T) {
	_, ts := startTestServer(t)
	c := dial(t, ts)

	c.send(t, `{"type":"bogus"}`)
	c.send(t, `{"type":"ping"}`)

	// The first reply must be the pong; an error for "bogus" would arrive
	// ahead of it.
	msg := c.read(t)
	assert.Equal(t, "pong", msg.Type)
}

// Test: a paddle update from the seat owner reaches the other player but not
// the sender.
func TestWebsocketPaddleUpdateFanout(t *testing.T) {
	_, ts := startTestServer(t)

	alice := dial(t, ts)
	alice.send(t, `{"type":"join_room","playerId":"alice","roomId":"main"}`)
	var joined JoinedRoomResponse
	alice.readPayload(t, "joined_room", &joined)

	bob := dial(t, ts)
	bob.send(t, `{"type":"join_room","playerId":"bob","roomId":"main"}`)
	bob.readPayload(t, "joined_room", &joined)
	var ignore PlayerJoinedNotification
	alice.readPayload(t, "player_joined", &ignore)

	// alice holds right.
	alice.send(t, `{"t":"up","p":"alice","d":{"side":"right","position":300,"velocity":-2}}`)

	var note PaddleUpdatedNotification
	bob.readPayload(t, "paddle_updated", &note)
	assert.Equal(t, game.SideRight, note.Side)
	assert.Equal(t, 300.0, note.Position)

	// The sender gets no echo: the next thing alice hears is her own pong.
	alice.send(t, `{"type":"ping","playerId":"alice"}`)
	msg := alice.read(t)
	assert.Equal(t, "pong", msg.Type)
}

// Test: closing a socket runs the departure path, so the peer hears
// player_left with the gamemaster role moving on.
func TestWebsocketDisconnectNotifiesPeers(t *testing.T) {
	_, ts := startTestServer(t)

	alice := dial(t, ts)
	alice.send(t, `{"type":"join_room","playerId":"alice","roomId":"main"}`)
	var joined JoinedRoomResponse
	alice.readPayload(t, "joined_room", &joined)

	bob := dial(t, ts)
	bob.send(t, `{"type":"join_room","playerId":"bob","roomId":"main"}`)
	bob.readPayload(t, "joined_room", &joined)
	var ignore PlayerJoinedNotification
	alice.readPayload(t, "player_joined", &ignore)

	require.NoError(t, alice.conn.Close(websocket.StatusNormalClosure, "done"))

	// bob inherits the gamemaster role, then hears the departure.
	var gm GamemasterAssignedNotification
	bob.readPayload(t, "gamemaster_assigned", &gm)
	assert.Equal(t, "bob", gm.PlayerID)

	var left PlayerLeftNotification
	bob.readPayload(t, "player_left", &left)
	assert.Equal(t, "alice", left.PlayerID)
	assert.Equal(t, game.SideRight, left.Side)
	assert.Equal(t, "none", left.ReplacementType)
}

// Test: rejoining with the same player id on a fresh socket evicts the old
// registration, and the stale socket's later teardown leaves the new one
// alone.
// Why: the close path must check connection ownership, or a lingering socket
// would remove the live player and trigger a spurious player_left.
func TestWebsocketRejoinSurvivesStaleSocketClose(t *testing.T) {
	s, ts := startTestServer(t)

	first := dial(t, ts)
	first.send(t, `{"type":"join_room","playerId":"alice","roomId":"main"}`)
	var joined JoinedRoomResponse
	first.readPayload(t, "joined_room", &joined)

	second := dial(t, ts)
	second.send(t, `{"type":"join_room","playerId":"alice","roomId":"main"}`)
	second.readPayload(t, "joined_room", &joined)
	assert.Equal(t, game.SideRight, joined.Side)

	require.NoError(t, first.conn.Close(websocket.StatusNormalClosure, "stale"))

	// Wait for the server to finish tearing the stale socket down.
	require.Eventually(t, func() bool { return s.connections.Count() == 1 },
		2*time.Second, 10*time.Millisecond)

	player, ok := s.registry.GetPlayer("alice")
	require.True(t, ok, "the rejoined player must survive the stale socket's teardown")
	assert.Equal(t, game.SideRight, player.Side)

	// And the surviving socket is still live.
	second.send(t, `{"type":"ping","playerId":"alice"}`)
	msg := second.read(t)
	assert.Equal(t, "pong", msg.Type)
}

// Test: /health reports counts from the live registry.
func TestHealthEndpoint(t *testing.T) {
	s, ts := startTestServer(t)
	mustJoin(t, s.registry, "main", "a")

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Rooms)
	assert.Equal(t, 1, health.Players)
}

// Test: CORS preflight is answered without touching the handlers.
func TestCORSPreflight(t *testing.T) {
	_, ts := startTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/health", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
