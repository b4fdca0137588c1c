package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dyerandrew14/chatchilllaunch-sub000/internal/config"
	"github.com/dyerandrew14/chatchilllaunch-sub000/internal/core/domain"
	"github.com/dyerandrew14/chatchilllaunch-sub000/internal/core/service"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		Addr:      ":0",
		LobbyRoom: "waiting-room",
		// Long enough that a cooldown never expires mid-test.
		Cooldown:     time.Hour,
		MessageRate:  100,
		MessageBurst: 200,
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*httptest.Server, *service.Matchmaker) {
	t.Helper()
	mm := service.New(cfg.LobbyRoom, cfg.Cooldown, zerolog.Nop())
	srv := httptest.NewServer(NewHandler(mm, cfg).NewRouter())
	t.Cleanup(srv.Close)
	t.Cleanup(mm.Shutdown)
	return srv, mm
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg domain.ClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func read(t *testing.T, conn *websocket.Conn) domain.ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m domain.ServerMessage
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func readType(t *testing.T, conn *websocket.Conn, typ string) domain.ServerMessage {
	t.Helper()
	m := read(t, conn)
	require.Equal(t, typ, m.Type)
	return m
}

func registerClient(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	conn := dial(t, srv)
	send(t, conn, domain.ClientMessage{Type: domain.TypeRegister, UserID: userID})
	ack := readType(t, conn, domain.TypeRegistered)
	require.Equal(t, userID, ack.UserID)
	return conn
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	registerClient(t, srv, "u1")

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
		Rooms   int    `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Clients)
	assert.Equal(t, 0, body.Rooms)
}

func TestMessageBeforeRegisterRejected(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	conn := dial(t, srv)

	send(t, conn, domain.ClientMessage{Type: domain.TypeJoin, RoomID: "waiting-room"})
	errMsg := readType(t, conn, domain.TypeError)
	assert.Contains(t, errMsg.Message, "not registered")

	// The connection stays open; registering afterwards still works.
	send(t, conn, domain.ClientMessage{Type: domain.TypeRegister, UserID: "late"})
	readType(t, conn, domain.TypeRegistered)
}

func TestMalformedMessageRejected(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	conn := registerClient(t, srv, "u1")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":`)))
	errMsg := readType(t, conn, domain.TypeError)
	assert.Contains(t, errMsg.Message, "malformed")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"vip-upgrade"}`)))
	errMsg = readType(t, conn, domain.TypeError)
	assert.Contains(t, errMsg.Message, "unknown message type")
}

func TestNamedRoomJoinAndRelay(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	c1 := registerClient(t, srv, "u1")
	c2 := registerClient(t, srv, "u2")

	send(t, c1, domain.ClientMessage{Type: domain.TypeJoin, RoomID: "den"})
	joined := readType(t, c1, domain.TypeRoomJoined)
	assert.Equal(t, "den", joined.RoomID)
	assert.Empty(t, joined.Users)

	send(t, c2, domain.ClientMessage{Type: domain.TypeJoin, RoomID: "den"})
	joined = readType(t, c2, domain.TypeRoomJoined)
	assert.Equal(t, []string{"u1"}, joined.Users)

	notif := readType(t, c1, domain.TypeUserJoined)
	assert.Equal(t, "u2", notif.UserID)

	send(t, c1, domain.ClientMessage{
		Type:         domain.TypeICECandidate,
		RoomID:       "den",
		TargetUserID: "u2",
		Candidate:    json.RawMessage(`{"candidate":"candidate:0 1 udp"}`),
	})
	fwd := readType(t, c2, domain.TypeICECandidate)
	assert.Equal(t, "u1", fwd.SenderID)
	assert.JSONEq(t, `{"candidate":"candidate:0 1 udp"}`, string(fwd.Candidate))

	send(t, c1, domain.ClientMessage{
		Type:         domain.TypeOffer,
		RoomID:       "den",
		TargetUserID: "ghost",
		SDP:          json.RawMessage(`{}`),
	})
	errMsg := readType(t, c1, domain.TypeError)
	assert.Contains(t, errMsg.Message, "target user is not connected")
}

// Walks the whole consumer flow: anonymous pairing, offer relay,
// leaving, and the re-join cooldown.
func TestLobbyPairingScenario(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	c1 := registerClient(t, srv, "u1")
	c2 := registerClient(t, srv, "u2")

	send(t, c1, domain.ClientMessage{Type: domain.TypeJoin, RoomID: "waiting-room"})
	joined := readType(t, c1, domain.TypeRoomJoined)
	assert.Equal(t, "waiting-room", joined.RoomID)
	assert.Empty(t, joined.Users)

	send(t, c2, domain.ClientMessage{Type: domain.TypeJoin, RoomID: "waiting-room"})
	p1 := readType(t, c1, domain.TypePaired)
	p2 := readType(t, c2, domain.TypePaired)

	require.Equal(t, p1.RoomID, p2.RoomID)
	assert.Equal(t, "u2", p1.PartnerID)
	assert.Equal(t, "u1", p2.PartnerID)
	assert.NotEqual(t, p1.Initiator, p2.Initiator)

	send(t, c1, domain.ClientMessage{
		Type:         domain.TypeOffer,
		RoomID:       p1.RoomID,
		TargetUserID: "u2",
		SDP:          json.RawMessage(`{"type":"offer","sdp":"v=0"}`),
	})
	offer := readType(t, c2, domain.TypeOffer)
	assert.Equal(t, "u1", offer.SenderID)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(offer.SDP))

	send(t, c1, domain.ClientMessage{Type: domain.TypeLeave, RoomID: p1.RoomID})
	left := readType(t, c2, domain.TypeUserLeft)
	assert.Equal(t, "u1", left.UserID)

	// Both return to the lobby. Each is inside its cooldown window,
	// so neither pairs again.
	send(t, c2, domain.ClientMessage{Type: domain.TypeJoin, RoomID: "waiting-room"})
	joined = readType(t, c2, domain.TypeRoomJoined)
	assert.Empty(t, joined.Users)

	send(t, c1, domain.ClientMessage{Type: domain.TypeJoin, RoomID: "waiting-room"})
	joined = readType(t, c1, domain.TypeRoomJoined)
	assert.Empty(t, joined.Users)
}

func TestDisconnectNotifiesPeer(t *testing.T) {
	srv, mm := newTestServer(t, testConfig())
	c1 := registerClient(t, srv, "u1")
	c2 := registerClient(t, srv, "u2")

	send(t, c1, domain.ClientMessage{Type: domain.TypeJoin, RoomID: "waiting-room"})
	readType(t, c1, domain.TypeRoomJoined)
	send(t, c2, domain.ClientMessage{Type: domain.TypeJoin, RoomID: "waiting-room"})
	p1 := readType(t, c1, domain.TypePaired)
	readType(t, c2, domain.TypePaired)

	require.NoError(t, c1.Close())

	left := readType(t, c2, domain.TypeUserLeft)
	assert.Equal(t, "u1", left.UserID)
	assert.Equal(t, p1.RoomID, left.RoomID)

	require.Eventually(t, func() bool {
		clients, _ := mm.Stats()
		return clients == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRateLimitDisconnects(t *testing.T) {
	cfg := testConfig()
	cfg.MessageRate = 1
	cfg.MessageBurst = 2
	srv, _ := newTestServer(t, cfg)

	conn := dial(t, srv)
	for i := 0; i < 10; i++ {
		conn.WriteJSON(domain.ClientMessage{Type: domain.TypeRegister, UserID: "spammer"})
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var closeErr error
	for {
		var m domain.ServerMessage
		if err := conn.ReadJSON(&m); err != nil {
			closeErr = err
			break
		}
	}
	assert.True(t, websocket.IsCloseError(closeErr, websocket.ClosePolicyViolation),
		"expected policy violation close, got %v", closeErr)
}
