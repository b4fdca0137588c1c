package http

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dyerandrew14/chatchilllaunch-sub000/internal/core/domain"
	"github.com/dyerandrew14/chatchilllaunch-sub000/internal/core/service"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound message size. SDP offers stay well under this.
	maxMessageSize = 64 * 1024

	// Outbound queue depth per connection.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict to the web app's origin before exposing publicly
	CheckOrigin: func(r *http.Request) bool { return true },
}

var errConnClosed = errors.New("connection closed")

// wsClient wraps one websocket connection and implements port.Conn.
// All reads happen on the handler goroutine (readPump) and all writes
// on a single writePump goroutine fed by the send channel.
type wsClient struct {
	conn    *websocket.Conn
	mm      *service.Matchmaker
	limiter *rate.Limiter
	log     zerolog.Logger

	send      chan domain.ServerMessage
	done      chan struct{}
	closeOnce sync.Once

	// userID is set on registration and only touched by readPump.
	userID string
}

// Send queues a message for delivery without blocking. A client that
// cannot drain its queue loses messages rather than stalling the
// matchmaker.
func (c *wsClient) Send(msg domain.ServerMessage) error {
	select {
	case <-c.done:
		return errConnClosed
	case c.send <- msg:
		return nil
	default:
		c.log.Warn().Str("type", msg.Type).Msg("Send buffer full, dropping message")
		return nil
	}
}

func (c *wsClient) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

// ServeWS upgrades the request and runs the connection's message loop
// until the client disconnects.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	client := &wsClient{
		conn:    conn,
		mm:      h.Matchmaker,
		limiter: rate.NewLimiter(rate.Limit(h.Config.MessageRate), h.Config.MessageBurst),
		log:     log.With().Str("remote", conn.RemoteAddr().String()).Logger(),
		send:    make(chan domain.ServerMessage, sendBuffer),
		done:    make(chan struct{}),
	}
	client.log.Info().Msg("New client connected")

	go client.writePump()
	client.readPump()
}

// readPump reads, decodes, and dispatches inbound frames. It is the
// only reader on the connection; on exit it drives the disconnect
// cleanup for whatever identity the connection had registered.
func (c *wsClient) readPump() {
	defer func() {
		if c.userID != "" {
			c.mm.Disconnect(c.userID, c)
		}
		c.Close()
		c.log.Info().Msg("Client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Error().Err(err).Msg("Unexpected close error")
			}
			return
		}

		if !c.limiter.Allow() {
			c.log.Warn().Msg("Rate limit exceeded, closing connection")
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "rate limit"),
				time.Now().Add(writeWait))
			return
		}

		msg, err := domain.DecodeClientMessage(data)
		if err != nil {
			c.Send(domain.ErrorMessage(err.Error()))
			continue
		}
		c.dispatch(msg)
	}
}

// dispatch applies the per-connection state machine: everything but
// register is rejected until an identity is bound, then requests are
// handed to the matchmaker. Any error comes back to the sender as an
// error message; the connection stays open.
func (c *wsClient) dispatch(msg domain.ClientMessage) {
	if c.userID == "" && msg.Type != domain.TypeRegister {
		c.Send(domain.ErrorMessage(domain.ErrNotRegistered.Error()))
		return
	}

	var err error
	switch msg.Type {
	case domain.TypeRegister:
		if c.userID != "" && c.userID != msg.UserID {
			// Switching identities on a live connection: drop the old
			// one first so its room state is cleaned up.
			c.mm.Disconnect(c.userID, c)
		}
		c.userID = msg.UserID
		c.mm.Register(msg.UserID, c)
	case domain.TypeJoin:
		err = c.mm.Join(c.userID, msg.RoomID)
	case domain.TypeLeave:
		err = c.mm.Leave(c.userID, msg.RoomID)
	default:
		// Validate() admits only signal types past this point.
		err = c.mm.Relay(c.userID, msg)
	}
	if err != nil {
		c.Send(domain.ErrorMessage(err.Error()))
	}
}

// writePump owns all writes on the connection: queued messages plus
// keepalive pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Error().Err(err).Msg("Error writing message")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
