package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ravimech476/BE/internal/realtime"
	apperr "github.com/ravimech476/BE/pkg/errors"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxFrame   = 64 * 1024
	wsSendBuffer = 64
)

// wsFrame is the envelope for both directions on /ws.
type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type wsOut struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// WSHub is a plain-websocket transport: clients, their groups and a
// buffered writer per client.
type WSHub struct {
	mu      sync.RWMutex
	groups  map[string]map[*wsClient]struct{}
	clients map[*wsClient]struct{}
	seq     atomic.Uint64

	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHub(allowOrigin func(r *http.Request) bool, log zerolog.Logger) *WSHub {
	if allowOrigin == nil {
		allowOrigin = func(r *http.Request) bool { return true }
	}
	return &WSHub{
		groups:   make(map[string]map[*wsClient]struct{}),
		clients:  make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
	}
}

// Deliver implements realtime.Transport.
func (h *WSHub) Deliver(group, event string, payload any) {
	h.mu.RLock()
	members := make([]*wsClient, 0, len(h.groups[group]))
	for c := range h.groups[group] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		c.Emit(event, payload)
	}
}

func (h *WSHub) join(c *wsClient, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[group]
	if !ok {
		members = make(map[*wsClient]struct{})
		h.groups[group] = members
	}
	members[c] = struct{}{}
}

func (h *WSHub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *WSHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	for group, members := range h.groups {
		delete(members, c)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// Close drops every client connection.
func (h *WSHub) Close() {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.conn.Close()
	}
}

// Handler verifies the token before upgrading, so an unauthenticated
// client is refused with 401 and never becomes a live connection.
func (h *WSHub) Handler(gw *realtime.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := handshakeToken(c.Query("token"), c.Query("auth_token"), c.GetHeader("Authorization"))

		id, err := gw.Authenticate(c.Request.Context(), token)
		if err != nil {
			h.log.Warn().Err(err).Str("remote", c.ClientIP()).Msg("WebSocket connection rejected")
			c.AbortWithStatusJSON(apperr.StatusOf(err), gin.H{"success": false, "error": "Authentication failed"})
			return
		}

		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		client := &wsClient{
			id:   "ws:" + strconv.FormatUint(h.seq.Add(1), 10),
			hub:  h,
			conn: conn,
			send: make(chan wsOut, wsSendBuffer),
			done: make(chan struct{}),
		}
		h.add(client)
		go client.writePump()

		sess := &realtime.Session{Identity: *id, Conn: client}
		gw.Admit(sess)

		reason := client.readPump(gw, sess)

		gw.Dispatch(context.Background(), sess, realtime.Disconnect{Reason: reason})
		h.remove(client)
		client.shutdown()
	}
}

type wsClient struct {
	id   string
	hub  *WSHub
	conn *websocket.Conn
	send chan wsOut

	once sync.Once
	done chan struct{}
}

func (c *wsClient) ID() string { return c.id }

// Emit queues a frame. A client that cannot keep up is disconnected rather
// than allowed to stall the sender.
func (c *wsClient) Emit(event string, payload any) {
	select {
	case <-c.done:
	case c.send <- wsOut{Event: event, Data: payload}:
	default:
		c.hub.log.Warn().Str("conn", c.id).Msg("WebSocket send buffer full, closing")
		c.conn.Close()
	}
}

func (c *wsClient) Join(group string) {
	c.hub.join(c, group)
}

func (c *wsClient) shutdown() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *wsClient) readPump(gw *realtime.Gateway, sess *realtime.Session) string {
	c.conn.SetReadLimit(wsMaxFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var frame wsFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug().Err(err).Str("conn", c.id).Msg("WebSocket read failed")
				return "transport error"
			}
			return "client namespace disconnect"
		}

		ev, err := realtime.DecodeInbound(frame.Event, frame.Data)
		if err != nil {
			c.Emit(realtime.EventError, realtime.ErrorNotice{Message: "Invalid event"})
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), socketEventTimeout)
		gw.Dispatch(ctx, sess, ev)
		cancel()
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.hub.log.Debug().Err(err).Str("conn", c.id).Msg("WebSocket write failed")
				c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}
