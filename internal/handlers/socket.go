package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/rs/zerolog"

	"github.com/ravimech476/BE/internal/realtime"
)

const socketEventTimeout = 10 * time.Second

// SocketIO carries the gateway over socket.io. Rooms are the address groups.
type SocketIO struct {
	server *socketio.Server
	log    zerolog.Logger
}

func NewSocketIO(allowOrigin func(r *http.Request) bool, log zerolog.Logger) *SocketIO {
	if allowOrigin == nil {
		allowOrigin = func(r *http.Request) bool { return true }
	}

	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&websocket.Transport{CheckOrigin: allowOrigin},
			&polling.Transport{CheckOrigin: allowOrigin},
		},
	})
	return &SocketIO{server: server, log: log}
}

// Deliver implements realtime.Transport.
func (s *SocketIO) Deliver(group, event string, payload any) {
	s.server.BroadcastToRoom("/", group, event, payload)
}

// Bind routes every socket.io event through the gateway. Connections that
// fail the handshake never get a session, and their events are ignored.
func (s *SocketIO) Bind(gw *realtime.Gateway) {
	s.server.OnConnect("/", func(c socketio.Conn) error {
		c.SetContext(nil)

		u := c.URL()
		q := u.Query()
		token := handshakeToken(q.Get("token"), q.Get("auth_token"), c.RemoteHeader().Get("Authorization"))

		ctx, cancel := context.WithTimeout(context.Background(), socketEventTimeout)
		defer cancel()

		id, err := gw.Authenticate(ctx, token)
		if err != nil {
			s.log.Warn().Err(err).Str("conn", c.ID()).Msg("Socket connection rejected")
			c.Emit(realtime.EventError, realtime.ErrorNotice{Message: "Authentication failed"})
			return err
		}

		sess := &realtime.Session{Identity: *id, Conn: socketConn{c}}
		c.SetContext(sess)
		gw.Admit(sess)
		return nil
	})

	s.server.OnEvent("/", realtime.EventSendMessage, func(c socketio.Conn, msg realtime.SendMessage) {
		s.dispatch(gw, c, msg)
	})
	s.server.OnEvent("/", realtime.EventTyping, func(c socketio.Conn, msg realtime.Typing) {
		s.dispatch(gw, c, msg)
	})
	s.server.OnEvent("/", realtime.EventMarkAsRead, func(c socketio.Conn, msg realtime.MarkAsRead) {
		s.dispatch(gw, c, msg)
	})

	s.server.OnDisconnect("/", func(c socketio.Conn, reason string) {
		s.dispatch(gw, c, realtime.Disconnect{Reason: reason})
	})

	s.server.OnError("/", func(c socketio.Conn, err error) {
		connID := ""
		if c != nil {
			connID = c.ID()
		}
		s.log.Warn().Err(err).Str("conn", connID).Msg("Socket error")
	})
}

func (s *SocketIO) dispatch(gw *realtime.Gateway, c socketio.Conn, ev realtime.Inbound) {
	sess, ok := c.Context().(*realtime.Session)
	if !ok || sess == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), socketEventTimeout)
	defer cancel()
	gw.Dispatch(ctx, sess, ev)
}

// Serve runs the engine loop until Close.
func (s *SocketIO) Serve() {
	if err := s.server.Serve(); err != nil {
		s.log.Error().Err(err).Msg("Socket.io server stopped")
	}
}

func (s *SocketIO) Close() error {
	return s.server.Close()
}

// Handler mounts socket.io on a gin route.
func (s *SocketIO) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.server.ServeHTTP(c.Writer, c.Request)
	}
}

type socketConn struct {
	c socketio.Conn
}

func (s socketConn) ID() string                     { return "sio:" + s.c.ID() }
func (s socketConn) Emit(event string, payload any) { s.c.Emit(event, payload) }
func (s socketConn) Join(group string)              { s.c.Join(group) }

// handshakeToken picks the first credential present: query token, legacy
// auth_token, then a Bearer header.
func handshakeToken(query, legacy, header string) string {
	if query != "" {
		return query
	}
	if legacy != "" {
		return legacy
	}
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}
