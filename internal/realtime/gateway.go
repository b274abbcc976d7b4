package realtime

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ravimech476/BE/internal/models"
	"github.com/ravimech476/BE/internal/presence"
	"github.com/ravimech476/BE/internal/services"
	apperr "github.com/ravimech476/BE/pkg/errors"
)

// MessageService is the persistence side the gateway drives.
type MessageService interface {
	Send(ctx context.Context, senderID, receiverID uint, text string) (*models.MessageView, error)
	MarkAsRead(ctx context.Context, readerID, senderID uint) (int64, error)
}

// Verifier resolves a handshake token to an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*services.Identity, error)
}

// Limiter throttles live sends per user. Errors fail open.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Session binds one admitted connection to its verified user.
type Session struct {
	Identity services.Identity
	Conn     Conn
}

func (s *Session) UserID() uint {
	return s.Identity.UserID
}

type Options struct {
	TypingThrottle time.Duration
	SendLimiter    Limiter
}

// Gateway routes live-connection events to the message store and pushes
// results to the right address groups. It holds no per-connection state;
// transports call Dispatch from each connection's own read loop, so events
// of one connection are handled in order and connections never wait on
// each other.
type Gateway struct {
	messages  MessageService
	verifier  Verifier
	presence  *presence.Registry
	transport Transport
	limiter   Limiter
	typing    *typingThrottle
	validate  *validator.Validate
	log       zerolog.Logger
	now       func() time.Time
}

func NewGateway(messages MessageService, verifier Verifier, registry *presence.Registry, transport Transport, log zerolog.Logger, opts Options) *Gateway {
	return &Gateway{
		messages:  messages,
		verifier:  verifier,
		presence:  registry,
		transport: transport,
		limiter:   opts.SendLimiter,
		typing:    newTypingThrottle(opts.TypingThrottle),
		validate:  validator.New(),
		log:       log,
		now:       time.Now,
	}
}

// Authenticate verifies a handshake token. A failed handshake must not be
// admitted.
func (g *Gateway) Authenticate(ctx context.Context, token string) (*services.Identity, error) {
	if token == "" {
		return nil, apperr.ErrUnauthorized
	}
	id, err := g.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	return id, nil
}

// Admit registers presence, joins the connection to its address groups and
// sends the full online list to everyone, the new arrival included.
func (g *Gateway) Admit(sess *Session) {
	g.presence.Register(sess.UserID(), sess.Conn.ID())
	sess.Conn.Join(BroadcastGroup)
	sess.Conn.Join(UserGroup(sess.UserID()))

	g.log.Info().
		Uint("user_id", sess.UserID()).
		Str("username", sess.Identity.Username).
		Str("conn", sess.Conn.ID()).
		Msg("User connected")

	g.broadcastOnline()
}

// Dispatch handles one inbound event to completion. Failures become an
// error event on this connection only.
func (g *Gateway) Dispatch(ctx context.Context, sess *Session, ev Inbound) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Uint("user_id", sess.UserID()).
				Msg("Panic recovered in gateway handler")
			sess.Conn.Emit(EventError, ErrorNotice{Message: "Internal server error"})
		}
	}()

	switch e := ev.(type) {
	case SendMessage:
		g.handleSend(ctx, sess, e)
	case Typing:
		g.handleTyping(sess, e)
	case MarkAsRead:
		g.handleMarkAsRead(ctx, sess, e)
	case Disconnect:
		g.handleDisconnect(sess, e)
	default:
		g.log.Warn().Str("type", fmt.Sprintf("%T", ev)).Msg("Unhandled inbound event")
	}
}

func (g *Gateway) handleSend(ctx context.Context, sess *Session, e SendMessage) {
	if err := g.validate.Struct(e); err != nil {
		g.emitError(sess, apperr.Validation("Receiver ID and message text are required"))
		return
	}
	if _, err := services.NormalizeMessageText(e.MessageText); err != nil {
		g.emitError(sess, err)
		return
	}

	if g.limiter != nil {
		ok, err := g.limiter.Allow(ctx, UserGroup(sess.UserID()))
		if err != nil {
			g.log.Warn().Err(err).Uint("user_id", sess.UserID()).Msg("Send limiter unavailable, allowing")
		} else if !ok {
			g.emitError(sess, apperr.RateLimited("Rate limit exceeded. Please slow down."))
			return
		}
	}

	msg, err := g.messages.Send(ctx, sess.UserID(), e.ReceiverID, e.MessageText)
	if err != nil {
		g.emitError(sess, err)
		return
	}

	// An older tab stays in the group after a newer one released presence.
	g.transport.Deliver(UserGroup(e.ReceiverID), EventNewMessage, msg)
	if !g.presence.IsOnline(e.ReceiverID) {
		g.log.Debug().Uint("receiver_id", e.ReceiverID).Uint("message_id", msg.ID).Msg("Receiver not registered, poll will pick it up")
	}

	sess.Conn.Emit(EventMessageSent, msg)

	g.log.Info().
		Uint("sender_id", sess.UserID()).
		Uint("receiver_id", e.ReceiverID).
		Uint("message_id", msg.ID).
		Msg("Message sent")
}

func (g *Gateway) handleTyping(sess *Session, e Typing) {
	if err := g.validate.Struct(e); err != nil {
		return
	}
	if !g.typing.Allow(sess.UserID(), e.ReceiverID, e.IsTyping, g.now()) {
		return
	}

	g.transport.Deliver(UserGroup(e.ReceiverID), EventUserTyping, TypingNotice{
		UserID:   sess.UserID(),
		Username: sess.Identity.Username,
		IsTyping: e.IsTyping,
	})
}

func (g *Gateway) handleMarkAsRead(ctx context.Context, sess *Session, e MarkAsRead) {
	if err := g.validate.Struct(e); err != nil {
		g.emitError(sess, apperr.Validation("sender_id is required"))
		return
	}

	if _, err := g.messages.MarkAsRead(ctx, sess.UserID(), e.SenderID); err != nil {
		g.log.Error().Err(err).
			Uint("reader_id", sess.UserID()).
			Uint("sender_id", e.SenderID).
			Msg("Mark as read failed")
		return
	}

	g.transport.Deliver(UserGroup(e.SenderID), EventMessagesRead, ReadNotice{ReaderID: sess.UserID()})
}

func (g *Gateway) handleDisconnect(sess *Session, e Disconnect) {
	released := g.presence.Release(sess.UserID(), sess.Conn.ID())
	g.typing.Forget(sess.UserID())

	g.log.Info().
		Uint("user_id", sess.UserID()).
		Str("conn", sess.Conn.ID()).
		Str("reason", e.Reason).
		Bool("released", released).
		Msg("User disconnected")

	g.broadcastOnline()
}

func (g *Gateway) broadcastOnline() {
	g.transport.Deliver(BroadcastGroup, EventOnlineUsers, g.presence.ListOnline())
}

func (g *Gateway) emitError(sess *Session, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.ErrInternalServer
	}

	if appErr.Code >= 500 {
		g.log.Error().Err(err).Uint("user_id", sess.UserID()).Msg("Gateway handler failed")
	}
	sess.Conn.Emit(EventError, ErrorNotice{Message: appErr.Message})
}
