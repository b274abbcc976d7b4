package realtime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ravimech476/BE/internal/models"
	"github.com/ravimech476/BE/internal/presence"
	"github.com/ravimech476/BE/internal/services"
	apperr "github.com/ravimech476/BE/pkg/errors"
)

type emitted struct {
	Event   string
	Payload any
}

// memHub is an in-process Transport with address groups.
type memHub struct {
	mu     sync.Mutex
	groups map[string][]*memConn
}

func newMemHub() *memHub {
	return &memHub{groups: make(map[string][]*memConn)}
}

func (h *memHub) Deliver(group, event string, payload any) {
	h.mu.Lock()
	members := append([]*memConn(nil), h.groups[group]...)
	h.mu.Unlock()

	for _, c := range members {
		c.Emit(event, payload)
	}
}

func (h *memHub) leave(c *memConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for group, members := range h.groups {
		kept := members[:0]
		for _, m := range members {
			if m != c {
				kept = append(kept, m)
			}
		}
		h.groups[group] = kept
	}
}

type memConn struct {
	id  string
	hub *memHub

	mu     sync.Mutex
	events []emitted
}

func (c *memConn) ID() string { return c.id }

func (c *memConn) Emit(event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, emitted{Event: event, Payload: payload})
}

func (c *memConn) Join(group string) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.hub.groups[group] = append(c.hub.groups[group], c)
}

func (c *memConn) received(event string) []any {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []any
	for _, e := range c.events {
		if e.Event == event {
			out = append(out, e.Payload)
		}
	}
	return out
}

func (c *memConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

type stubVerifier map[string]services.Identity

func (v stubVerifier) Verify(_ context.Context, token string) (*services.Identity, error) {
	id, ok := v[token]
	if !ok {
		return nil, apperr.Unauthorized("Invalid or expired token")
	}
	return &id, nil
}

// failingMessages fails every call with a storage error.
type failingMessages struct{}

func (failingMessages) Send(context.Context, uint, uint, string) (*models.MessageView, error) {
	return nil, apperr.Storage("Failed to send message", fmt.Errorf("connection refused"))
}

func (failingMessages) MarkAsRead(context.Context, uint, uint) (int64, error) {
	return 0, apperr.Storage("Failed to mark messages as read", fmt.Errorf("connection refused"))
}

type countingLimiter struct {
	limit int
	seen  map[string]int
	err   error
}

func (l *countingLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.seen[key]++
	return l.seen[key] <= l.limit, nil
}

type fixture struct {
	gw       *Gateway
	hub      *memHub
	registry *presence.Registry
	store    *services.MessageStore
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Message{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	for _, u := range []models.User{
		{ID: 7, Username: "alice", EmailID: "alice@example.com", Status: models.StatusActive, Password: "x"},
		{ID: 9, Username: "bob", EmailID: "bob@example.com", Status: models.StatusActive, Password: "x"},
		{ID: 11, Username: "carol", EmailID: "carol@example.com", Status: models.StatusActive, Password: "x"},
	} {
		require.NoError(t, db.Create(&u).Error)
	}

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	store := services.NewMessageStore(db).WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		start = start.Add(time.Second)
		return start
	})
	chat := services.NewChatService(store, services.NewUserService(db))

	hub := newMemHub()
	registry := presence.NewRegistry()
	gw := NewGateway(chat, stubVerifier{}, registry, hub, zerolog.Nop(), opts)

	return &fixture{gw: gw, hub: hub, registry: registry, store: store}
}

func (f *fixture) connect(userID uint, username, connID string) (*Session, *memConn) {
	conn := &memConn{id: connID, hub: f.hub}
	sess := &Session{
		Identity: services.Identity{UserID: userID, Username: username},
		Conn:     conn,
	}
	f.gw.Admit(sess)
	return sess, conn
}

func (f *fixture) disconnect(sess *Session) {
	f.gw.Dispatch(context.Background(), sess, Disconnect{Reason: "transport close"})
	f.hub.leave(sess.Conn.(*memConn))
}
