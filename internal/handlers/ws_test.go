package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ravimech476/BE/internal/models"
	"github.com/ravimech476/BE/internal/presence"
	"github.com/ravimech476/BE/internal/realtime"
	"github.com/ravimech476/BE/internal/services"
	"github.com/ravimech476/BE/pkg/utils"
)

type wsServer struct {
	url      string
	tokens   *utils.TokenManager
	registry *presence.Registry
}

func startWSServer(t *testing.T) *wsServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Message{}))

	for _, u := range []models.User{
		{ID: 7, Username: "alice", EmailID: "alice@example.com", Status: models.StatusActive, Password: "x"},
		{ID: 9, Username: "bob", EmailID: "bob@example.com", Status: models.StatusActive, Password: "x"},
	} {
		require.NoError(t, db.Create(&u).Error)
	}

	users := services.NewUserService(db)
	chat := services.NewChatService(services.NewMessageStore(db), users)
	tokens := utils.NewTokenManager("test-secret", time.Hour)
	auth := services.NewAuthService(users, tokens)
	registry := presence.NewRegistry()

	hub := NewWSHub(nil, zerolog.Nop())
	gw := realtime.NewGateway(chat, auth, registry, hub, zerolog.Nop(), realtime.Options{})

	r := gin.New()
	r.GET("/ws", hub.Handler(gw))
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		hub.Close()
		srv.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return &wsServer{
		url:      "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		tokens:   tokens,
		registry: registry,
	}
}

func (s *wsServer) dial(t *testing.T, userID uint, username string) *websocket.Conn {
	t.Helper()
	token, err := s.tokens.GenerateToken(userID, username, "employee")
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(s.url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type inFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// await reads frames until one named event arrives.
func await(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f inFrame
		require.NoError(t, conn.ReadJSON(&f), "waiting for %s", event)
		if f.Event == event {
			return f.Data
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(inFrame{Event: event, Data: raw}))
}

func TestWS_RejectsMissingToken(t *testing.T) {
	s := startWSServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(s.url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(s.url+"?token=forged", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, s.registry.Len())
}

func TestWS_SendDeliversAndAcks(t *testing.T) {
	s := startWSServer(t)

	alice := s.dial(t, 7, "alice")
	await(t, alice, realtime.EventOnlineUsers)

	bob := s.dial(t, 9, "bob")
	var online []uint
	require.NoError(t, json.Unmarshal(await(t, bob, realtime.EventOnlineUsers), &online))
	assert.Equal(t, []uint{7, 9}, online)

	send(t, alice, realtime.EventSendMessage, map[string]any{"receiver_id": 9, "message_text": "hello"})

	var delivered, ack models.MessageView
	require.NoError(t, json.Unmarshal(await(t, bob, realtime.EventNewMessage), &delivered))
	require.NoError(t, json.Unmarshal(await(t, alice, realtime.EventMessageSent), &ack))

	assert.Equal(t, "hello", delivered.MessageText)
	assert.Equal(t, uint(7), delivered.SenderID)
	assert.NotZero(t, delivered.ID)
	assert.Equal(t, delivered.ID, ack.ID)
}

func TestWS_ErrorsAndDisconnect(t *testing.T) {
	s := startWSServer(t)

	alice := s.dial(t, 7, "alice")
	await(t, alice, realtime.EventOnlineUsers)
	bob := s.dial(t, 9, "bob")
	await(t, alice, realtime.EventOnlineUsers)

	send(t, bob, realtime.EventSendMessage, map[string]any{"receiver_id": 7, "message_text": "  "})
	var notice realtime.ErrorNotice
	require.NoError(t, json.Unmarshal(await(t, bob, realtime.EventError), &notice))
	assert.Equal(t, "Message cannot be empty", notice.Message)

	require.NoError(t, bob.WriteJSON(inFrame{Event: "delete_everything"}))
	require.NoError(t, json.Unmarshal(await(t, bob, realtime.EventError), &notice))
	assert.Equal(t, "Invalid event", notice.Message)

	require.NoError(t, bob.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	bob.Close()

	var online []uint
	require.NoError(t, json.Unmarshal(await(t, alice, realtime.EventOnlineUsers), &online))
	assert.Equal(t, []uint{7}, online)
	assert.False(t, s.registry.IsOnline(9))
}
