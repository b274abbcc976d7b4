package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/ravimech476/BE/internal/handlers"
)

func RegisterChatRoutes(r gin.IRouter, h *handlers.ChatHandler, auth, sendLimit gin.HandlerFunc) {
	chat := r.Group("/chat")
	chat.Use(auth)
	{
		chat.POST("/messages", sendLimit, h.SendMessage)
		chat.GET("/conversations", h.GetConversations)
		chat.GET("/conversations/:contactId", h.GetConversation)
		chat.GET("/unread-count", h.GetUnreadCount)
		chat.GET("/poll/:contactId", h.Poll)
		chat.GET("/users", h.ListUsers)
	}
}
