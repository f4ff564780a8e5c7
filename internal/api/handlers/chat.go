package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/api/middleware"
	"github.com/popupmarket/proxybuy/internal/messaging"
	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/internal/service"
)

// HandleListRooms handles GET /v1/rooms
func HandleListRooms(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	chatService := service.NewChatService(repos, nil, logger)
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		rooms, err := chatService.ListRooms(c.Request.Context(), user.ID)
		if err != nil {
			respondError(c, logger, err, "Failed to list rooms")
			return
		}

		out := make([]*RoomResponse, 0, len(rooms))
		for _, r := range rooms {
			resp := newRoomResponse(r.Room)
			resp.Counterpart = r.Counterpart
			resp.Event = newEventResponse(r.Event)
			resp.Agent = newAgentResponse(r.Agent)
			out = append(out, resp)
		}
		c.JSON(http.StatusOK, gin.H{"rooms": out})
	}
}

// HandleListMessages handles GET /v1/rooms/:id/messages
func HandleListMessages(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	chatService := service.NewChatService(repos, nil, logger)
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		roomID, ok := paramUUID(c, "id", "room")
		if !ok {
			return
		}

		msgs, err := chatService.ListMessages(c.Request.Context(), roomID, user.ID)
		if err != nil {
			respondError(c, logger, err, "Failed to list messages")
			return
		}

		out := make([]*MessageResponse, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, newMessageResponse(m))
		}
		c.JSON(http.StatusOK, gin.H{"messages": out})
	}
}

// HandleSendMessage handles POST /v1/rooms/:id/messages
func HandleSendMessage(repos *repository.Repositories, publisher messaging.Publisher, logger *zap.Logger) gin.HandlerFunc {
	chatService := service.NewChatService(repos, publisher, logger)
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		roomID, ok := paramUUID(c, "id", "room")
		if !ok {
			return
		}

		var req service.SendMessageRequest
		if !bindJSON(c, &req) {
			return
		}

		msg, err := chatService.SendMessage(c.Request.Context(), roomID, user.ID, req)
		if err != nil {
			respondError(c, logger, err, "Failed to send message")
			return
		}
		c.JSON(http.StatusCreated, newMessageResponse(msg))
	}
}

// HandleRoomSummary handles GET /v1/rooms/:id/summary
func HandleRoomSummary(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	chatService := service.NewChatService(repos, nil, logger)
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		roomID, ok := paramUUID(c, "id", "room")
		if !ok {
			return
		}

		summary, err := chatService.Summary(c.Request.Context(), roomID, user.ID)
		if err != nil {
			respondError(c, logger, err, "Failed to build order summary")
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
