package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/api/middleware"
	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/messaging"
	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/internal/service"
)

// HandleMyRequests handles GET /v1/me/requests. The seller view lists
// requests addressed to the caller's agents.
func HandleMyRequests(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	requestService := service.NewRequestService(repos, nil, logger)
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		buying, err := requestService.BuyerRequests(c.Request.Context(), user.ID)
		if err != nil {
			respondError(c, logger, err, "Failed to list buyer requests")
			return
		}
		selling, err := requestService.SellerRequests(c.Request.Context(), user.ID)
		if err != nil {
			respondError(c, logger, err, "Failed to list seller requests")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"buying": newRequestSummaries(buying),
			"selling": gin.H{
				"pending":  newRequestSummaries(selling.Pending),
				"accepted": newRequestSummaries(selling.Accepted),
				"other":    newRequestSummaries(selling.Other),
			},
		})
	}
}

// HandleGetRequest handles GET /v1/requests/:id
func HandleGetRequest(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	requestService := service.NewRequestService(repos, nil, logger)
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		requestID, ok := paramUUID(c, "id", "request")
		if !ok {
			return
		}

		detail, err := requestService.GetRequest(c.Request.Context(), requestID, user.ID)
		if err != nil {
			respondError(c, logger, err, "Failed to get request")
			return
		}

		items := make([]RequestItemResponse, len(detail.Items))
		for i, item := range detail.Items {
			items[i] = RequestItemResponse{
				ProductID:     item.ProductID.String(),
				Quantity:      item.Quantity,
				PriceSnapshot: item.PriceSnapshot,
			}
			if item.OptionID != nil {
				optionID := item.OptionID.String()
				items[i].OptionID = &optionID
			}
		}

		history := make([]gin.H, len(detail.Events))
		for i, e := range detail.Events {
			history[i] = gin.H{
				"event_type": e.EventType,
				"event_data": e.EventData,
				"created_at": formatTime(e.CreatedAt),
			}
		}

		response := gin.H{
			"request": newRequestResponse(detail.Request),
			"items":   items,
			"history": history,
		}
		if detail.Room != nil {
			response["room_id"] = detail.Room.ID.String()
		}
		c.JSON(http.StatusOK, response)
	}
}

// HandleEnsureRoom handles POST /v1/requests/:id/room
func HandleEnsureRoom(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	requestService := service.NewRequestService(repos, nil, logger)
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		requestID, ok := paramUUID(c, "id", "request")
		if !ok {
			return
		}

		room, err := requestService.EnsureRoom(c.Request.Context(), requestID, user.ID)
		if err != nil {
			respondError(c, logger, err, "Failed to ensure chat room")
			return
		}
		c.JSON(http.StatusOK, newRoomResponse(room))
	}
}

type transitionFunc func(ctx context.Context, requestID, userID uuid.UUID) (*domain.ProxyRequest, error)

func handleTransition(action string, fn transitionFunc, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		requestID, ok := paramUUID(c, "id", "request")
		if !ok {
			return
		}

		req, err := fn(c.Request.Context(), requestID, user.ID)
		if err != nil {
			respondError(c, logger, err, "Failed to "+action+" request")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":     req.ID.String(),
			"status": req.Status,
		})
	}
}

// HandleAcceptRequest handles POST /v1/requests/:id/accept
func HandleAcceptRequest(repos *repository.Repositories, publisher messaging.Publisher, logger *zap.Logger) gin.HandlerFunc {
	return handleTransition("accept", service.NewRequestService(repos, publisher, logger).Accept, logger)
}

// HandleRejectRequest handles POST /v1/requests/:id/reject
func HandleRejectRequest(repos *repository.Repositories, publisher messaging.Publisher, logger *zap.Logger) gin.HandlerFunc {
	return handleTransition("reject", service.NewRequestService(repos, publisher, logger).Reject, logger)
}

// HandleCompleteRequest handles POST /v1/requests/:id/complete
func HandleCompleteRequest(repos *repository.Repositories, publisher messaging.Publisher, logger *zap.Logger) gin.HandlerFunc {
	return handleTransition("complete", service.NewRequestService(repos, publisher, logger).Complete, logger)
}
