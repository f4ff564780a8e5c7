package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/internal/service"
)

// HandleListEvents handles GET /v1/events
func HandleListEvents(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	catalogService := service.NewCatalogService(repos, logger)
	return func(c *gin.Context) {
		events, err := catalogService.ListEvents(c.Request.Context())
		if err != nil {
			respondError(c, logger, err, "Failed to list events")
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": newEventResponses(events)})
	}
}

// HandleGetEvent handles GET /v1/events/:id
func HandleGetEvent(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	catalogService := service.NewCatalogService(repos, logger)
	return func(c *gin.Context) {
		eventID, ok := paramUUID(c, "id", "event")
		if !ok {
			return
		}

		detail, err := catalogService.GetEventDetail(c.Request.Context(), eventID)
		if err != nil {
			respondError(c, logger, err, "Failed to get event")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"event":    newEventResponse(detail.Event),
			"products": newProductResponses(detail.Products),
			"agents":   newAgentResponses(detail.Agents),
		})
	}
}

// HandleGetProduct handles GET /v1/products/:id
func HandleGetProduct(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	catalogService := service.NewCatalogService(repos, logger)
	return func(c *gin.Context) {
		productID, ok := paramUUID(c, "id", "product")
		if !ok {
			return
		}

		detail, err := catalogService.GetProductDetail(c.Request.Context(), productID)
		if err != nil {
			respondError(c, logger, err, "Failed to get product")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"product": newProductResponse(detail.Product),
			"options": newOptionResponses(detail.Options),
		})
	}
}
