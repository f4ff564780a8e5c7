package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/internal/service"
)

// MoveOptionRequest represents a move option request
type MoveOptionRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}

// HandleAdminListEvents handles GET /v1/admin/events
func HandleAdminListEvents(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		events, err := adminService.ListEvents(c.Request.Context())
		if err != nil {
			respondError(c, logger, err, "Failed to list events")
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": newEventResponses(events)})
	}
}

// HandleCreateEvent handles POST /v1/admin/events
func HandleCreateEvent(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		var req service.EventInput
		if !bindJSON(c, &req) {
			return
		}

		event, err := adminService.CreateEvent(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err, "Failed to create event")
			return
		}
		c.JSON(http.StatusCreated, newEventResponse(event))
	}
}

// HandleUpdateEvent handles PUT /v1/admin/events/:id
func HandleUpdateEvent(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		eventID, ok := paramUUID(c, "id", "event")
		if !ok {
			return
		}

		var req service.EventInput
		if !bindJSON(c, &req) {
			return
		}

		event, err := adminService.UpdateEvent(c.Request.Context(), eventID, req)
		if err != nil {
			respondError(c, logger, err, "Failed to update event")
			return
		}
		c.JSON(http.StatusOK, newEventResponse(event))
	}
}

// HandleDeleteEvent handles DELETE /v1/admin/events/:id
func HandleDeleteEvent(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		eventID, ok := paramUUID(c, "id", "event")
		if !ok {
			return
		}

		if err := adminService.DeleteEvent(c.Request.Context(), eventID); err != nil {
			respondError(c, logger, err, "Failed to delete event")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// HandleAdminListProducts handles GET /v1/admin/events/:id/products
func HandleAdminListProducts(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		eventID, ok := paramUUID(c, "id", "event")
		if !ok {
			return
		}

		products, err := adminService.ListProducts(c.Request.Context(), eventID)
		if err != nil {
			respondError(c, logger, err, "Failed to list products")
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": newProductResponses(products)})
	}
}

// HandleCreateProduct handles POST /v1/admin/events/:id/products
func HandleCreateProduct(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		eventID, ok := paramUUID(c, "id", "event")
		if !ok {
			return
		}

		var req service.ProductInput
		if !bindJSON(c, &req) {
			return
		}

		product, err := adminService.CreateProduct(c.Request.Context(), eventID, req)
		if err != nil {
			respondError(c, logger, err, "Failed to create product")
			return
		}
		c.JSON(http.StatusCreated, newProductResponse(product))
	}
}

// HandleUpdateProduct handles PUT /v1/admin/products/:id
func HandleUpdateProduct(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		productID, ok := paramUUID(c, "id", "product")
		if !ok {
			return
		}

		var req service.ProductInput
		if !bindJSON(c, &req) {
			return
		}

		product, err := adminService.UpdateProduct(c.Request.Context(), productID, req)
		if err != nil {
			respondError(c, logger, err, "Failed to update product")
			return
		}
		c.JSON(http.StatusOK, newProductResponse(product))
	}
}

// HandleDeleteProduct handles DELETE /v1/admin/products/:id
func HandleDeleteProduct(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		productID, ok := paramUUID(c, "id", "product")
		if !ok {
			return
		}

		if err := adminService.DeleteProduct(c.Request.Context(), productID); err != nil {
			respondError(c, logger, err, "Failed to delete product")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// HandleAdminListOptions handles GET /v1/admin/products/:id/options
func HandleAdminListOptions(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		productID, ok := paramUUID(c, "id", "product")
		if !ok {
			return
		}

		options, err := adminService.ListOptions(c.Request.Context(), productID)
		if err != nil {
			respondError(c, logger, err, "Failed to list options")
			return
		}
		c.JSON(http.StatusOK, gin.H{"options": newOptionResponses(options)})
	}
}

// HandleCreateOption handles POST /v1/admin/products/:id/options
func HandleCreateOption(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		productID, ok := paramUUID(c, "id", "product")
		if !ok {
			return
		}

		var req service.OptionInput
		if !bindJSON(c, &req) {
			return
		}

		option, err := adminService.CreateOption(c.Request.Context(), productID, req)
		if err != nil {
			respondError(c, logger, err, "Failed to create option")
			return
		}
		c.JSON(http.StatusCreated, newOptionResponse(option))
	}
}

// HandleUpdateOption handles PUT /v1/admin/options/:id
func HandleUpdateOption(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		optionID, ok := paramUUID(c, "id", "option")
		if !ok {
			return
		}

		var req service.OptionInput
		if !bindJSON(c, &req) {
			return
		}

		option, err := adminService.UpdateOption(c.Request.Context(), optionID, req)
		if err != nil {
			respondError(c, logger, err, "Failed to update option")
			return
		}
		c.JSON(http.StatusOK, newOptionResponse(option))
	}
}

// HandleMoveOption handles POST /v1/admin/options/:id/move
func HandleMoveOption(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		optionID, ok := paramUUID(c, "id", "option")
		if !ok {
			return
		}

		var req MoveOptionRequest
		if !bindJSON(c, &req) {
			return
		}

		option, err := adminService.MoveOption(c.Request.Context(), optionID, req.Direction)
		if err != nil {
			respondError(c, logger, err, "Failed to move option")
			return
		}
		c.JSON(http.StatusOK, newOptionResponse(option))
	}
}

// HandleDeleteOption handles DELETE /v1/admin/options/:id
func HandleDeleteOption(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		optionID, ok := paramUUID(c, "id", "option")
		if !ok {
			return
		}

		if err := adminService.DeleteOption(c.Request.Context(), optionID); err != nil {
			respondError(c, logger, err, "Failed to delete option")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// HandleAdminListAgents handles GET /v1/admin/events/:id/agents
func HandleAdminListAgents(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		eventID, ok := paramUUID(c, "id", "event")
		if !ok {
			return
		}

		agents, err := adminService.ListAgents(c.Request.Context(), eventID)
		if err != nil {
			respondError(c, logger, err, "Failed to list agents")
			return
		}
		c.JSON(http.StatusOK, gin.H{"agents": newAgentResponses(agents)})
	}
}

// HandleCreateAgent handles POST /v1/admin/events/:id/agents
func HandleCreateAgent(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		eventID, ok := paramUUID(c, "id", "event")
		if !ok {
			return
		}

		var req service.AgentInput
		if !bindJSON(c, &req) {
			return
		}

		agent, err := adminService.CreateAgent(c.Request.Context(), eventID, req)
		if err != nil {
			respondError(c, logger, err, "Failed to create agent")
			return
		}
		c.JSON(http.StatusCreated, newAgentResponse(agent))
	}
}

// HandleUpdateAgent handles PUT /v1/admin/agents/:id
func HandleUpdateAgent(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		agentID, ok := paramUUID(c, "id", "agent")
		if !ok {
			return
		}

		var req service.AgentInput
		if !bindJSON(c, &req) {
			return
		}

		agent, err := adminService.UpdateAgent(c.Request.Context(), agentID, req)
		if err != nil {
			respondError(c, logger, err, "Failed to update agent")
			return
		}
		c.JSON(http.StatusOK, newAgentResponse(agent))
	}
}

// HandleDeleteAgent handles DELETE /v1/admin/agents/:id
func HandleDeleteAgent(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, nil, logger)
	return func(c *gin.Context) {
		agentID, ok := paramUUID(c, "id", "agent")
		if !ok {
			return
		}

		if err := adminService.DeleteAgent(c.Request.Context(), agentID); err != nil {
			respondError(c, logger, err, "Failed to delete agent")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// HandleAdminUpload handles POST /v1/admin/uploads/:bucket
func HandleAdminUpload(repos *repository.Repositories, store service.ObjectStore, maxSize int64, logger *zap.Logger) gin.HandlerFunc {
	adminService := service.NewAdminService(repos, store, logger)
	return func(c *gin.Context) {
		file, header, ok := formFile(c, "file", maxSize)
		if !ok {
			return
		}
		defer file.Close()

		url, err := adminService.Upload(
			c.Request.Context(),
			c.Param("bucket"),
			c.PostForm("folder"),
			header.Filename,
			file,
		)
		if err != nil {
			respondError(c, logger, err, "Failed to upload file")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"url": url})
	}
}
