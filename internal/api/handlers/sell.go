package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/api/middleware"
	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/internal/service"
)

// FormResponse represents an agent's registration form
type FormResponse struct {
	CertURL         *string                 `json:"cert_url,omitempty"`
	CertWaived      bool                    `json:"cert_waived"`
	DeliveryMethods []domain.DeliveryMethod `json:"delivery_methods"`
	DeliveryETA     string                  `json:"delivery_eta"`
	HasPerk         bool                    `json:"has_perk"`
	Memo            *string                 `json:"memo,omitempty"`
	CreatedAt       string                  `json:"created_at"`
}

// RegistrationResponse is the caller's registration for an event
type RegistrationResponse struct {
	Registered bool                  `json:"registered"`
	Agent      *AgentResponse        `json:"agent,omitempty"`
	Form       *FormResponse         `json:"form,omitempty"`
	ETA        domain.ETAOption      `json:"eta,omitempty"`
	ETAOther   string                `json:"eta_other,omitempty"`
	Terms      domain.TermsByProduct `json:"terms"`
}

func newRegistrationResponse(reg *service.Registration) *RegistrationResponse {
	resp := &RegistrationResponse{
		Registered: reg.Form != nil,
		Agent:      newAgentResponse(reg.Agent),
		ETA:        reg.ETA,
		ETAOther:   reg.ETAOther,
		Terms:      reg.Terms,
	}
	if f := reg.Form; f != nil {
		resp.Form = &FormResponse{
			CertURL:         f.CertURL,
			CertWaived:      f.CertWaived,
			DeliveryMethods: f.DeliveryMethods,
			DeliveryETA:     f.DeliveryETA,
			HasPerk:         f.HasPerk,
			Memo:            f.Memo,
			CreatedAt:       formatTime(f.CreatedAt),
		}
	}
	return resp
}

// HandleGetRegistration handles GET /v1/sell/events/:id
func HandleGetRegistration(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	termsService := service.NewTermsService(repos, nil, logger)
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		eventID, ok := paramUUID(c, "id", "event")
		if !ok {
			return
		}

		reg, err := termsService.Load(c.Request.Context(), eventID, user.ID)
		if err != nil {
			respondError(c, logger, err, "Failed to load registration")
			return
		}
		c.JSON(http.StatusOK, newRegistrationResponse(reg))
	}
}

// HandleSaveRegistration handles PUT /v1/sell/events/:id
func HandleSaveRegistration(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	termsService := service.NewTermsService(repos, nil, logger)
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		eventID, ok := paramUUID(c, "id", "event")
		if !ok {
			return
		}

		var req service.SaveTermsRequest
		if !bindJSON(c, &req) {
			return
		}

		reg, err := termsService.Save(c.Request.Context(), eventID, user, req)
		if err != nil {
			respondError(c, logger, err, "Failed to save registration")
			return
		}
		c.JSON(http.StatusOK, newRegistrationResponse(reg))
	}
}

// HandleBulkTerms handles POST /v1/sell/events/:id/terms/bulk
func HandleBulkTerms(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	termsService := service.NewTermsService(repos, nil, logger)
	return func(c *gin.Context) {
		eventID, ok := paramUUID(c, "id", "event")
		if !ok {
			return
		}

		var req service.BulkTermsRequest
		if !bindJSON(c, &req) {
			return
		}

		terms, err := termsService.BulkExpand(c.Request.Context(), eventID, req)
		if err != nil {
			respondError(c, logger, err, "Failed to expand terms")
			return
		}
		c.JSON(http.StatusOK, gin.H{"terms": terms})
	}
}

// HandleEditorDefaults handles GET /v1/sell/events/:id/products/:productId/terms
func HandleEditorDefaults(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	termsService := service.NewTermsService(repos, nil, logger)
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		eventID, ok := paramUUID(c, "id", "event")
		if !ok {
			return
		}
		productID, ok := paramUUID(c, "productId", "product")
		if !ok {
			return
		}

		rows, err := termsService.EditorDefaults(c.Request.Context(), eventID, productID, user.ID)
		if err != nil {
			respondError(c, logger, err, "Failed to build editor rows")
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

// HandleUploadCertification handles POST /v1/sell/certifications
func HandleUploadCertification(repos *repository.Repositories, store service.ObjectStore, maxSize int64, logger *zap.Logger) gin.HandlerFunc {
	termsService := service.NewTermsService(repos, store, logger)
	return func(c *gin.Context) {
		file, header, ok := formFile(c, "file", maxSize)
		if !ok {
			return
		}
		defer file.Close()

		url, err := termsService.UploadCertification(c.Request.Context(), header.Filename, file)
		if err != nil {
			respondError(c, logger, err, "Failed to upload certification")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"url": url})
	}
}
