package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/api/middleware"
	"github.com/popupmarket/proxybuy/internal/messaging"
	"github.com/popupmarket/proxybuy/internal/pricing"
	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/internal/service"
)

// QuoteLineResponse is a priced line of a quote
type QuoteLineResponse struct {
	ProductID string  `json:"product_id"`
	OptionID  *string `json:"option_id,omitempty"`
	Label     string  `json:"label"`
	Quantity  int     `json:"quantity"`
	UnitPrice int64   `json:"unit_price"`
	LineTotal int64   `json:"line_total"`
}

// QuoteResponse is the derived pricing of a selection
type QuoteResponse struct {
	Lines       []QuoteLineResponse `json:"lines"`
	Subtotal    int64               `json:"subtotal"`
	ShippingFee int64               `json:"shipping_fee"`
	Total       int64               `json:"total"`
}

func newQuoteResponse(q *pricing.Quote) *QuoteResponse {
	resp := &QuoteResponse{
		Lines:       make([]QuoteLineResponse, 0, len(q.Lines)),
		Subtotal:    q.Subtotal,
		ShippingFee: q.ShippingFee,
		Total:       q.Total,
	}
	for _, l := range q.Lines {
		line := QuoteLineResponse{
			ProductID: l.Product.ID.String(),
			Label:     l.Product.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		}
		if l.Option != nil {
			optionID := l.Option.ID.String()
			line.OptionID = &optionID
			line.Label = pricing.LineLabel(l.Product.Name, l.Option.Name)
		}
		resp.Lines = append(resp.Lines, line)
	}
	return resp
}

// HandleQuote handles POST /v1/events/:id/quote
func HandleQuote(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	delegateService := service.NewDelegateService(repos, nil, logger)
	return func(c *gin.Context) {
		eventID, ok := paramUUID(c, "id", "event")
		if !ok {
			return
		}

		var req service.QuoteRequest
		if !bindJSON(c, &req) {
			return
		}

		quote, err := delegateService.Quote(c.Request.Context(), eventID, req)
		if err != nil {
			respondError(c, logger, err, "Failed to quote selection")
			return
		}
		c.JSON(http.StatusOK, newQuoteResponse(quote))
	}
}

// HandleSubmitRequest handles POST /v1/events/:id/requests. Anonymous
// buyers may submit; the request then has no buyer.
func HandleSubmitRequest(repos *repository.Repositories, publisher messaging.Publisher, logger *zap.Logger) gin.HandlerFunc {
	delegateService := service.NewDelegateService(repos, publisher, logger)
	return func(c *gin.Context) {
		eventID, ok := paramUUID(c, "id", "event")
		if !ok {
			return
		}

		var req service.SubmitRequest
		if !bindJSON(c, &req) {
			return
		}

		var buyerID *uuid.UUID
		if user, ok := middleware.GetUserFromContext(c); ok {
			id := user.ID
			buyerID = &id
		}

		result, err := delegateService.Submit(
			c.Request.Context(),
			eventID,
			buyerID,
			middleware.GetIdempotencyKey(c),
			req,
		)
		if err != nil {
			respondError(c, logger, err, "Failed to submit request")
			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		c.JSON(status, result)
	}
}
