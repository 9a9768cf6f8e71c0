package handlers

import (
	"context"
	"io"
	"net/http"

	"salondesk/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxPaymentWebhookBody = 64 << 10

// PaymentWebhookService verifies and applies a payment provider event.
type PaymentWebhookService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type PaymentHandler struct {
	Payments PaymentWebhookService
}

func NewPaymentHandler(svc PaymentWebhookService) *PaymentHandler {
	return &PaymentHandler{Payments: svc}
}

// StripeWebhookHandler records checkout outcomes on the matching appointment.
func (h *PaymentHandler) StripeWebhookHandler(c *gin.Context) {
	logger := getLogger(c)

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPaymentWebhookBody))
	if err != nil {
		logger.Error("Failed to read payment webhook", zap.Error(err))
		utils.RespondError(c, utils.InvalidInput("unreadable body"))
		return
	}
	if err := h.Payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
