package handlers

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultWebhookTimeout = 2 * time.Minute

// WebhookProcessor consumes a raw WhatsApp webhook body.
type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, body []byte) error
}

// WebhookHandler serves the WhatsApp Cloud API callback. Deliveries are
// acknowledged before processing so the provider never retries on slow turns.
type WebhookHandler struct {
	Processor   WebhookProcessor
	VerifyToken string
	Timeout     time.Duration
	Logger      *zap.Logger

	inflight sync.WaitGroup
}

func NewWebhookHandler(p WebhookProcessor, verifyToken string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{Processor: p, VerifyToken: verifyToken, Timeout: defaultWebhookTimeout, Logger: logger}
}

// VerifyWebhookHandler answers the subscription handshake.
func (h *WebhookHandler) VerifyWebhookHandler(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && h.VerifyToken != "" && token == h.VerifyToken {
		h.Logger.Info("Webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}
	h.Logger.Warn("Webhook verification failed", zap.String("mode", mode))
	c.Status(http.StatusForbidden)
}

// ReceiveWebhookHandler acknowledges the delivery and processes it in the background.
func (h *WebhookHandler) ReceiveWebhookHandler(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.Logger.Error("Failed to read webhook body", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}
	c.Status(http.StatusOK)

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := h.Processor.ProcessWebhook(ctx, body); err != nil {
			h.Logger.Error("Webhook processing failed", zap.Error(err))
		}
	}()
}

// Wait blocks until every accepted delivery has been processed.
func (h *WebhookHandler) Wait() {
	h.inflight.Wait()
}
