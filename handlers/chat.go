package handlers

import (
	"context"
	"net/http"
	"strconv"

	"salondesk/middleware"
	"salondesk/models"
	"salondesk/services/chat"
	"salondesk/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatService is the dashboard view of the conversational orchestrator.
type ChatService interface {
	HandleMessage(ctx context.Context, msg chat.InboundMessage) (*chat.Result, error)
	History(ctx context.Context, salonID, phone string, limit int) ([]models.Conversation, error)
}

// ChatHandler lets an owner talk to their own assistant from the dashboard.
type ChatHandler struct {
	Chat ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{Chat: svc}
}

type chatMessageRequest struct {
	Phone       string `json:"phone" binding:"required"`
	Message     string `json:"message" binding:"required"`
	ProfileName string `json:"profileName"`
}

// SendChatMessageHandler runs one turn as the given customer phone.
func (h *ChatHandler) SendChatMessageHandler(c *gin.Context) {
	logger := getLogger(c)

	var req chatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Debug("Invalid chat request", zap.Error(err))
		utils.RespondError(c, utils.InvalidInput("invalid request: %v", err))
		return
	}

	res, err := h.Chat.HandleMessage(c.Request.Context(), chat.InboundMessage{
		SalonID:     middleware.SalonID(c),
		Phone:       req.Phone,
		Text:        req.Message,
		ProfileName: req.ProfileName,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ChatHistoryHandler lists recent sessions for a customer phone, newest first.
func (h *ChatHandler) ChatHistoryHandler(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		utils.RespondError(c, utils.InvalidInput("phone is required"))
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.RespondError(c, utils.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = n
	}

	convs, err := h.Chat.History(c.Request.Context(), middleware.SalonID(c), phone, limit)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs, "count": len(convs)})
}
