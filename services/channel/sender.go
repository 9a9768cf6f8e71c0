package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"salondesk/models"
	"salondesk/utils"

	"go.uber.org/zap"
)

// Sender delivers replies to a customer through the venue's WhatsApp number.
// Send methods return the provider message id for the outbound log.
type Sender interface {
	Send(ctx context.Context, ch models.ChannelSettings, to string, reply models.Reply) (string, error)
	SendPaymentLink(ctx context.Context, ch models.ChannelSettings, to, link string, required bool) (string, error)
	MarkRead(ctx context.Context, ch models.ChannelSettings, messageID string) error
}

// GraphSender calls the Cloud API messages endpoint.
type GraphSender struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     *TokenCipher
	Logger     *zap.Logger
}

func NewGraphSender(baseURL string, tokens *TokenCipher, logger *zap.Logger) *GraphSender {
	return &GraphSender{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Tokens:     tokens,
		Logger:     logger,
	}
}

type graphResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (s *GraphSender) Send(ctx context.Context, ch models.ChannelSettings, to string, reply models.Reply) (string, error) {
	return s.post(ctx, ch, BuildMessage(WireNumber(to), reply))
}

func (s *GraphSender) SendPaymentLink(ctx context.Context, ch models.ChannelSettings, to, link string, required bool) (string, error) {
	return s.post(ctx, ch, BuildPaymentMessage(WireNumber(to), link, required))
}

// MarkRead sends the read receipt (blue ticks) for an inbound message.
func (s *GraphSender) MarkRead(ctx context.Context, ch models.ChannelSettings, messageID string) error {
	_, err := s.post(ctx, ch, buildReadReceipt(messageID))
	return err
}

func (s *GraphSender) post(ctx context.Context, ch models.ChannelSettings, msg OutboundMessage) (string, error) {
	token, err := s.Tokens.reveal(ch.AccessToken)
	if err != nil {
		return "", utils.Internal("venue access token unreadable", err)
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.BaseURL, ch.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", utils.Upstream("whatsapp", err)
	}
	defer resp.Body.Close()

	var out graphResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && resp.StatusCode < 300 {
		return "", utils.Upstream("whatsapp", fmt.Errorf("decode response: %w", err))
	}
	if resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		s.Logger.Error("WhatsApp API error",
			zap.Int("status", resp.StatusCode),
			zap.String("phoneNumberID", ch.PhoneNumberID),
			zap.String("error", msg))
		return "", utils.Upstream("whatsapp", fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}
	if len(out.Messages) > 0 {
		return out.Messages[0].ID, nil
	}
	return "", nil
}
