package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"salondesk/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	signatureHeader = "X-Hub-Signature-256"
	maxWebhookBody  = 1 << 20
)

// WhatsAppSignatureMiddleware checks the X-Hub-Signature-256 HMAC of the raw
// body against appSecret. An empty secret disables the check. The body is
// restored for the next handler.
func WhatsAppSignatureMiddleware(appSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, utils.ErrorResponse{Message: "Unreadable body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if appSecret == "" {
			c.Next()
			return
		}
		if !ValidSignature(appSecret, body, c.GetHeader(signatureHeader)) {
			zap.L().Warn("Rejected webhook with bad signature", zap.String("ip", getClientIP(c)))
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Invalid signature", Code: utils.CodeUnauthorized})
			return
		}
		c.Next()
	}
}

// ValidSignature reports whether header is "sha256=" followed by the hex HMAC-SHA256 of body.
func ValidSignature(secret string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
