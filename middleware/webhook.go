package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// SignatureHeader carries the gateway's HMAC of the raw request body.
const SignatureHeader = "X-Paystack-Signature"

// VerifyWebhookSignature authenticates inbound gateway webhooks with an
// HMAC-SHA512 of the raw body before any parsing or order lookup happens.
// A mismatch is rejected with no side effects. Sandbox/dev mode skips the
// check so local gateway simulators can post unsigned events.
func VerifyWebhookSignature() gin.HandlerFunc {
	secretKey := os.Getenv("PAYSTACK_SECRET_KEY")
	if secretKey == "" {
		panic("PAYSTACK_SECRET_KEY is not set")
	}

	mode := strings.ToLower(os.Getenv("PAYSTACK_MODE"))

	return func(c *gin.Context) {
		if mode == "sandbox" || mode == "dev" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body for signature verification"})
			c.Abort()
			return
		}
		// Hand the body back to the handler.
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		provided := c.GetHeader(SignatureHeader)
		if provided == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "missing webhook signature"})
			c.Abort()
			return
		}

		if !ValidSignature(body, provided, secretKey) {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid webhook signature"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ValidSignature computes the expected HMAC-SHA512 and compares it in
// constant time.
func ValidSignature(body []byte, provided, secretKey string) bool {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(provided)), []byte(expected))
}
