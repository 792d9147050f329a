package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// SignatureHeader carries the automation service's HMAC of the raw body.
const SignatureHeader = "X-Automation-Signature"

// validSignature verifies a hex-encoded HMAC-SHA256 over the raw body.
func validSignature(secret string, signature string, body []byte) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected))
}

// WebhookAuth validates callbacks from the automation service under /hooks/.
// The raw body is restored for downstream handlers.
func WebhookAuth(getSecret func() string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.HasPrefix(c.Request().URL.Path, "/hooks/") {
				return next(c)
			}

			secret := getSecret()
			if secret == "" {
				return c.String(http.StatusInternalServerError, "AUTOMATION_SIGNING_SECRET not configured")
			}

			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return c.String(http.StatusBadRequest, "Failed to read request body")
			}
			c.Request().Body = io.NopCloser(bytes.NewReader(body))

			if !validSignature(secret, c.Request().Header.Get(SignatureHeader), body) {
				return c.String(http.StatusUnauthorized, "Invalid webhook signature")
			}
			return next(c)
		}
	}
}
