package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/permitvault/backend-go/internal/metrics"
	"github.com/andresuchdata/permitvault/backend-go/internal/recaptcha"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Verifier checks a human-verification token upstream.
type Verifier interface {
	Verify(ctx context.Context, secret, token, remoteIP string) (*recaptcha.Result, error)
}

type VerifyHandler struct {
	verifier Verifier
	secret   string
	metrics  metrics.Observer
	log      zerolog.Logger
}

func NewVerifyHandler(verifier Verifier, secret string, obs metrics.Observer, log zerolog.Logger) *VerifyHandler {
	if obs == nil {
		obs = metrics.Nop{}
	}
	return &VerifyHandler{
		verifier: verifier,
		secret:   strings.TrimSpace(secret),
		metrics:  obs,
		log:      log,
	}
}

type verifyRequest struct {
	Token any `json:"token"`
}

// VerifyToken proxies a reCAPTCHA token to the verification service. CORS
// headers and preflight are handled by middleware.PublicCORS.
func (h *VerifyHandler) VerifyToken(c *gin.Context) {
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	if c.Request.Method != http.MethodPost {
		h.reply(c, http.StatusMethodNotAllowed, "method_not_allowed", gin.H{"ok": false, "error": "Method not allowed"})
		return
	}

	if h.secret == "" {
		h.log.Error().Msg("reCAPTCHA secret is not configured")
		h.reply(c, http.StatusInternalServerError, "misconfigured", gin.H{"ok": false, "error": "reCAPTCHA secret is not configured on backend"})
		return
	}

	token := readToken(c)
	if token == "" {
		h.reply(c, http.StatusBadRequest, "bad_request", gin.H{"ok": false, "error": "Missing token"})
		return
	}

	result, err := h.verifier.Verify(c.Request.Context(), h.secret, token, forwardedIP(c.Request))
	if err != nil {
		if errors.Is(err, recaptcha.ErrTimeout) {
			h.log.Error().Err(err).Msg("reCAPTCHA verify timeout")
			h.reply(c, http.StatusGatewayTimeout, "timeout", gin.H{"ok": false, "error": "Verification request timed out"})
			return
		}
		h.log.Error().Err(err).Msg("reCAPTCHA verify error")
		h.reply(c, http.StatusInternalServerError, "error", gin.H{"ok": false, "error": "Verification request failed"})
		return
	}

	if !result.Success {
		details := result.ErrorCodes
		if details == nil {
			details = []string{}
		}
		h.reply(c, http.StatusForbidden, "rejected", gin.H{"ok": false, "error": "reCAPTCHA verification failed", "details": details})
		return
	}

	h.reply(c, http.StatusOK, "success", gin.H{"ok": true})
}

func (h *VerifyHandler) reply(c *gin.Context, status int, result string, body gin.H) {
	h.metrics.RecordVerification(result)
	c.JSON(status, body)
}

// readToken accepts a JSON or form body. Falsy values (0, false, "", null)
// count as missing, other scalars are stringified. Objects and arrays are
// treated as missing.
func readToken(c *gin.Context) string {
	var req verifyRequest
	if strings.HasPrefix(c.ContentType(), "application/x-www-form-urlencoded") {
		return strings.TrimSpace(c.PostForm("token"))
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return ""
	}

	switch v := req.Token.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if !v {
			return ""
		}
		return "true"
	default:
		return ""
	}
}

// forwardedIP returns the first X-Forwarded-For entry, the original client.
func forwardedIP(r *http.Request) string {
	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	return strings.TrimSpace(first)
}
