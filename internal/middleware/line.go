package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/brightstage/line-gateway/internal/util"
)

// LineSignatureMiddleware verifies the x-line-signature header: base64 of the
// HMAC-SHA256 digest of the raw request body under the channel secret.
type LineSignatureMiddleware struct {
	channelSecret string
}

func NewLineSignatureMiddleware(channelSecret string) *LineSignatureMiddleware {
	return &LineSignatureMiddleware{channelSecret: channelSecret}
}

func (m *LineSignatureMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.channelSecret == "" {
			log.Warn().Msg("webhook signature verification bypassed: LINE_CHANNEL_SECRET is not configured")
			next.ServeHTTP(w, r)
			return
		}

		signature := r.Header.Get("x-line-signature")
		if signature == "" {
			log.Warn().Msg("webhook signature middleware: missing signature header")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing signature",
			})
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error().Err(err).Msg("webhook signature middleware: failed to read body")
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Failed to read request body",
			})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		computed := util.HmacSHA256Base64(m.channelSecret, string(body))
		if !util.ConstantTimeEqual(computed, signature) {
			log.Warn().Msg("webhook signature middleware: invalid signature")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid signature",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
