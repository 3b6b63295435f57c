package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/internal/notifications"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// SessionHeader carries the browsing session that owns a cart.
const SessionHeader = "X-Cart-Session"

const maxSessionIDLen = 128

// Session resolves the cart session from SessionHeader, minting a new one when the client
// has none, and echoes it back so the client can keep using it.
func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
			if sessionID == "" || len(sessionID) > maxSessionIDLen {
				sessionID = uuid.NewString()
			}

			w.Header().Set(SessionHeader, sessionID)

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Notices gives every request its own notice collector.
func Notices() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := notifications.WithCollector(r.Context(), notifications.NewCollector())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
