package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront/api/responses"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// Recoverer turns a handler panic into a 500 envelope. It sits outside Session, so the cart
// session is read from the request header for the log line.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					fields := map[string]any{
						"panic":  fmt.Sprint(rec),
						"method": r.Method,
						"path":   r.URL.Path,
					}
					sessionID := SessionIDFromContext(ctx)
					if sessionID == "" {
						sessionID = strings.TrimSpace(r.Header.Get(SessionHeader))
					}
					if sessionID != "" {
						ctx = logg.WithSessionID(ctx, sessionID)
					}
					ctx = logg.WithFields(ctx, fields)
					logg.Error(ctx, "handler panic recovered", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
