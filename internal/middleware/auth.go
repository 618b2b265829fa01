package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/moneytrail/moneytrail/internal/auth"
	"github.com/moneytrail/moneytrail/internal/metrics"
	"github.com/moneytrail/moneytrail/internal/model"
	"github.com/moneytrail/moneytrail/internal/service"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "token"

// Session rejection messages.
const (
	msgNoToken      = "Unauthorized: No token provided"
	msgInvalidToken = "Unauthorized: Invalid token"
	msgUserGone     = "Unauthorized: User not found"
	msgInternal     = "Internal server error"
)

// Authenticator resolves a session token to the identity of its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Identity, error)
}

// SessionConfig holds configuration for the session middleware.
type SessionConfig struct {
	Logger        *slog.Logger
	Authenticator Authenticator
	Metrics       metrics.Recorder
}

// Session returns a middleware that authenticates requests by their session cookie.
// Only the cookie is consulted; Authorization headers are ignored.
// On success the identity is attached to the request context.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				token = cookie.Value
			}

			identity, err := cfg.Authenticator.Authenticate(r.Context(), token)
			if err != nil {
				reason, message, ok := rejection(err)
				if !ok {
					cfg.Logger.Error("session lookup failed",
						slog.String("error", err.Error()),
						slog.String("endpoint", r.Method+" "+r.URL.Path),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeSessionError(w, http.StatusInternalServerError, msgInternal)
					return
				}

				cfg.Metrics.IncAuthRejected(reason)
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeSessionError(w, http.StatusUnauthorized, message)
				return
			}

			cfg.Logger.Debug("authentication successful",
				slog.String("user_id", identity.ID),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			setLogUser(r.Context(), identity.ID)
			ctx := auth.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// rejection maps a session error to its metric reason and response message.
// ok is false for infrastructure failures.
func rejection(err error) (reason, message string, ok bool) {
	switch {
	case errors.Is(err, service.ErrNoToken):
		return metrics.ReasonNoToken, msgNoToken, true
	case errors.Is(err, service.ErrInvalidToken):
		return metrics.ReasonInvalidToken, msgInvalidToken, true
	case errors.Is(err, service.ErrUserGone):
		return metrics.ReasonUserGone, msgUserGone, true
	default:
		return "", "", false
	}
}

func writeSessionError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"message": message,
		"success": false,
	})
}
