package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/moneytrail/moneytrail/internal/auth"
	"github.com/moneytrail/moneytrail/internal/handler/dto"
	"github.com/moneytrail/moneytrail/internal/middleware"
	"github.com/moneytrail/moneytrail/internal/model"
	"github.com/moneytrail/moneytrail/internal/service"
)

// Auth response messages.
const (
	msgSignupOK        = "Sign up successful"
	msgAccountExists   = "You already have an account. Please login."
	msgLoginOK         = "Login success"
	msgBadCredentials  = "Incorrect password or email"
	msgLoggedOut       = "Logged out successfully"
	msgAuthenticated   = "User is authenticated"
	msgInternalFailure = "Internal Server Error"
)

// AuthService is the account logic behind AuthHandler.
type AuthService interface {
	Signup(ctx context.Context, input service.SignupInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*service.Session, error)
}

// AuthHandler handles signup, login, logout and session verification.
type AuthHandler struct {
	svc          AuthService
	cookieSecure bool
	logger       *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
// cookieSecure forces the Secure attribute even on plain HTTP requests.
func NewAuthHandler(svc AuthService, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		svc:          svc,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req middleware.SignupRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}

	user, err := h.svc.Signup(r.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			writeError(w, http.StatusConflict, msgAccountExists)
			return
		}
		h.logger.Error("signup_failed",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, msgInternalFailure)
		return
	}

	h.logger.Info("user_signed_up", "user_id", user.ID)

	writeJSON(w, http.StatusCreated, dto.MessageResponse{Message: msgSignupOK, Success: true})
}

// Login handles POST /api/auth/login.
// Unknown email and wrong password get the same 403 and no cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req middleware.LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}

	session, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusForbidden, msgBadCredentials)
			return
		}
		h.logger.Error("login_failed",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, msgInternalFailure)
		return
	}

	maxAge := int(time.Until(session.ExpiresAt).Round(time.Second).Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("user_logged_in", "user_id", session.User.ID)

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: msgLoginOK, Success: true})
}

// Logout handles POST /api/auth/logout.
// Tokens are not revoked server-side; the cookie is cleared.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: msgLoggedOut, Success: true})
}

// Verify handles GET /api/auth/verify.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())

	writeJSON(w, http.StatusOK, dto.VerifyResponse{
		Success: true,
		Message: msgAuthenticated,
		User:    dto.ToUserResponse(identity),
	})
}

// isSecureRequest reports whether the session cookie must be Secure.
func (h *AuthHandler) isSecureRequest(r *http.Request) bool {
	if h.cookieSecure || r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
