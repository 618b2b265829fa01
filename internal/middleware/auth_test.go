package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"

	"github.com/moneytrail/moneytrail/internal/auth"
	"github.com/moneytrail/moneytrail/internal/metrics"
	"github.com/moneytrail/moneytrail/internal/model"
	"github.com/moneytrail/moneytrail/internal/service"
)

// stubAuthenticator maps tokens to outcomes.
type stubAuthenticator struct {
	identities map[string]*model.Identity
	errs       map[string]error
	seen       []string
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, token string) (*model.Identity, error) {
	s.seen = append(s.seen, token)
	if token == "" {
		return nil, service.ErrNoToken
	}
	if err, ok := s.errs[token]; ok {
		return nil, err
	}
	if identity, ok := s.identities[token]; ok {
		return identity, nil
	}
	return nil, fmt.Errorf("%w: unknown", service.ErrInvalidToken)
}

func newSessionHandler(t *testing.T) (http.Handler, *stubAuthenticator, *metrics.InMemoryRecorder) {
	t.Helper()

	stub := &stubAuthenticator{
		identities: map[string]*model.Identity{
			"good": {ID: "u1", Name: "Ann", Email: "ann@x.com", Incomes: []string{}, Expenses: []string{}},
		},
		errs: map[string]error{
			"gone":   service.ErrUserGone,
			"broken": errors.New("connection refused"),
		},
	}
	recorder := metrics.NewInMemory()

	protected := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := auth.MustIdentityFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"user_id":%q}`, identity.ID)
	})

	handler := Session(SessionConfig{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Authenticator: stub,
		Metrics:       recorder,
	})(protected)

	return handler, stub, recorder
}

func TestSession_NoCookie(t *testing.T) {
	handler, _, recorder := newSessionHandler(t)

	apitest.New().
		Handler(handler).
		Get("/api/auth/verify").
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.message", "Unauthorized: No token provided")).
		Assert(jsonpath.Equal("$.success", false)).
		End()

	if got := recorder.Snapshot().AuthRejectedNoToken; got != 1 {
		t.Errorf("AuthRejectedNoToken = %d, want 1", got)
	}
}

func TestSession_IgnoresAuthorizationHeader(t *testing.T) {
	handler, stub, _ := newSessionHandler(t)

	apitest.New().
		Handler(handler).
		Get("/api/auth/verify").
		Header("Authorization", "Bearer good").
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.message", "Unauthorized: No token provided")).
		End()

	if len(stub.seen) != 1 || stub.seen[0] != "" {
		t.Errorf("authenticator saw %v, want only the empty cookie token", stub.seen)
	}
}

func TestSession_InvalidToken(t *testing.T) {
	handler, _, recorder := newSessionHandler(t)

	apitest.New().
		Handler(handler).
		Get("/api/transaction/get-incomes").
		Cookie(SessionCookieName, "forged").
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.message", "Unauthorized: Invalid token")).
		Assert(jsonpath.Equal("$.success", false)).
		End()

	if got := recorder.Snapshot().AuthRejectedInvalid; got != 1 {
		t.Errorf("AuthRejectedInvalid = %d, want 1", got)
	}
}

func TestSession_UserGone(t *testing.T) {
	handler, _, recorder := newSessionHandler(t)

	apitest.New().
		Handler(handler).
		Get("/api/auth/verify").
		Cookie(SessionCookieName, "gone").
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.message", "Unauthorized: User not found")).
		End()

	if got := recorder.Snapshot().AuthRejectedUserGone; got != 1 {
		t.Errorf("AuthRejectedUserGone = %d, want 1", got)
	}
}

func TestSession_StoreFailureIs500(t *testing.T) {
	handler, _, recorder := newSessionHandler(t)

	apitest.New().
		Handler(handler).
		Get("/api/auth/verify").
		Cookie(SessionCookieName, "broken").
		Expect(t).
		Status(http.StatusInternalServerError).
		Assert(jsonpath.Equal("$.message", "Internal server error")).
		End()

	snap := recorder.Snapshot()
	if snap.AuthRejectedNoToken+snap.AuthRejectedInvalid+snap.AuthRejectedUserGone != 0 {
		t.Error("infrastructure failures must not count as auth rejections")
	}
}

func TestSession_AttachesIdentity(t *testing.T) {
	handler, _, _ := newSessionHandler(t)

	apitest.New().
		Handler(handler).
		Get("/api/auth/verify").
		Cookie(SessionCookieName, "good").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.user_id", "u1")).
		End()
}
