package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		requestID string
		traceID   string
		wantKept  bool
		wantTrace string
	}{
		{"generated when absent", "", "", false, ""},
		{"client id kept", "req-01HX.abc_1", "trace-1", true, "trace-1"},
		{"too long replaced", strings.Repeat("a", maxCorrelationIDLen+1), "", false, ""},
		{"control characters replaced", "abc\ninjected=1", "", false, ""},
		{"malformed trace dropped", "req-1", "trace id with spaces", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotID, gotTrace string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID = GetRequestID(r.Context())
				gotTrace = GetTraceID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.requestID != "" {
				req.Header.Set(RequestIDHeader, tt.requestID)
			}
			if tt.traceID != "" {
				req.Header.Set(TraceIDHeader, tt.traceID)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if tt.wantKept {
				if gotID != tt.requestID {
					t.Errorf("request id = %q, want %q", gotID, tt.requestID)
				}
			} else if _, err := uuid.Parse(gotID); err != nil {
				t.Errorf("request id = %q, want a generated UUID", gotID)
			}
			if h := rec.Header().Get(RequestIDHeader); h != gotID {
				t.Errorf("%s header = %q, want %q", RequestIDHeader, h, gotID)
			}

			if gotTrace != tt.wantTrace {
				t.Errorf("trace id = %q, want %q", gotTrace, tt.wantTrace)
			}
			if h := rec.Header().Get(TraceIDHeader); h != tt.wantTrace {
				t.Errorf("%s header = %q, want %q", TraceIDHeader, h, tt.wantTrace)
			}
		})
	}
}

func TestGetRequestID_OutsideMiddleware(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("GetRequestID = %q, want empty", id)
	}
}
