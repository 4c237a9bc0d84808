package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareHandle(t *testing.T) {
	const adminKey = "sk-admin-0123456789abcdef"

	tests := []struct {
		name           string
		setupRequest   func(*http.Request)
		expectedStatus int
	}{
		{
			name: "valid key",
			setupRequest: func(r *http.Request) {
				r.Header.Set(HeaderName, adminKey)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing key",
			setupRequest:   func(r *http.Request) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "wrong key",
			setupRequest: func(r *http.Request) {
				r.Header.Set(HeaderName, "sk-admin-wrong")
			},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			middleware := NewMiddleware(NewValidator(adminKey))

			var sawAuthed bool
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				sawAuthed = Authenticated(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/admin/servers", nil)
			tt.setupRequest(req)
			rr := httptest.NewRecorder()

			middleware.Handle(handler).ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if tt.expectedStatus == http.StatusOK && !sawAuthed {
				t.Error("expected request context to be marked authenticated")
			}
		})
	}
}

func TestAuthenticatedWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest("GET", "/admin/servers", nil)
	if Authenticated(req.Context()) {
		t.Error("expected unauthenticated context to report false")
	}
}
