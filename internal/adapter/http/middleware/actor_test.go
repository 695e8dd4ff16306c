package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iho/bankledger/internal/usecase"
)

func TestActor(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantActor  string
		wantStatus int
	}{
		{"header set", "teller-7", "teller-7", http.StatusOK},
		{"header padded", "  teller-7 ", "teller-7", http.StatusOK},
		{"header missing", "", usecase.SystemActor, http.StatusOK},
		{"header too long", strings.Repeat("x", maxActorLength+1), "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = usecase.ActorFromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", nil)
			if tt.header != "" {
				req.Header.Set(ActorHeader, tt.header)
			}
			rec := httptest.NewRecorder()

			Actor(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if got != tt.wantActor {
				t.Fatalf("expected actor %q, got %q", tt.wantActor, got)
			}
		})
	}
}
