package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	id "vatgate/pkg/domain"
	"vatgate/pkg/requestcontext"

	"github.com/stretchr/testify/assert"
)

type validatorFunc func(string) (*JWTClaims, error)

func (f validatorFunc) ValidateToken(token string) (*JWTClaims, error) { return f(token) }

func TestRequireAuth(t *testing.T) {
	validator := validatorFunc(func(token string) (*JWTClaims, error) {
		switch token {
		case "good":
			return &JWTClaims{AccountID: "acme"}, nil
		case "blank":
			return &JWTClaims{}, nil
		default:
			return nil, errors.New("bad signature")
		}
	})

	var got id.AccountID
	h := RequireAuth(validator, slog.New(slog.DiscardHandler))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestcontext.AccountID(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer good", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"invalid token", "Bearer forged", http.StatusUnauthorized},
		{"token without subject", "Bearer blank", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = ""
			req := httptest.NewRequest(http.MethodGet, "/account/credit", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, id.AccountID("acme"), got)
			} else {
				assert.True(t, got.IsNil())
				assert.Contains(t, rr.Body.String(), `"error":"unauthorized"`)
			}
		})
	}
}
