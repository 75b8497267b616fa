package testutil

import (
	"net/http"
	"time"

	id "vatgate/pkg/domain"
	"vatgate/pkg/requestcontext"
)

// WithAccount adds an account ID to the request context, as the auth
// middleware does for an authenticated request. Invalid IDs are ignored.
func WithAccount(req *http.Request, accountID string) *http.Request {
	parsed, err := id.ParseAccountID(accountID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithAccountID(req.Context(), parsed))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithRequestID sets the request ID the middleware would have minted.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
