// Package requestcontext carries request-scoped values through context.Context
// so services and the batch engine can read them without importing net/http.
package requestcontext

import (
	"context"
	"time"

	id "vatgate/pkg/domain"
)

type (
	accountIDKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

func value[T any](ctx context.Context, key any) (T, bool) {
	v, ok := ctx.Value(key).(T)
	return v, ok
}

// AccountID is the authenticated account, or the empty ID outside an
// authenticated request.
func AccountID(ctx context.Context) id.AccountID {
	v, _ := value[id.AccountID](ctx, accountIDKey{})
	return v
}

func WithAccountID(ctx context.Context, accountID id.AccountID) context.Context {
	return context.WithValue(ctx, accountIDKey{}, accountID)
}

func RequestID(ctx context.Context) string {
	v, _ := value[string](ctx, requestIDKey{})
	return v
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now is the time pinned at the start of the request. Batch rows are stamped
// with it so every row of one request shares a checked_at. Outside a request
// it falls back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := value[time.Time](ctx, requestTimeKey{}); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
