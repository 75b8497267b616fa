package batch

import (
	"context"
	"time"

	"vatgate/pkg/requestcontext"
)

func contextWithTime(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}
