package mcp

import (
	"context"
	"encoding/json"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Handler with a token-bucket limiter shared across both
// transports, so a single RequestRateLimit/RequestRateBurst config pair
// bounds load regardless of whether a client connects over stdio or HTTP.
type RateLimited struct {
	inner   Handler
	limiter *rate.Limiter
}

// NewRateLimited returns inner unchanged if rps <= 0, since a limit of zero
// means rate limiting is disabled rather than "block everything".
func NewRateLimited(inner Handler, rps float64, burst int) Handler {
	if rps <= 0 {
		return inner
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) Handle(ctx context.Context, raw json.RawMessage) (json.RawMessage, bool) {
	if err := r.limiter.Wait(ctx); err != nil {
		resp, marshalErr := json.Marshal(JSONRPCErrorResponse{
			JSONRPC: "2.0",
			Error:   &ErrorDetail{Code: InternalError, Message: "rate limit wait canceled: " + err.Error()},
		})
		if marshalErr != nil {
			return nil, false
		}
		return resp, true
	}
	return r.inner.Handle(ctx, raw)
}
