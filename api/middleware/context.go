package middleware

import (
	"context"

	"github.com/google/uuid"
)

// Caller is the principal resolved from a verified access token.
type Caller struct {
	UserID uuid.UUID
	Wallet string
}

type callerKey struct{}

func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	caller, ok := ctx.Value(callerKey{}).(Caller)
	return caller, ok
}

// WalletFromContext returns the caller's normalized wallet, or "" for
// anonymous requests.
func WalletFromContext(ctx context.Context) string {
	caller, _ := CallerFromContext(ctx)
	return caller.Wallet
}
