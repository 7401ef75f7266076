package auth

import "context"

type (
	key byte
)

var (
	identityKey = key(1)
)

func WithIdentity(ctx context.Context, acc Account) context.Context {
	return context.WithValue(ctx, identityKey, acc)
}

func IdentityFrom(ctx context.Context) (Account, bool) {
	v, ok := ctx.Value(identityKey).(Account)
	return v, ok
}
