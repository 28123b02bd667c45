package client

import "context"

type ctxKey int

const (
	accessTokenKey ctxKey = iota
	serviceRoleKey
)

// WithAccessToken attaches the signed-in user's access token so provider
// calls made with ctx run under that user's row-level security.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenKey, token)
}

func AccessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey).(string)
	return token
}

// WithServiceRole marks ctx for calls that must bypass row-level security,
// such as background maintenance. It only takes effect when a service key is
// configured.
func WithServiceRole(ctx context.Context) context.Context {
	return context.WithValue(ctx, serviceRoleKey, true)
}

func serviceRole(ctx context.Context) bool {
	v, _ := ctx.Value(serviceRoleKey).(bool)
	return v
}
