package audit

import "context"

type contextKey string

const clientIPKey contextKey = "clientIP"

// WithClientIP returns a copy of ctx carrying the requesting client address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the client address carried by ctx, or "".
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}
