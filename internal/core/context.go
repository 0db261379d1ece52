package core

import "context"

type contextKey string

const (
	ctxKeyClientIP  contextKey = "client_ip"
	ctxKeyUserAgent contextKey = "user_agent"
)

// ContextWithClient records who is making a request, for save logs.
func ContextWithClient(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyClientIP, ip)
	return context.WithValue(ctx, ctxKeyUserAgent, userAgent)
}

// ClientIP returns the address stored by ContextWithClient.
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyClientIP).(string); ok {
		return v
	}
	return ""
}

// UserAgent returns the user agent stored by ContextWithClient.
func UserAgent(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}

// clientAttrs returns the client fields of ctx as log attributes.
func clientAttrs(ctx context.Context) []any {
	var attrs []any
	if ip := ClientIP(ctx); ip != "" {
		attrs = append(attrs, "ip", ip)
	}
	if ua := UserAgent(ctx); ua != "" {
		attrs = append(attrs, "user_agent", ua)
	}
	return attrs
}
