package auth

import (
	"context"

	"authcore/internal/model"
)

// Context is the identity resolved for one request.
type Context struct {
	User      *model.User
	Token     *model.Token
	IPAddress string
	UserAgent string
}

// Roles returns the role set read when the token was validated.
func (c *Context) Roles() []string {
	if c == nil || c.User == nil {
		return nil
	}
	return c.User.Roles
}

type contextKey struct{}

// WithContext attaches the auth context to ctx.
func WithContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext returns the auth context, or nil for anonymous requests.
func FromContext(ctx context.Context) *Context {
	ac, _ := ctx.Value(contextKey{}).(*Context)
	return ac
}
