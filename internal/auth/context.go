package auth

import (
	"context"

	"github.com/gin-gonic/gin"
)

const RoleAdmin = "ADMIN"

type UserContext struct {
	UserID string
	Email  string
	Role   string
}

func (u UserContext) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type ctxKey struct{}

const ginUserKey = "auth_user"

// WithUser attaches the authenticated user to a context.
func WithUser(ctx context.Context, u UserContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the user placed by the middleware, if any.
func FromContext(ctx context.Context) (UserContext, bool) {
	u, ok := ctx.Value(ctxKey{}).(UserContext)
	return u, ok
}

// CurrentUser reads the user from the gin context, falling back to the request context.
func CurrentUser(c *gin.Context) (UserContext, bool) {
	if v, ok := c.Get(ginUserKey); ok {
		if u, ok := v.(UserContext); ok {
			return u, true
		}
	}
	return FromContext(c.Request.Context())
}

func GetUserID(c *gin.Context) string {
	u, _ := CurrentUser(c)
	return u.UserID
}
