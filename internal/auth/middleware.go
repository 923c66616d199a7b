package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("authorization header is missing")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims minted by the identity provider. The subject is the user id.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Parse validates an HS256 token and returns the user it identifies.
func (a *Authenticator) Parse(tokenString string) (UserContext, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return UserContext{}, ErrInvalidToken
	}

	uid := claims.Subject
	if uid == "" {
		return UserContext{}, ErrInvalidToken
	}
	return UserContext{UserID: uid, Email: claims.Email, Role: claims.Role}, nil
}

// Issue signs a token for a user. Used by tests and local tooling.
func (a *Authenticator) Issue(u UserContext, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = u.UserID
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Email: u.Email, Role: u.Role, RegisteredClaims: claims})
	return token.SignedString(a.secret)
}

// Middleware rejects requests without a valid bearer token.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrMissingToken.Error(), "code": "UNAUTHORIZED"})
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		u, err := a.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "UNAUTHORIZED"})
			return
		}

		c.Set(ginUserKey, u)
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), u))
		c.Next()
	}
}

// RequireAdmin must run after Middleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok || !u.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required", "code": "FORBIDDEN"})
			return
		}
		c.Next()
	}
}
