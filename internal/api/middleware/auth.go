package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"wastetrack/backend/internal/models"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "wastetrack-service"

	ctxUserID = "userID"
	ctxRole   = "role"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Tokens issues and validates HS256 access tokens.
type Tokens struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{Secret: []byte(secret), TTL: ttl, Now: time.Now}
}

// Issue signs a token carrying the user id and role.
func (t *Tokens) Issue(user *models.User) (string, error) {
	now := t.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(t.TTL).Unix(),
		"iss":  issuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.Secret)
}

// Parse validates raw and returns its subject and role.
func (t *Tokens) Parse(raw string) (string, models.Role, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.Secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired(), jwt.WithTimeFunc(t.Now))
	if err != nil || !token.Valid {
		return "", "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return "", "", ErrInvalidToken
	}
	return sub, models.Role(role), nil
}

// AuthMiddleware requires a valid bearer token and stores the caller's id and
// role in the gin context.
func AuthMiddleware(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required", "kind": "UNAUTHENTICATED"})
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format", "kind": "UNAUTHENTICATED"})
			return
		}

		sub, role, err := tokens.Parse(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "kind": "UNAUTHENTICATED"})
			return
		}

		c.Set(ctxUserID, sub)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// RequireRole lets only callers with one of roles through. The engine checks
// roles again against the directory; this only rejects early.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Role(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied", "kind": "UNAUTHORIZED"})
	}
}

// UserID returns the authenticated caller's id.
func UserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func Role(c *gin.Context) models.Role {
	if v, ok := c.Get(ctxRole); ok {
		if r, ok := v.(models.Role); ok {
			return r
		}
	}
	return ""
}
