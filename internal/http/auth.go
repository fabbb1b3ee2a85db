package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"atelier/internal/service"
)

// ErrUnauthenticated is returned when a request carries no valid bearer token.
var ErrUnauthenticated = errors.New("unauthenticated")

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	actorKey = "actor"
	issuer   = "atelier"
)

// Claims полезная нагрузка JWT: subject = id пользователя, role = user|admin
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator signs and verifies HS256 tokens.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// GenerateToken creates a signed token for userID valid for ttl.
func (a *Authenticator) GenerateToken(userID, role string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty subject", service.ErrInvalidInput)
	}
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) parse(header string) (*Claims, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid or expired token", ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return claims, nil
}

// RequireUser validates the bearer token and stores the caller for handlers.
func (a *Authenticator) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := a.parse(c.GetHeader("Authorization"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(actorKey, service.Actor{UserID: claims.Subject, Admin: claims.Role == RoleAdmin})
		c.Next()
	}
}

// RequireAdmin must run after RequireUser.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorFrom(c).Admin {
			abortWithError(c, fmt.Errorf("%w: admin role required", service.ErrNotAuthorized))
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) service.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(service.Actor); ok {
			return actor
		}
	}
	return service.Actor{}
}

func abortWithError(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	c.AbortWithStatusJSON(status, gin.H{"error": errorMessage(status, err)})
}
