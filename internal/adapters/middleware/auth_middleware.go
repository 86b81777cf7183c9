package middleware

import (
	"crypto/rsa"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	RoleAdmin  = "ADMIN"
	RoleStaff  = "STAFF"
	RoleMember = "MEMBER"
)

// Context keys set by RequireRole.
const (
	UserIDKey = "userID"
	RoleKey   = "role"
)

// AuthMiddleware validates RS256 bearer tokens issued by the identity
// service. The token subject is the caller's user id.
type AuthMiddleware struct {
	publicKey *rsa.PublicKey
	logger    *zap.Logger
}

func NewAuthMiddleware(publicKey *rsa.PublicKey, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		publicKey: publicKey,
		logger:    logger,
	}
}

func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			m.deny(c, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.deny(c, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return m.publicKey, nil
		})
		if err != nil || !token.Valid {
			m.logger.Debug("token rejected", zap.Error(err))
			m.deny(c, http.StatusUnauthorized, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			m.deny(c, http.StatusUnauthorized, "invalid token claims")
			return
		}

		userID, ok := claims["sub"].(string)
		if !ok || userID == "" {
			m.deny(c, http.StatusUnauthorized, "invalid token: missing user ID")
			return
		}

		userRole, ok := claims["role"].(string)
		if !ok || userRole == "" {
			m.deny(c, http.StatusUnauthorized, "invalid token: missing role")
			return
		}

		if !slices.Contains(roles, userRole) {
			m.logger.Info("role not permitted",
				zap.String("user_id", userID),
				zap.String("role", userRole),
				zap.Strings("required", roles))
			m.deny(c, http.StatusForbidden, "forbidden")
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(RoleKey, userRole)
		c.Next()
	}
}

func (m *AuthMiddleware) deny(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

// UserID returns the authenticated caller, or "" outside RequireRole.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
