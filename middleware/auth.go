package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"taskboard-api/models"
	"taskboard-api/services"
)

type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

const (
	ctxUserID = "userID"
	ctxEmail  = "email"
)

// AuthMiddleware validates the bearer JWT and loads the caller. Banned
// accounts are rejected with 403.
func AuthMiddleware(secret string, users services.UserDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims, err := parseToken(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if !errors.Is(err, services.ErrUserNotFound) {
				logrus.WithField("user_id", claims.UserID).Errorf("auth user lookup failed: %v", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		if user.AccountStatus == models.AccountBanned {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account suspended"})
			return
		}

		c.Set(ctxUserID, user.UserID)
		c.Set(ctxEmail, user.Email)
		c.Next()
	}
}

// StreamTokenFromQuery copies ?access_token= into the Authorization header
// for clients that cannot send headers.
func StreamTokenFromQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			if token := strings.TrimSpace(c.Query("access_token")); token != "" {
				c.Request.Header.Set("Authorization", "Bearer "+token)
			}
		}
		c.Next()
	}
}

func parseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == 0 {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// CurrentUserID returns the authenticated caller set by AuthMiddleware.
func CurrentUserID(c *gin.Context) (uint, bool) {
	if v, ok := c.Get(ctxUserID); ok {
		switch t := v.(type) {
		case uint:
			return t, true
		case int:
			return uint(t), true
		case int64:
			return uint(t), true
		case float64:
			return uint(t), true
		}
	}
	return 0, false
}

// CurrentEmail returns the authenticated caller's email.
func CurrentEmail(c *gin.Context) string {
	return c.GetString(ctxEmail)
}

// SetCurrentUser stores the caller the same way AuthMiddleware does.
func SetCurrentUser(c *gin.Context, userID uint, email string) {
	c.Set(ctxUserID, userID)
	c.Set(ctxEmail, email)
}
