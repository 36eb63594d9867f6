package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"taskboard-api/models"
	"taskboard-api/services"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubUsers map[uint]*models.User

func (s stubUsers) FindByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %d: %w", id, services.ErrUserNotFound)
}

func (s stubUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, services.ErrUserNotFound
}

func signToken(t *testing.T, userID uint, secret string, expires time.Time) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func authRouter() *gin.Engine {
	users := stubUsers{
		1: {UserID: 1, Email: "active@example.com", AccountStatus: models.AccountActive},
		2: {UserID: 2, Email: "banned@example.com", AccountStatus: models.AccountBanned},
	}
	r := gin.New()
	r.GET("/me", AuthMiddleware(testSecret, users), func(c *gin.Context) {
		id, _ := CurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "email": CurrentEmail(c)})
	})
	r.GET("/stream", StreamTokenFromQuery(), AuthMiddleware(testSecret, users), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := authRouter()
	future := time.Now().Add(time.Hour)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Token abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, 1, "other", future), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, 1, testSecret, time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"unknown user", "Bearer " + signToken(t, 99, testSecret, future), http.StatusUnauthorized},
		{"banned user", "Bearer " + signToken(t, 2, testSecret, future), http.StatusForbidden},
		{"active user", "Bearer " + signToken(t, 1, testSecret, future), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestAuthSetsCaller(t *testing.T) {
	r := authRouter()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, 1, testSecret, time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `{"id":1,"email":"active@example.com"}`, w.Body.String())
}

func TestStreamTokenFromQuery(t *testing.T) {
	r := authRouter()
	token := signToken(t, 1, testSecret, time.Now().Add(time.Hour))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stream?access_token="+token, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stream", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInternalKeyMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3rvice"), bcrypt.MinCost)
	assert.NoError(t, err)

	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r := gin.New()
	r.POST("/guarded", InternalKeyMiddleware(string(hash)), ok)
	r.POST("/disabled", InternalKeyMiddleware(""), ok)

	send := func(path, key string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		if key != "" {
			req.Header.Set(InternalKeyHeader, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("/guarded", "s3rvice"))
	assert.Equal(t, http.StatusOK, send("/guarded", "s3rvice"))
	assert.Equal(t, http.StatusUnauthorized, send("/guarded", "wrong"))
	assert.Equal(t, http.StatusUnauthorized, send("/guarded", ""))
	assert.Equal(t, http.StatusServiceUnavailable, send("/disabled", "s3rvice"))
}

func TestKeyVerifierCachesLastKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3rvice"), bcrypt.MinCost)
	assert.NoError(t, err)

	v := newKeyVerifier(string(hash))
	assert.Nil(t, v.verified.Load())
	assert.False(t, v.verify("wrong"))
	assert.Nil(t, v.verified.Load(), "a rejected key must not be remembered")

	assert.True(t, v.verify("s3rvice"))
	assert.NotNil(t, v.verified.Load())

	// with bcrypt out of the picture only the remembered key still passes
	v.hash = nil
	assert.True(t, v.verify("s3rvice"))
	assert.False(t, v.verify("wrong"))
	assert.False(t, v.verify("s3rvice "))
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(), CORSMiddleware([]string{"http://localhost:3000"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
