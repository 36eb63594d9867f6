package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const InternalKeyHeader = "X-Service-Key"

// keyVerifier checks service keys against a bcrypt hash. The sha256 of the
// last key that passed is kept so repeat callers skip bcrypt.
type keyVerifier struct {
	hash     []byte
	verified atomic.Pointer[[sha256.Size]byte]
}

func newKeyVerifier(keyHash string) *keyVerifier {
	return &keyVerifier{hash: []byte(keyHash)}
}

func (v *keyVerifier) verify(key string) bool {
	sum := sha256.Sum256([]byte(key))
	if last := v.verified.Load(); last != nil && subtle.ConstantTimeCompare(last[:], sum[:]) == 1 {
		return true
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(key)); err != nil {
		return false
	}
	v.verified.Store(&sum)
	return true
}

// InternalKeyMiddleware guards service-to-service endpoints. The key is
// compared against a bcrypt hash so the plain key never sits in config.
func InternalKeyMiddleware(keyHash string) gin.HandlerFunc {
	keyHash = strings.TrimSpace(keyHash)
	verifier := newKeyVerifier(keyHash)
	return func(c *gin.Context) {
		if keyHash == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "internal API disabled"})
			return
		}
		key := strings.TrimSpace(c.GetHeader(InternalKeyHeader))
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "service key required"})
			return
		}
		if !verifier.verify(key) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid service key"})
			return
		}
		c.Next()
	}
}
