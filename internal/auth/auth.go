package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgMissingHeader = "Missing or invalid Authorization header"
	msgInvalidKey    = "Invalid API key"
)

// Result is the outcome of checking a request's credentials.
type Result struct {
	Authenticated bool
	Error         string
}

// Gate guards mutating routes with a single shared API key, and trades the
// admin password for that key.
type Gate struct {
	apiKey   string
	password string
}

func NewGate(apiKey, password string) *Gate {
	return &Gate{apiKey: apiKey, password: password}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Verify checks an Authorization header of the form "Bearer <key>".
func (g *Gate) Verify(header string) Result {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return Result{Error: msgMissingHeader}
	}
	if !equal(token, g.apiKey) {
		return Result{Error: msgInvalidKey}
	}
	return Result{Authenticated: true}
}

// Exchange returns the API key when password matches the admin password.
func (g *Gate) Exchange(password string) (string, bool) {
	if password == "" || !equal(password, g.password) {
		return "", false
	}
	return g.apiKey, true
}

// Middleware rejects unauthenticated requests with 401 before any handler runs.
func (g *Gate) Middleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := g.Verify(c.GetHeader("Authorization"))
		if !res.Authenticated {
			log.Debugw("rejected request", "method", c.Request.Method, "path", c.FullPath(), "reason", res.Error)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": res.Error})
			return
		}
		c.Next()
	}
}
