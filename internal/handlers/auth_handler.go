package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nour-az/portfolio-cms/internal/auth"
	"github.com/nour-az/portfolio-cms/internal/dtos"
)

type AuthHandler struct {
	Gate *auth.Gate
	log  *zap.SugaredLogger
}

func NewAuthHandler(gate *auth.Gate, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{Gate: gate, log: log}
}

// Login is the POST /api/admin/auth endpoint. It trades the admin password
// for the API key the mutating routes expect.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dtos.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password required"})
		return
	}
	key, ok := h.Gate.Exchange(req.Password)
	if !ok {
		h.log.Warnw("failed admin login", "ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}
	c.JSON(http.StatusOK, dtos.AuthResponse{APIKey: key, Message: "Authentication successful"})
}
