package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nour-az/portfolio-cms/internal/dtos"
	"github.com/nour-az/portfolio-cms/internal/services"
)

type ClearHandler struct {
	CMS *services.CMSService
	log *zap.SugaredLogger
}

func NewClearHandler(cms *services.CMSService, log *zap.SugaredLogger) *ClearHandler {
	return &ClearHandler{CMS: cms, log: log}
}

// ClearAll is the POST /api/cms/clear endpoint. Partial failure still answers 200.
func (h *ClearHandler) ClearAll(c *gin.Context) {
	cleared, failed := h.CMS.ClearAll(c.Request.Context())
	if failed > 0 {
		h.log.Warnf("failed to clear %d keys", failed)
	}
	c.JSON(http.StatusOK, dtos.ClearAllResponse{
		Cleared: cleared,
		Failed:  failed,
		Message: fmt.Sprintf("Cleared %d CMS keys", cleared),
	})
}
