package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nour-az/portfolio-cms/internal/dtos"
	"github.com/nour-az/portfolio-cms/internal/services"
)

const errOllamaConnection = "Could not connect to Ollama. Please make sure Ollama is running (ollama serve) and the model is installed."

type GenerateHandler struct {
	CMS *services.CMSService
	LLM *services.LLMService
	log *zap.SugaredLogger
}

func NewGenerateHandler(cms *services.CMSService, llm *services.LLMService, log *zap.SugaredLogger) *GenerateHandler {
	return &GenerateHandler{CMS: cms, LLM: llm, log: log}
}

// GenerateCV is the POST /api/cms/generate-cv endpoint.
func (h *GenerateHandler) GenerateCV(c *gin.Context) {
	var req dtos.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.JobPosting) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Job posting is required"})
		return
	}
	if req.DocumentType == "" {
		req.DocumentType = services.DocumentBoth
	}

	ctx := c.Request.Context()
	tier := h.LLM.Tier(req.Model)

	var unavailable *services.UnavailableError
	if err := h.LLM.CheckHealth(ctx, tier.Model); err != nil {
		h.log.Warnw("ollama health check failed", "model", tier.Model, "error", err)
		if errors.As(err, &unavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": unavailable.Message})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ollama is not available"})
		return
	}

	candidate, err := h.CMS.LoadCandidate(ctx)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bio data not found. Please complete your bio first."})
		return
	}
	if err != nil {
		h.log.Errorw("failed to load candidate", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	res, err := h.LLM.Generate(ctx, tier, req.DocumentType, req.JobPosting, candidate)
	if err != nil {
		h.log.Errorw("document generation failed", "tier", tier.Name, "error", err)
		if services.IsConnectionError(err) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": errOllamaConnection})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
