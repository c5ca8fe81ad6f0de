package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nour-az/portfolio-cms/internal/config"
	"github.com/nour-az/portfolio-cms/internal/dtos"
)

const (
	DocumentBoth        = "both"
	DocumentCV          = "cv"
	DocumentCoverLetter = "cover-letter"

	healthCheckTimeout = 5 * time.Second
)

// Tier pairs a model with the token budget for each document.
type Tier struct {
	Name              string
	Model             string
	CVTokens          int
	CoverLetterTokens int
}

// UnavailableError means the model server cannot serve the request. Message
// tells the operator how to fix it.
type UnavailableError struct {
	Message string
}

func (e *UnavailableError) Error() string { return e.Message }

// ModelFactory builds a langchaingo model for a model name.
type ModelFactory func(model string) (llms.Model, error)

type LLMOption func(*LLMService)

func WithModelFactory(f ModelFactory) LLMOption {
	return func(s *LLMService) { s.newModel = f }
}

func WithHTTPClient(c *http.Client) LLMOption {
	return func(s *LLMService) { s.client = c }
}

// LLMService generates tailored CVs and cover letters with a local Ollama server.
type LLMService struct {
	cfg      config.OllamaConfig
	client   *http.Client
	newModel ModelFactory
	log      *zap.SugaredLogger
}

func NewLLMService(cfg config.OllamaConfig, log *zap.SugaredLogger, opts ...LLMOption) *LLMService {
	s := &LLMService{cfg: cfg, client: &http.Client{}, log: log}
	for _, opt := range opts {
		opt(s)
	}
	if s.newModel == nil {
		s.newModel = func(model string) (llms.Model, error) {
			return ollama.New(
				ollama.WithServerURL(s.cfg.BaseURL),
				ollama.WithModel(model),
				ollama.WithHTTPClient(s.client),
			)
		}
	}
	return s
}

// Tier maps the "fast"/"slow" selector onto a model. Anything but "slow" is fast.
func (s *LLMService) Tier(name string) Tier {
	if name == "slow" {
		return Tier{Name: "slow", Model: s.cfg.SlowModel, CVTokens: 2500, CoverLetterTokens: 1000}
	}
	return Tier{Name: "fast", Model: s.cfg.FastModel, CVTokens: 1800, CoverLetterTokens: 800}
}

type ollamaModel struct {
	Name string `json:"name"`
}

type ollamaTags struct {
	Models []ollamaModel `json:"models"`
}

// CheckHealth lists the server's installed models and verifies model is among
// them. Every failure is an *UnavailableError.
func (s *LLMService) CheckHealth(ctx context.Context, model string) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	var (
		tags   ollamaTags
		status int
	)
	err := requests.
		URL(s.cfg.BaseURL+"/api/tags").
		Client(s.client).
		AddValidator(func(res *http.Response) error {
			status = res.StatusCode
			return nil
		}).
		CheckStatus(http.StatusOK).
		ToJSON(&tags).
		Fetch(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		return &UnavailableError{Message: "Ollama server connection timeout. Please ensure Ollama is running with 'ollama serve'."}
	case status != 0 && status != http.StatusOK:
		return &UnavailableError{Message: "Ollama server is not responding. Please start Ollama with 'ollama serve'."}
	default:
		s.log.Warnw("ollama health check failed", "error", err)
		return &UnavailableError{Message: fmt.Sprintf("Could not connect to Ollama at %s. Please ensure Ollama is running.", s.cfg.BaseURL)}
	}

	installed := slices.ContainsFunc(tags.Models, func(m ollamaModel) bool {
		return m.Name == model
	})
	if !installed {
		return &UnavailableError{Message: fmt.Sprintf("Model '%s' is not installed. Please run: ollama pull %s", model, model)}
	}
	return nil
}

// Generate writes the requested documents for c. With DocumentBoth the two
// prompts run concurrently and both must succeed.
func (s *LLMService) Generate(ctx context.Context, tier Tier, documentType, jobPosting string, c *Candidate) (*dtos.GenerateResponse, error) {
	model, err := s.newModel(tier.Model)
	if err != nil {
		return nil, fmt.Errorf("create model client: %w", err)
	}

	s.log.Infow("generating documents", "tier", tier.Name, "model", tier.Model, "documentType", documentType)

	var res dtos.GenerateResponse
	g, gctx := errgroup.WithContext(ctx)
	if documentType == DocumentBoth || documentType == DocumentCV {
		g.Go(func() error {
			out, err := s.complete(gctx, model, buildCVPrompt(jobPosting, c), tier.CVTokens)
			cv := trimAfterLastDiv(out)
			res.CV = &cv
			return err
		})
	}
	if documentType == DocumentBoth || documentType == DocumentCoverLetter {
		g.Go(func() error {
			out, err := s.complete(gctx, model, buildCoverLetterPrompt(jobPosting, c), tier.CoverLetterTokens)
			letter := trimAfterLastDiv(out)
			res.CoverLetter = &letter
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *LLMService) complete(ctx context.Context, model llms.Model, prompt string, maxTokens int) (string, error) {
	resp, err := llms.GenerateFromSinglePrompt(ctx, model, prompt,
		llms.WithMaxTokens(maxTokens),
		llms.WithTemperature(0.7),
		llms.WithTopP(0.9),
	)
	if err != nil {
		s.log.Errorw("ollama generation error", "error", err)
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

// IsConnectionError reports whether err came from reaching the model server
// rather than from the generation itself.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var (
		urlErr *url.Error
		netErr net.Error
	)
	return errors.As(err, &urlErr) ||
		errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
