package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/nour-az/portfolio-cms/internal/auth"
	"github.com/nour-az/portfolio-cms/internal/config"
	"github.com/nour-az/portfolio-cms/internal/kv"
	"github.com/nour-az/portfolio-cms/internal/services"
)

const testKey = "test-api-key"

type spyStore struct {
	kv.Store
	failGet bool
	failPut bool
	puts    atomic.Int32
}

func (s *spyStore) Get(ctx context.Context, key string) (string, error) {
	if s.failGet {
		return "", errors.New("dial tcp 10.0.0.1:443: i/o timeout")
	}
	return s.Store.Get(ctx, key)
}

func (s *spyStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if s.failPut {
		return errors.New("kv put: 500 Internal Server Error")
	}
	s.puts.Add(1)
	return s.Store.Put(ctx, key, value, ttl)
}

type echoModel struct {
	calls atomic.Int32
	err   error
}

func (m *echoModel) GenerateContent(ctx context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "<div>doc</div>\nHere you go!"}}}, nil
}

func (m *echoModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

type testEnv struct {
	router *gin.Engine
	store  *spyStore
	model  *echoModel
}

func newTestEnv(t *testing.T, cmsDir string, installed ...string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ollamaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		type model struct {
			Name string `json:"name"`
		}
		tags := struct {
			Models []model `json:"models"`
		}{Models: []model{}}
		for _, name := range installed {
			tags.Models = append(tags.Models, model{Name: name})
		}
		json.NewEncoder(w).Encode(tags)
	}))
	t.Cleanup(ollamaSrv.Close)

	store := &spyStore{Store: kv.NewMemory()}
	model := &echoModel{}
	log := zap.NewNop()

	cms := services.NewCMSService(store, services.NewLocalFiles(cmsDir), log.Sugar())
	llm := services.NewLLMService(
		config.OllamaConfig{BaseURL: ollamaSrv.URL, FastModel: "llama3.2:3b", SlowModel: "llama3.1:8b"},
		log.Sugar(),
		services.WithModelFactory(func(string) (llms.Model, error) { return model, nil }),
	)
	r := NewRouter(RouterDeps{
		CMS:  cms,
		LLM:  llm,
		Gate: auth.NewGate(testKey, "hunter2"),
		Log:  log,
	})
	return &testEnv{router: r, store: store, model: model}
}

func (e *testEnv) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestMutationsRequireAuth(t *testing.T) {
	env := newTestEnv(t, "")

	requests := []struct{ method, path, body string }{
		{http.MethodPost, "/api/cms/bio", `{"name":"A"}`},
		{http.MethodPost, "/api/cms/bio?action=clear", ""},
		{http.MethodPatch, "/api/cms/settings", `{"theme":"light"}`},
		{http.MethodDelete, "/api/cms/settings", ""},
		{http.MethodPost, "/api/cms/projects", `{"id":"p1","title":"T"}`},
		{http.MethodPatch, "/api/cms/projects/p1", `{"title":"U"}`},
		{http.MethodDelete, "/api/cms/experiences/e1", ""},
		{http.MethodPost, "/api/cms/education?action=clear", ""},
		{http.MethodPost, "/api/cms/clear", ""},
		{http.MethodPost, "/api/cms/generate-cv", `{"jobPosting":"x"}`},
	}
	for _, r := range requests {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			w := env.do(r.method, r.path, r.body, false)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"Missing or invalid Authorization header"}`, w.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/cms/bio", bytes.NewBufferString(`{"name":"A"}`))
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid API key"}`, w.Body.String())

	assert.Zero(t, env.store.puts.Load(), "rejected requests must not write")
}

func TestValidationDoesNotWrite(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		path, body, wantErr string
	}{
		{"/api/cms/projects", `{"id":"p1"}`, "Missing required fields: id, title"},
		{"/api/cms/experiences", `{"company":"Acme"}`, "Missing required fields: id, company"},
		{"/api/cms/education", `{"id":"ed1","degree":"BSc"}`, "Missing required fields: id, institution"},
		{"/api/cms/skills", `{"id":"s1"}`, "Missing required fields: id, name"},
		{"/api/cms/bio", `{"title":"no name"}`, "Missing required fields: name"},
		{"/api/cms/bio", `{not json`, "Invalid or missing request body"},
		{"/api/cms/skills", `[{"id":"s1","name":"Go"}]`, "Invalid request body"},
		{"/api/cms/settings", `null`, "Invalid request body"},
		{"/api/cms/projects", ``, "Invalid or missing request body"},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.body, func(t *testing.T) {
			w := env.do(http.MethodPost, tt.path, tt.body, true)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var res map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, tt.wantErr, res["error"])
		})
	}
	assert.Zero(t, env.store.puts.Load())
}

func TestBioRoundTrip(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodGet, "/api/cms/bio", "", false)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Bio not found"}`, w.Body.String())

	w = env.do(http.MethodPatch, "/api/cms/bio", `{"title":"Dev"}`, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/api/cms/bio", `{"name":"A"}`, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/cms/bio", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	var bio map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bio))
	assert.Equal(t, "A", bio["name"])

	w = env.do(http.MethodPatch, "/api/cms/bio", `{"title":"Dev"}`, true)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bio))
	assert.Equal(t, "A", bio["name"])
	assert.Equal(t, "Dev", bio["title"])
}

func TestClearIsIdempotent(t *testing.T) {
	env := newTestEnv(t, "")
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/cms/bio", `{"name":"A"}`, true).Code)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/cms/projects", `{"id":"p1","title":"T"}`, true).Code)

	for range 2 {
		w := env.do(http.MethodPost, "/api/cms/bio?action=clear", "", true)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Bio cleared"}`, w.Body.String())
		assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/cms/bio", "", false).Code)

		w = env.do(http.MethodPost, "/api/cms/projects?action=clear", "", true)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"All projects cleared"}`, w.Body.String())
		w = env.do(http.MethodGet, "/api/cms/projects", "", false)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	}

	w := env.do(http.MethodDelete, "/api/cms/settings", "", true)
	assert.JSONEq(t, `{"message":"Settings cleared"}`, w.Body.String())
	w = env.do(http.MethodPost, "/api/cms/education?action=clear", "", true)
	assert.JSONEq(t, `{"message":"All education entries cleared"}`, w.Body.String())
}

func TestListAppendAndDelete(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodPost, "/api/cms/projects", `{"id":"p0","title":"Keep"}`, true)
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(http.MethodPost, "/api/cms/projects", `{"id":"p1","title":"Gateway","stack":["Go"]}`, true)
	require.Equal(t, http.StatusCreated, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	w = env.do(http.MethodPatch, "/api/cms/projects/p1", `{"featured":true}`, true)
	require.Equal(t, http.StatusOK, w.Code)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, true, rec["featured"])
	assert.Equal(t, "Gateway", rec["title"])

	w = env.do(http.MethodPatch, "/api/cms/projects/p1", `{"title":""}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodDelete, "/api/cms/projects/p1", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	var del struct {
		Success bool           `json:"success"`
		ID      string         `json:"id"`
		Deleted map[string]any `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &del))
	assert.True(t, del.Success)
	assert.Equal(t, "p1", del.ID)
	assert.Equal(t, "Gateway", del.Deleted["title"])

	before := env.do(http.MethodGet, "/api/cms/projects", "", false).Body.String()
	assert.NotContains(t, before, `"p1"`)

	w = env.do(http.MethodDelete, "/api/cms/projects/p1", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Project not found"}`, w.Body.String())
	w = env.do(http.MethodPatch, "/api/cms/projects/nope", `{"title":"x"}`, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, before, env.do(http.MethodGet, "/api/cms/projects", "", false).Body.String())
}

func TestSkillsScenario(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodPost, "/api/cms/skills", `{"id":"s1","name":"Go"}`, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `[]`, env.do(http.MethodGet, "/api/cms/skills", "", false).Body.String())

	w = env.do(http.MethodPost, "/api/cms/skills", `{"id":"s1","name":"Go"}`, true)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodGet, "/api/cms/skills", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":"s1","name":"Go"}]`, w.Body.String())
}

func TestGetFallsBackToLocalFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bio.json"), []byte(`{"name":"From File","title":"Engineer"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skills.json"), []byte(`[{"id":"s9","name":"Rust"}]`), 0o644))

	env := newTestEnv(t, dir)
	env.store.failGet = true

	w := env.do(http.MethodGet, "/api/cms/bio", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	var bio map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bio))
	assert.Equal(t, "From File", bio["name"])

	w = env.do(http.MethodGet, "/api/cms/skills", "", false)
	assert.JSONEq(t, `[{"id":"s9","name":"Rust"}]`, w.Body.String())

	w = env.do(http.MethodGet, "/api/cms/settings", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	var settings map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, "classic", settings["defaultMode"])

	w = env.do(http.MethodGet, "/api/cms/projects", "", false)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestAdminAuth(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodPost, "/api/admin/auth", `{}`, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Password required"}`, w.Body.String())

	w = env.do(http.MethodPost, "/api/admin/auth", `{"password":"nope"}`, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid password"}`, w.Body.String())

	w = env.do(http.MethodPost, "/api/admin/auth", `{"password":"hunter2"}`, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"apiKey":"test-api-key","message":"Authentication successful"}`, w.Body.String())
}

func TestClearAll(t *testing.T) {
	env := newTestEnv(t, "")
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/cms/bio", `{"name":"A"}`, true).Code)

	w := env.do(http.MethodPost, "/api/cms/clear", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cleared":6,"failed":0,"message":"Cleared 6 CMS keys"}`, w.Body.String())
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/cms/bio", "", false).Code)
}

func TestGenerateCV(t *testing.T) {
	t.Run("model missing answers 503 without generating", func(t *testing.T) {
		env := newTestEnv(t, "", "mistral:7b")
		require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/cms/bio", `{"name":"A"}`, true).Code)

		w := env.do(http.MethodPost, "/api/cms/generate-cv", `{"jobPosting":"Go dev","model":"slow"}`, true)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"error":"Model 'llama3.1:8b' is not installed. Please run: ollama pull llama3.1:8b"}`, w.Body.String())
		assert.Zero(t, env.model.calls.Load())
	})

	t.Run("blank posting", func(t *testing.T) {
		env := newTestEnv(t, "", "llama3.2:3b")
		w := env.do(http.MethodPost, "/api/cms/generate-cv", `{"jobPosting":"   "}`, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Job posting is required"}`, w.Body.String())
	})

	t.Run("unknown document type", func(t *testing.T) {
		env := newTestEnv(t, "", "llama3.2:3b")
		w := env.do(http.MethodPost, "/api/cms/generate-cv", `{"jobPosting":"Go dev","documentType":"poem"}`, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no bio", func(t *testing.T) {
		env := newTestEnv(t, "", "llama3.2:3b")
		w := env.do(http.MethodPost, "/api/cms/generate-cv", `{"jobPosting":"Go dev"}`, true)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Bio data not found. Please complete your bio first."}`, w.Body.String())
		assert.Zero(t, env.model.calls.Load())
	})

	t.Run("both documents", func(t *testing.T) {
		env := newTestEnv(t, "", "llama3.2:3b")
		require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/cms/bio", `{"name":"A"}`, true).Code)

		w := env.do(http.MethodPost, "/api/cms/generate-cv", `{"jobPosting":"Go dev"}`, true)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"cv":"<div>doc</div>","coverLetter":"<div>doc</div>"}`, w.Body.String())
		assert.EqualValues(t, 2, env.model.calls.Load())
	})

	t.Run("cover letter only omits cv", func(t *testing.T) {
		env := newTestEnv(t, "", "llama3.2:3b")
		require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/cms/bio", `{"name":"A"}`, true).Code)

		w := env.do(http.MethodPost, "/api/cms/generate-cv", `{"jobPosting":"Go dev","documentType":"cover-letter"}`, true)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"coverLetter":"<div>doc</div>"}`, w.Body.String())
		assert.EqualValues(t, 1, env.model.calls.Load())
	})
}

func TestHealthAndRequestID(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodGet, "/api/health", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestStorageFailureAnswers500(t *testing.T) {
	env := newTestEnv(t, "")
	env.store.failPut = true

	tests := []struct {
		method, path, body, wantErr string
	}{
		{http.MethodPost, "/api/cms/bio", `{"name":"A"}`, "Failed to update bio"},
		{http.MethodPost, "/api/cms/bio?action=clear", "", "Failed to clear bio"},
		{http.MethodDelete, "/api/cms/settings", "", "Failed to clear settings"},
		{http.MethodPost, "/api/cms/projects", `{"id":"p1","title":"T"}`, "Failed to add project"},
		{http.MethodPost, "/api/cms/skills?action=clear", "", "Failed to clear skills"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := env.do(tt.method, tt.path, tt.body, true)
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"error":"`+tt.wantErr+`"}`, w.Body.String())
		})
	}
	assert.Zero(t, env.store.puts.Load())
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/cms/bio", "", false).Code)

	w := env.do(http.MethodPost, "/api/cms/clear", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cleared":0,"failed":6,"message":"Cleared 0 CMS keys"}`, w.Body.String())
}

func TestStorageFailureOnListMutation(t *testing.T) {
	env := newTestEnv(t, "")
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/cms/projects", `{"id":"p1","title":"T"}`, true).Code)
	env.store.failPut = true

	w := env.do(http.MethodPatch, "/api/cms/projects/p1", `{"title":"U"}`, true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to update project"}`, w.Body.String())

	w = env.do(http.MethodDelete, "/api/cms/projects/p1", "", true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to delete project"}`, w.Body.String())

	assert.JSONEq(t, `[{"id":"p1","title":"T","description":"","link":"","featured":false}]`,
		env.do(http.MethodGet, "/api/cms/projects", "", false).Body.String())
}

func TestGenerateCVModelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{
			name:     "connection error",
			err:      &url.Error{Op: "Post", URL: "http://localhost:11434/api/chat", Err: errors.New("connect: connection refused")},
			wantCode: http.StatusServiceUnavailable,
			wantErr:  errOllamaConnection,
		},
		{
			name:     "generation error",
			err:      errors.New("model ran out of memory"),
			wantCode: http.StatusInternalServerError,
			wantErr:  "model ran out of memory",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "", "llama3.2:3b")
			require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/cms/bio", `{"name":"A"}`, true).Code)
			env.model.err = tt.err

			w := env.do(http.MethodPost, "/api/cms/generate-cv", `{"jobPosting":"Go dev","documentType":"cv"}`, true)
			assert.Equal(t, tt.wantCode, w.Code)
			var res map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, tt.wantErr, res["error"])
			assert.EqualValues(t, 1, env.model.calls.Load())
		})
	}
}
