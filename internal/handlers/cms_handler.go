package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nour-az/portfolio-cms/internal/dtos"
	"github.com/nour-az/portfolio-cms/internal/services"
)

const (
	errInvalidBody = "Invalid or missing request body"
	errNotObject   = "Invalid request body"
)

// readObject reads the request body and checks that it is a JSON object.
// On failure it has already answered 400.
func readObject(c *gin.Context) ([]byte, bool) {
	raw, err := c.GetRawData()
	if err != nil || !json.Valid(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errNotObject})
		return nil, false
	}
	return raw, true
}

// decodeObject reads a JSON object body into v.
func decodeObject[T any](c *gin.Context) (T, []byte, bool) {
	var v T
	raw, ok := readObject(c)
	if !ok {
		return v, nil, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errNotObject + ": " + err.Error()})
		return v, nil, false
	}
	return v, raw, true
}

// fail maps a data layer error onto a status code and answers it.
func fail(c *gin.Context, log *zap.SugaredLogger, err error, action string) {
	switch {
	case errors.Is(err, services.ErrInvalidRecord):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		log.Errorw("storage failure", "action", action, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

// validationMessage turns "invalid record: missing required fields: id, title"
// into "Missing required fields: id, title".
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), services.ErrInvalidRecord.Error()+": ")
	if msg == "" {
		return errNotObject
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// SingletonHandler serves an entity stored as one JSON object (bio, settings).
type SingletonHandler[T services.Validator] struct {
	Repo  *services.Singleton[T]
	Label string // "Bio", "Settings"
	log   *zap.SugaredLogger
}

func NewSingletonHandler[T services.Validator](repo *services.Singleton[T], label string, log *zap.SugaredLogger) *SingletonHandler[T] {
	return &SingletonHandler[T]{Repo: repo, Label: label, log: log}
}

// Register mounts GET publicly and every mutation behind guard.
func (h *SingletonHandler[T]) Register(rg *gin.RouterGroup, path string, guard gin.HandlerFunc) {
	rg.GET(path, h.Get)
	rg.POST(path, guard, h.Post)
	rg.PATCH(path, guard, h.Patch)
	rg.DELETE(path, guard, h.Clear)
}

func (h *SingletonHandler[T]) name() string { return strings.ToLower(h.Label) }

// Get reads through the fallback chain.
func (h *SingletonHandler[T]) Get(c *gin.Context) {
	v, source := h.Repo.Resolve(c.Request.Context())
	if v == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": h.Label + " not found"})
		return
	}
	h.log.Debugw("served", "entity", h.name(), "source", source)
	c.JSON(http.StatusOK, v)
}

// Post replaces the stored value, or clears it with ?action=clear.
func (h *SingletonHandler[T]) Post(c *gin.Context) {
	if c.Query("action") == "clear" {
		h.Clear(c)
		return
	}
	v, _, ok := decodeObject[T](c)
	if !ok {
		return
	}
	if err := h.Repo.Set(c.Request.Context(), v); err != nil {
		fail(c, h.log, err, "update "+h.name())
		return
	}
	c.JSON(http.StatusOK, v)
}

// Patch shallow-merges the body into the stored value.
func (h *SingletonHandler[T]) Patch(c *gin.Context) {
	raw, ok := readObject(c)
	if !ok {
		return
	}
	v, err := h.Repo.Update(c.Request.Context(), raw)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": h.Label + " not found"})
		return
	}
	if err != nil {
		fail(c, h.log, err, "update "+h.name())
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *SingletonHandler[T]) Clear(c *gin.Context) {
	if err := h.Repo.Clear(c.Request.Context()); err != nil {
		fail(c, h.log, err, "clear "+h.name())
		return
	}
	h.log.Infow("cleared", "entity", h.name())
	c.JSON(http.StatusOK, dtos.MessageResponse{Message: h.Label + " cleared"})
}

// ListHandler serves an entity stored as a JSON array of records.
type ListHandler[T services.Record] struct {
	Repo *services.List[T]
	// Singular is the record noun ("project"), Plural the collection noun
	// used in messages ("projects", "education entries").
	Singular string
	Plural   string
	log      *zap.SugaredLogger
}

func NewListHandler[T services.Record](repo *services.List[T], singular, plural string, log *zap.SugaredLogger) *ListHandler[T] {
	return &ListHandler[T]{Repo: repo, Singular: singular, Plural: plural, log: log}
}

func (h *ListHandler[T]) Register(rg *gin.RouterGroup, path string, guard gin.HandlerFunc) {
	rg.GET(path, h.List)
	rg.POST(path, guard, h.Add)
	rg.PATCH(path+"/:id", guard, h.Update)
	rg.DELETE(path+"/:id", guard, h.Delete)
}

func (h *ListHandler[T]) List(c *gin.Context) {
	items, source := h.Repo.Resolve(c.Request.Context())
	h.log.Debugw("served", "entity", h.Plural, "source", source, "count", len(items))
	c.JSON(http.StatusOK, items)
}

// Add appends one record and answers 201 with the whole list. With
// ?action=clear it empties the list instead.
func (h *ListHandler[T]) Add(c *gin.Context) {
	ctx := c.Request.Context()
	if c.Query("action") == "clear" {
		if err := h.Repo.Clear(ctx); err != nil {
			fail(c, h.log, err, "clear "+h.Plural)
			return
		}
		h.log.Infow("cleared", "entity", h.Plural)
		c.JSON(http.StatusOK, dtos.MessageResponse{Message: fmt.Sprintf("All %s cleared", h.Plural)})
		return
	}

	rec, _, ok := decodeObject[T](c)
	if !ok {
		return
	}
	items, err := h.Repo.Add(ctx, rec)
	if err != nil {
		fail(c, h.log, err, "add "+h.Singular)
		return
	}
	c.JSON(http.StatusCreated, items)
}

func (h *ListHandler[T]) notFound(c *gin.Context) {
	label := strings.ToUpper(h.Singular[:1]) + h.Singular[1:]
	c.JSON(http.StatusNotFound, gin.H{"error": label + " not found"})
}

func (h *ListHandler[T]) Update(c *gin.Context) {
	raw, ok := readObject(c)
	if !ok {
		return
	}
	rec, err := h.Repo.Update(c.Request.Context(), c.Param("id"), raw)
	if errors.Is(err, services.ErrNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		fail(c, h.log, err, "update "+h.Singular)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *ListHandler[T]) Delete(c *gin.Context) {
	id := c.Param("id")
	deleted, err := h.Repo.Delete(c.Request.Context(), id)
	if errors.Is(err, services.ErrNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		fail(c, h.log, err, "delete "+h.Singular)
		return
	}
	c.JSON(http.StatusOK, dtos.DeleteResponse[T]{Success: true, ID: id, Deleted: deleted})
}
