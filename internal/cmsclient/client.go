// Package cmsclient is a small client for the CMS HTTP API.
package cmsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/carlmjohnson/requests"

	"github.com/nour-az/portfolio-cms/internal/dtos"
)

var ErrNoAPIKey = errors.New("cmsclient: not authenticated")

type Client struct {
	base   string
	apiKey string
	client *http.Client
}

func New(base string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{}
	}
	return &Client{base: strings.TrimRight(base, "/"), client: client}
}

// WithAPIKey sets the bearer key directly, skipping Authenticate.
func (c *Client) WithAPIKey(key string) *Client {
	c.apiKey = key
	return c
}

func (c *Client) url(path string) string {
	return c.base + "/api/" + strings.TrimLeft(path, "/")
}

// Authenticate trades the admin password for the API key used by every
// later mutation.
func (c *Client) Authenticate(ctx context.Context, password string) error {
	var res dtos.AuthResponse
	err := requests.
		URL(c.url("admin/auth")).
		Client(c.client).
		BodyJSON(dtos.AuthRequest{Password: password}).
		ToJSON(&res).
		Fetch(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	c.apiKey = res.APIKey
	return nil
}

// Get returns the raw JSON of a CMS entity ("bio", "projects", ...). A
// missing singleton yields nil.
func (c *Client) Get(ctx context.Context, entity string) (json.RawMessage, error) {
	var (
		buf    bytes.Buffer
		status int
	)
	err := requests.
		URL(c.url("cms/"+entity)).
		Client(c.client).
		AddValidator(func(res *http.Response) error {
			status = res.StatusCode
			return nil
		}).
		CheckStatus(http.StatusOK, http.StatusNotFound).
		ToBytesBuffer(&buf).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", entity, err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return json.RawMessage(buf.Bytes()), nil
}

// Post sends body to a CMS route ("bio", "projects", "skills?action=clear").
func (c *Client) Post(ctx context.Context, path string, body any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}
	rb := requests.
		URL(c.url("cms/" + path)).
		Client(c.client).
		Bearer(c.apiKey).
		Post()
	if body != nil {
		rb = rb.BodyJSON(body)
	}
	if err := rb.Fetch(ctx); err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// ClearAll wipes every CMS key.
func (c *Client) ClearAll(ctx context.Context) (*dtos.ClearAllResponse, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	var res dtos.ClearAllResponse
	err := requests.
		URL(c.url("cms/clear")).
		Client(c.client).
		Bearer(c.apiKey).
		Post().
		ToJSON(&res).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("clear: %w", err)
	}
	return &res, nil
}
