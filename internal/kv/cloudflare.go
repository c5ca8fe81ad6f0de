package kv

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
	"go.uber.org/zap"
)

// Cloudflare talks to a Workers KV namespace through the Cloudflare REST API.
type Cloudflare struct {
	base        string
	accountID   string
	apiToken    string
	namespaceID string
	client      *http.Client
	log         *zap.SugaredLogger
}

func NewCloudflare(base, accountID, apiToken, namespaceID string, client *http.Client, log *zap.SugaredLogger) (*Cloudflare, error) {
	if accountID == "" || apiToken == "" || namespaceID == "" {
		return nil, ErrUnconfigured
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Cloudflare{
		base:        strings.TrimRight(base, "/"),
		accountID:   accountID,
		apiToken:    apiToken,
		namespaceID: namespaceID,
		client:      client,
		log:         log,
	}, nil
}

func (c *Cloudflare) valueURL(key string) string {
	return fmt.Sprintf("%s/accounts/%s/storage/kv/namespaces/%s/values/%s",
		c.base, c.accountID, c.namespaceID, url.PathEscape(key))
}

func (c *Cloudflare) Get(ctx context.Context, key string) (string, error) {
	var (
		body   string
		status int
	)
	err := requests.
		URL(c.valueURL(key)).
		Client(c.client).
		Bearer(c.apiToken).
		AddValidator(func(res *http.Response) error {
			status = res.StatusCode
			return nil
		}).
		CheckStatus(http.StatusOK, http.StatusNotFound).
		ToString(&body).
		Fetch(ctx)
	if err != nil {
		c.log.Errorw("error fetching value", "key", key, "status", status, "error", err)
		return "", fmt.Errorf("kv get %q: %w", key, err)
	}
	if status == http.StatusNotFound {
		return "", nil
	}
	return body, nil
}

func (c *Cloudflare) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	rb := requests.
		URL(c.valueURL(key)).
		Client(c.client).
		Put().
		Bearer(c.apiToken).
		ContentType("application/octet-stream").
		BodyBytes([]byte(value))
	if ttl > 0 {
		rb = rb.Header("X-TTL-Seconds", strconv.Itoa(int(ttl/time.Second)))
	}
	if err := rb.Fetch(ctx); err != nil {
		c.log.Errorw("error setting value", "key", key, "error", err)
		return fmt.Errorf("kv put %q: %w", key, err)
	}
	c.log.Debugw("set key", "key", key, "bytes", len(value))
	return nil
}
