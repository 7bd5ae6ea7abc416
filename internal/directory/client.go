package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Option is one selectable entry of a selector list (broker or client).
type Option struct {
	ID   int64  `json:"id"`
	Nome string `json:"nome"`
}

type Kind string

const (
	Corretores Kind = "corretores"
	Clientes   Kind = "clientes"
)

// Client fetches the selector directories from the CRM.
type Client struct {
	baseURL string
	key     string
	http    *retryablehttp.Client
}

func NewClient(baseURL, apiKey string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = 6 * time.Second
	rc.Logger = nil

	return &Client{baseURL: strings.TrimRight(baseURL, "/"), key: apiKey, http: rc}
}

func (c *Client) List(ctx context.Context, kind Kind) ([]Option, error) {
	u := fmt.Sprintf("%s/api/%s", c.baseURL, string(kind))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	if c.key != "" {
		req.Header.Set("apikey", c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("directory %s status %d", kind, resp.StatusCode)
	}

	var out []Option
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("directory %s decode: %w", kind, err)
	}
	return out, nil
}
