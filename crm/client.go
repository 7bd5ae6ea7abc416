package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/yourorg/editor-api/internal/draft"
)

// APIError is a non-2xx answer from the CRM, carrying the server-provided
// message when one could be decoded.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("crm error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("crm error %d", e.Status)
}

// Client talks to the CRM persistence API. Submissions are NOT retried:
// create/update is not idempotent upstream, so only reads go through the
// retrying client.
type Client struct {
	baseURL string
	key     string
	read    *retryablehttp.Client
	write   *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 8 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     apiKey,
		read:    rc,
		write:   &http.Client{Timeout: 60 * time.Second},
	}
}

func collectionFor(entity draft.Entity) string {
	if entity == draft.Cliente {
		return "clientes"
	}
	return "imoveis"
}

// Create persists a new entity from one multipart body.
func (c *Client) Create(ctx context.Context, entity draft.Entity, contentType string, body []byte) (SubmitResult, error) {
	u := fmt.Sprintf("%s/api/%s", c.baseURL, collectionFor(entity))
	return c.submit(ctx, http.MethodPost, u, contentType, body)
}

// Update replaces an existing entity from one multipart body.
func (c *Client) Update(ctx context.Context, entity draft.Entity, id int64, contentType string, body []byte) (SubmitResult, error) {
	u := fmt.Sprintf("%s/api/%s/%d", c.baseURL, collectionFor(entity), id)
	return c.submit(ctx, http.MethodPut, u, contentType, body)
}

func (c *Client) submit(ctx context.Context, method, u, contentType string, body []byte) (SubmitResult, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, strings.NewReader(string(body)))
	if err != nil {
		return SubmitResult{}, err
	}
	req.Header.Set("content-type", contentType)
	req.Header.Set("accept", "application/json")
	if c.key != "" {
		req.Header.Set("apikey", c.key)
	}

	resp, err := c.write.Do(req)
	if err != nil {
		return SubmitResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return SubmitResult{}, decodeAPIError(resp)
	}

	var res SubmitResult
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err == nil {
		res.Raw = raw
		_ = json.Unmarshal(raw, &res)
	}
	return res, nil
}

// Fetch loads an existing entity to seed the editing draft, splitting the
// attachment list out of the document.
func (c *Client) Fetch(ctx context.Context, entity draft.Entity, id int64) (map[string]any, []Anexo, error) {
	u := fmt.Sprintf("%s/api/%s/%d", c.baseURL, collectionFor(entity), id)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("accept", "application/json")
	if c.key != "" {
		req.Header.Set("apikey", c.key)
	}

	resp, err := c.read.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, decodeAPIError(resp)
	}

	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("crm decode: %w", err)
	}

	var anexos []Anexo
	if rawAnexos, ok := doc["anexos"]; ok {
		if b, err := json.Marshal(rawAnexos); err == nil {
			_ = json.Unmarshal(b, &anexos)
		}
		delete(doc, "anexos")
	}
	return doc, anexos, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		switch {
		case body.Message != "":
			apiErr.Message = body.Message
		case body.Detail != "":
			apiErr.Message = body.Detail
		case body.Error != "":
			apiErr.Message = body.Error
		}
	}
	return apiErr
}
