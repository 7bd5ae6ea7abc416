package cep

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Normalize strips punctuation from a postal code and reports whether the
// result has the 8 digits a lookup needs.
func Normalize(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n := b.String()
	return n, len(n) == 8
}

// Address is the subset of the lookup response the endereco section
// back-fills.
type Address struct {
	Rua    string
	Bairro string
	Cidade string
	UF     string
}

type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

// NewClient builds a ViaCEP-shaped lookup client.
func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	if baseURL == "" {
		baseURL = "https://viacep.com.br"
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: rc}
}

// Lookup resolves a normalized 8-digit CEP. found=false covers both the
// service's explicit "erro" answer and a malformed code; transport errors
// are returned so the caller can decide to absorb them.
func (c *Client) Lookup(ctx context.Context, code string) (Address, bool, error) {
	norm, ok := Normalize(code)
	if !ok {
		return Address{}, false, nil
	}
	u := fmt.Sprintf("%s/ws/%s/json/", c.baseURL, norm)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Address{}, false, err
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Address{}, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Address{}, false, fmt.Errorf("cep lookup status %d", resp.StatusCode)
	}

	var body struct {
		Logradouro string `json:"logradouro"`
		Bairro     string `json:"bairro"`
		Localidade string `json:"localidade"`
		UF         string `json:"uf"`
		Erro       bool   `json:"erro"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Address{}, false, err
	}
	if body.Erro {
		return Address{}, false, nil
	}
	return Address{Rua: body.Logradouro, Bairro: body.Bairro, Cidade: body.Localidade, UF: body.UF}, true, nil
}
