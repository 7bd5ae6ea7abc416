package crm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/editor-api/internal/draft"
)

func TestCreatePostsMultipartBodyWithAPIKey(t *testing.T) {
	var gotMethod, gotPath, gotKey, gotCT string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotKey = r.Header.Get("apikey")
		gotCT = r.Header.Get("content-type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 123, "codigo": "IM-123"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	res, err := c.Create(context.Background(), draft.Imovel, "multipart/form-data; boundary=abc", []byte("--abc--"))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/imoveis", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "multipart/form-data; boundary=abc", gotCT)
	assert.Equal(t, "--abc--", string(gotBody))
	assert.Equal(t, int64(123), res.ID)
	assert.NotEmpty(t, res.Raw)
}

func TestUpdatePutsToEntityPath(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 55})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	res, err := c.Update(context.Background(), draft.Cliente, 55, "multipart/form-data; boundary=x", nil)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/clientes/55", gotPath)
	assert.Equal(t, int64(55), res.ID)
}

func TestSubmitDecodesServerErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "Código já cadastrado."})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Create(context.Background(), draft.Imovel, "multipart/form-data; boundary=x", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "Código já cadastrado.", apiErr.Message)
}

func TestFetchSplitsAnexosOutOfDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/imoveis/9", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     9,
			"titulo": "Casa com piscina",
			"anexos": []map[string]any{
				{"id": 1, "nome": "frente.jpg", "categoria": "fotos", "mimeType": "image/jpeg", "url": "/anexos/1"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	doc, anexos, err := c.Fetch(context.Background(), draft.Imovel, 9)
	require.NoError(t, err)
	assert.Equal(t, "Casa com piscina", doc["titulo"])
	assert.NotContains(t, doc, "anexos")
	require.Len(t, anexos, 1)
	assert.Equal(t, int64(1), anexos[0].ID)
	assert.Equal(t, "fotos", anexos[0].Categoria)
}

func TestFetchReturnsAPIErrorOnNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "not_found"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, _, err := c.Fetch(context.Background(), draft.Imovel, 404)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not_found", apiErr.Message)
}
