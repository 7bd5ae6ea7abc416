package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/editor-api/internal/directory"
)

type DirectoryDeps struct {
	Cache *directory.Cache
}

// RegisterDirectory serves the selector lists (brokers, owner clients). The
// lists degrade to empty on upstream failure; the editor stays usable.
func RegisterDirectory(r chi.Router, d DirectoryDeps) {
	serve := func(kind directory.Kind) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			opts := d.Cache.Options(req.Context(), kind)
			render.JSON(w, req, map[string]any{
				"ok":      true,
				"count":   len(opts),
				"options": opts,
			})
		}
	}
	r.Get("/v1/diretorio/corretores", serve(directory.Corretores))
	r.Get("/v1/diretorio/clientes", serve(directory.Clientes))
}
