package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/editor-api/internal/draft"
	"github.com/yourorg/editor-api/internal/notify"
	"github.com/yourorg/editor-api/internal/session"
)

type SessionDeps struct {
	Sessions *session.Manager
	Notify   notify.Publisher
}

type openRequest struct {
	Entity   string         `json:"entity"`
	EntityID int64          `json:"entityId,omitempty"`
	Initial  map[string]any `json:"initial,omitempty"`
}

func RegisterSessions(r chi.Router, d SessionDeps) {
	r.Post("/v1/sessions", func(w http.ResponseWriter, req *http.Request) {
		var body openRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
			return
		}
		entity, ok := draft.ParseEntity(body.Entity)
		if !ok {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "unknown_entity", "detail": "entity must be imovel or cliente"})
			return
		}
		s, err := d.Sessions.Open(req.Context(), entity, body.EntityID, body.Initial)
		if err != nil {
			render.Status(req, http.StatusBadGateway)
			render.JSON(w, req, map[string]any{"error": "upstream_error", "detail": err.Error()})
			return
		}
		render.JSON(w, req, map[string]any{
			"ok":      true,
			"session": s.Snapshot(),
		})
	})

	r.Get("/v1/sessions/{sid}", func(w http.ResponseWriter, req *http.Request) {
		s, ok := d.Sessions.Get(chi.URLParam(req, "sid"))
		if !ok {
			renderNotFound(w, req)
			return
		}
		render.JSON(w, req, map[string]any{
			"ok":      true,
			"session": s.Snapshot(),
		})
	})

	r.Delete("/v1/sessions/{sid}", func(w http.ResponseWriter, req *http.Request) {
		sid := chi.URLParam(req, "sid")
		if err := d.Sessions.Close(req.Context(), sid); err != nil {
			renderNotFound(w, req)
			return
		}
		d.Notify.Forget(sid)
		render.JSON(w, req, map[string]any{"ok": true})
	})

	r.Patch("/v1/sessions/{sid}/draft", func(w http.ResponseWriter, req *http.Request) {
		s, ok := d.Sessions.Get(chi.URLParam(req, "sid"))
		if !ok {
			renderNotFound(w, req)
			return
		}
		var body struct {
			Changes []session.Change `json:"changes"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
			return
		}
		if len(body.Changes) == 0 {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "empty_changes", "detail": "changes is required"})
			return
		}
		if err := s.Apply(body.Changes); err != nil {
			renderNotEditing(w, req, err)
			return
		}
		render.JSON(w, req, map[string]any{
			"ok":      true,
			"session": s.Snapshot(),
		})
	})
}

func renderNotFound(w http.ResponseWriter, req *http.Request) {
	render.Status(req, http.StatusNotFound)
	render.JSON(w, req, map[string]any{"error": "session_not_found", "detail": "unknown or expired session"})
}

func renderNotEditing(w http.ResponseWriter, req *http.Request, err error) {
	render.Status(req, http.StatusConflict)
	render.JSON(w, req, map[string]any{"error": "not_editing", "detail": err.Error()})
}
