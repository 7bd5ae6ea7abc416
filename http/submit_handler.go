package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/editor-api/internal/journal"
	"github.com/yourorg/editor-api/internal/notify"
	"github.com/yourorg/editor-api/internal/session"
)

type SubmitDeps struct {
	Sessions *session.Manager
	Notify   notify.Publisher
	CRM      session.Submitter
	Journal  *journal.Journal
}

func RegisterSubmit(r chi.Router, d SubmitDeps) {
	r.Post("/v1/sessions/{sid}/submit", func(w http.ResponseWriter, req *http.Request) {
		s, ok := d.Sessions.Get(chi.URLParam(req, "sid"))
		if !ok {
			renderNotFound(w, req)
			return
		}
		out, err := s.Submit(req.Context(), d.CRM, d.Journal)
		if err == session.ErrBusy || err == session.ErrNotEditing {
			renderBusy(w, req)
			return
		}
		if err != nil {
			render.Status(req, http.StatusInternalServerError)
			render.JSON(w, req, map[string]any{"error": "serialize_error", "detail": err.Error()})
			return
		}

		switch out.Status {
		case session.SubmitAccepted:
			d.Notify.Publish(s.ID, notify.Success, out.Message)
		default:
			d.Notify.Publish(s.ID, notify.Error, out.Message)
		}

		render.JSON(w, req, map[string]any{
			"ok":       out.Status == session.SubmitAccepted,
			"status":   out.Status,
			"entityId": out.EntityID,
			"errors":   out.Errors,
			"message":  out.Message,
			"session":  s.Snapshot(),
		})
	})

	r.Get("/v1/sessions/{sid}/notifications", func(w http.ResponseWriter, req *http.Request) {
		sid := chi.URLParam(req, "sid")
		if _, ok := d.Sessions.Get(sid); !ok {
			renderNotFound(w, req)
			return
		}
		items := d.Notify.Drain(sid)
		if items == nil {
			items = []notify.Notification{}
		}
		render.JSON(w, req, map[string]any{
			"ok":            true,
			"notifications": items,
		})
	})
}
