package httpapi

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/editor-api/internal/notify"
	"github.com/yourorg/editor-api/internal/session"
)

type AddressDeps struct {
	Sessions *session.Manager
	Notify   notify.Publisher
	CEP      session.CEPLookup
	Geocoder session.Geocoder
}

func RegisterAddress(r chi.Router, d AddressDeps) {
	// CEP lookup back-fills still-empty address fields. Upstream failures are
	// absorbed: the user keeps typing the address by hand.
	r.Post("/v1/sessions/{sid}/endereco/cep", func(w http.ResponseWriter, req *http.Request) {
		s, ok := d.Sessions.Get(chi.URLParam(req, "sid"))
		if !ok {
			renderNotFound(w, req)
			return
		}
		out, err := s.LookupCEP(req.Context(), d.CEP)
		if err == session.ErrBusy {
			renderBusy(w, req)
			return
		}
		if err != nil {
			log.Printf("[WARN] cep lookup for session %s failed: %v", s.ID, err)
			render.JSON(w, req, map[string]any{"ok": true, "found": false, "session": s.Snapshot()})
			return
		}
		render.JSON(w, req, map[string]any{
			"ok":      true,
			"found":   out.Found,
			"stale":   out.Stale,
			"session": s.Snapshot(),
		})
	})

	r.Post("/v1/sessions/{sid}/endereco/geocode", func(w http.ResponseWriter, req *http.Request) {
		s, ok := d.Sessions.Get(chi.URLParam(req, "sid"))
		if !ok {
			renderNotFound(w, req)
			return
		}
		out, err := s.Geocode(req.Context(), d.Geocoder)
		if err == session.ErrBusy {
			renderBusy(w, req)
			return
		}
		if err != nil {
			log.Printf("[WARN] geocode for session %s failed: %v", s.ID, err)
			d.Notify.Publish(s.ID, notify.Error, "Não foi possível localizar o endereço; informe as coordenadas manualmente.")
			render.JSON(w, req, map[string]any{"ok": true, "found": false, "session": s.Snapshot()})
			return
		}
		if !out.Found && !out.Stale {
			d.Notify.Publish(s.ID, notify.Error, "Endereço não encontrado; informe as coordenadas manualmente.")
		}
		render.JSON(w, req, map[string]any{
			"ok":      true,
			"found":   out.Found,
			"stale":   out.Stale,
			"session": s.Snapshot(),
		})
	})
}

func renderBusy(w http.ResponseWriter, req *http.Request) {
	render.Status(req, http.StatusConflict)
	render.JSON(w, req, map[string]any{"error": "operation_in_flight", "detail": "a previous request is still running"})
}
