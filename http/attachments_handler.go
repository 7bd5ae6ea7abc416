package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/editor-api/internal/notify"
	"github.com/yourorg/editor-api/internal/session"
	"github.com/yourorg/editor-api/internal/staging"
)

// uploads are parsed with a memory ceiling; larger parts spill to temp files
const uploadMemoryLimit = 8 << 20

type AttachmentDeps struct {
	Sessions *session.Manager
	Notify   notify.Publisher
}

func RegisterAttachments(r chi.Router, d AttachmentDeps) {
	r.Post("/v1/sessions/{sid}/attachments/{categoria}", func(w http.ResponseWriter, req *http.Request) {
		s, ok := d.Sessions.Get(chi.URLParam(req, "sid"))
		if !ok {
			renderNotFound(w, req)
			return
		}
		cat, ok := staging.ParseCategory(chi.URLParam(req, "categoria"))
		if !ok {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "unknown_category", "detail": "categoria must be fotos, videos or documentos"})
			return
		}
		if !categoryAllowed(s, cat) {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "category_not_allowed", "detail": "this editor does not stage " + string(cat)})
			return
		}

		if err := req.ParseMultipartForm(uploadMemoryLimit); err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_multipart", "detail": err.Error()})
			return
		}
		defer req.MultipartForm.RemoveAll()

		headers := req.MultipartForm.File["files"]
		files := make([]staging.FileInput, 0, len(headers))
		for _, h := range headers {
			f, err := h.Open()
			if err != nil {
				render.Status(req, http.StatusBadRequest)
				render.JSON(w, req, map[string]any{"error": "invalid_multipart", "detail": err.Error()})
				return
			}
			defer f.Close()
			files = append(files, staging.FileInput{
				Filename: h.Filename,
				MimeType: h.Header.Get("Content-Type"),
				Size:     h.Size,
				Reader:   f,
			})
		}

		result, added, err := s.AddAttachments(req.Context(), cat, files)
		if err == session.ErrNotEditing {
			renderNotEditing(w, req, err)
			return
		}
		if err != nil {
			render.Status(req, http.StatusBadGateway)
			render.JSON(w, req, map[string]any{"error": "storage_error", "detail": err.Error()})
			return
		}
		publishResult(d.Notify, s.ID, result)
		if !result.OK {
			render.JSON(w, req, map[string]any{"ok": false, "code": result.Code, "message": result.Message})
			return
		}
		render.JSON(w, req, map[string]any{
			"ok":      true,
			"message": result.Message,
			"added":   added,
			"session": s.Snapshot(),
		})
	})

	r.Delete("/v1/sessions/{sid}/attachments/{categoria}/{index}", func(w http.ResponseWriter, req *http.Request) {
		s, ok := d.Sessions.Get(chi.URLParam(req, "sid"))
		if !ok {
			renderNotFound(w, req)
			return
		}
		cat, ok := staging.ParseCategory(chi.URLParam(req, "categoria"))
		if !ok {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "unknown_category", "detail": "categoria must be fotos, videos or documentos"})
			return
		}
		index, err := strconv.Atoi(chi.URLParam(req, "index"))
		if err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_index", "detail": "index must be an integer"})
			return
		}
		result, err := s.RemoveAttachment(req.Context(), cat, index)
		if err == session.ErrNotEditing {
			renderNotEditing(w, req, err)
			return
		}
		if err != nil {
			render.Status(req, http.StatusBadGateway)
			render.JSON(w, req, map[string]any{"error": "storage_error", "detail": err.Error()})
			return
		}
		publishResult(d.Notify, s.ID, result)
		render.JSON(w, req, map[string]any{
			"ok":      result.OK,
			"message": result.Message,
			"session": s.Snapshot(),
		})
	})

	r.Post("/v1/sessions/{sid}/attachments/documentos/{index}/tipo", func(w http.ResponseWriter, req *http.Request) {
		s, ok := d.Sessions.Get(chi.URLParam(req, "sid"))
		if !ok {
			renderNotFound(w, req)
			return
		}
		index, err := strconv.Atoi(chi.URLParam(req, "index"))
		if err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_index", "detail": "index must be an integer"})
			return
		}
		var body struct {
			Tipo string `json:"tipo"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
			return
		}
		result, err := s.RecategorizeDocument(index, body.Tipo)
		if err == session.ErrNotEditing {
			renderNotEditing(w, req, err)
			return
		}
		render.JSON(w, req, map[string]any{
			"ok":      result.OK,
			"message": result.Message,
			"session": s.Snapshot(),
		})
	})
}

func categoryAllowed(s *session.Session, cat staging.Category) bool {
	for _, c := range staging.CategoriesFor(s.Entity) {
		if c == cat {
			return true
		}
	}
	return false
}

func publishResult(pub notify.Publisher, sessionID string, r staging.Result) {
	level := notify.Success
	if !r.OK {
		level = notify.Error
	}
	pub.Publish(sessionID, level, r.Message)
}
