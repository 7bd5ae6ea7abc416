package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"

	httpapi "github.com/yourorg/editor-api/http"
	"github.com/yourorg/editor-api/internal/directory"
	"github.com/yourorg/editor-api/internal/journal"
	"github.com/yourorg/editor-api/internal/notify"
	"github.com/yourorg/editor-api/internal/session"
)

type routerDeps struct {
	Sessions  *session.Manager
	Notify    notify.Publisher
	CRM       session.Submitter
	CEP       session.CEPLookup
	Geocoder  session.Geocoder
	Directory *directory.Cache
	Journal   *journal.Journal
}

func BuildRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(httprate.LimitByIP(300, 1*time.Minute)) // protect upstream quota
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"ok":true}`)) })

	httpapi.RegisterSessions(r, httpapi.SessionDeps{Sessions: d.Sessions, Notify: d.Notify})
	httpapi.RegisterAttachments(r, httpapi.AttachmentDeps{Sessions: d.Sessions, Notify: d.Notify})
	httpapi.RegisterAddress(r, httpapi.AddressDeps{Sessions: d.Sessions, Notify: d.Notify, CEP: d.CEP, Geocoder: d.Geocoder})
	httpapi.RegisterSubmit(r, httpapi.SubmitDeps{Sessions: d.Sessions, Notify: d.Notify, CRM: d.CRM, Journal: d.Journal})
	httpapi.RegisterDirectory(r, httpapi.DirectoryDeps{Cache: d.Directory})

	return r
}
