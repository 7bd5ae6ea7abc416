package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/editor-api/crm"
	"github.com/yourorg/editor-api/internal/draft"
	"github.com/yourorg/editor-api/internal/staging"
)

var ErrNotFound = errors.New("session not found")

// Manager is the in-memory registry of live editing sessions. An idle
// session past the TTL is evicted and its staged blobs dropped.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	Blobs   staging.BlobStore
	Fetcher Submitter
	IdleTTL time.Duration
}

func NewManager(blobs staging.BlobStore, fetcher Submitter, idleTTL time.Duration) *Manager {
	if idleTTL <= 0 {
		idleTTL = 2 * time.Hour
	}
	return &Manager{
		sessions: make(map[string]*Session),
		Blobs:    blobs,
		Fetcher:  fetcher,
		IdleTTL:  idleTTL,
	}
}

// Open starts a session. With entityID > 0 the server document is fetched
// and overlaid on the entity's defaults, and its persisted attachments are
// seeded; otherwise the session starts from the defaults, with an optional
// caller-provided initial document overlaid on top.
func (m *Manager) Open(ctx context.Context, entity draft.Entity, entityID int64, initial map[string]any) (*Session, error) {
	id := uuid.NewString()
	s := &Session{
		ID:        id,
		Entity:    entity,
		EntityID:  entityID,
		d:         draft.NewFor(entity),
		stager:    staging.New(id, m.Blobs),
		errs:      make(map[string]string),
		state:     StateEditing,
		lastTouch: time.Now(),
	}

	switch {
	case entityID > 0:
		doc, anexos, err := m.Fetcher.Fetch(ctx, entity, entityID)
		if err != nil {
			return nil, err
		}
		s.d = draft.Overlay(s.d, doc)
		s.stager.Seed(seedFromAnexos(anexos))
	case len(initial) > 0:
		s.d = draft.Overlay(s.d, initial)
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close ends a session. Staged blobs are discarded; the server document, if
// any, stays exactly as it was.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Discard(ctx)
	return nil
}

// Sweep evicts sessions idle past the TTL. Run it periodically.
func (m *Manager) Sweep(ctx context.Context) int {
	cutoff := time.Now().Add(-m.IdleTTL)
	var evicted []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := s.lastTouch.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			evicted = append(evicted, s)
		}
	}
	m.mu.Unlock()

	for _, s := range evicted {
		s.Discard(ctx)
	}
	return len(evicted)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func seedFromAnexos(anexos []crm.Anexo) []staging.Attachment {
	out := make([]staging.Attachment, 0, len(anexos))
	for _, a := range anexos {
		cat, ok := staging.ParseCategory(a.Categoria)
		if !ok {
			cat = staging.Documentos
		}
		out = append(out, staging.Attachment{
			ID:         a.ID,
			Filename:   a.Nome,
			MimeType:   a.MimeType,
			Category:   cat,
			Tipo:       a.Tipo,
			PreviewRef: a.URL,
		})
	}
	return out
}
