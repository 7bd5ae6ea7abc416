package session

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/yourorg/editor-api/crm"
	"github.com/yourorg/editor-api/internal/cep"
	"github.com/yourorg/editor-api/internal/draft"
	"github.com/yourorg/editor-api/internal/geo"
	"github.com/yourorg/editor-api/internal/journal"
	"github.com/yourorg/editor-api/internal/schema"
	"github.com/yourorg/editor-api/internal/sections"
	"github.com/yourorg/editor-api/internal/serializer"
	"github.com/yourorg/editor-api/internal/staging"
)

type State string

const (
	StateEditing    State = "editing"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
)

var (
	ErrNotEditing = errors.New("session is not accepting edits")
	ErrBusy       = errors.New("operation already in flight")
)

// Submitter is the slice of the CRM client the session needs.
type Submitter interface {
	Create(ctx context.Context, entity draft.Entity, contentType string, body []byte) (crm.SubmitResult, error)
	Update(ctx context.Context, entity draft.Entity, id int64, contentType string, body []byte) (crm.SubmitResult, error)
	Fetch(ctx context.Context, entity draft.Entity, id int64) (map[string]any, []crm.Anexo, error)
}

type CEPLookup interface {
	Lookup(ctx context.Context, code string) (cep.Address, bool, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, query string) (geo.Point, bool, error)
}

// Session owns one editing session: the draft, the staged attachments, the
// current error map and the submission state machine. The draft and the
// stager are exclusively owned here for the session's lifetime; every
// mutation goes through the session's methods under its lock.
type Session struct {
	ID       string
	Entity   draft.Entity
	EntityID int64 // 0 while creating

	mu        sync.Mutex
	d         draft.Draft
	stager    *staging.Stager
	errs      schema.ErrorMap
	state     State
	lastTouch time.Time

	// single-flight guards for the async operations
	cepInFlight    bool
	geoInFlight    bool
	submitInFlight bool

	// generation counters: superseding input bumps the counter so a stale
	// async response can be recognized and discarded (last-applied-wins)
	cepGen uint64
	geoGen uint64
}

// Snapshot is the read view the editor renders from.
type Snapshot struct {
	ID             string                                   `json:"id"`
	Entity         draft.Entity                             `json:"entity"`
	EntityID       int64                                    `json:"entityId,omitempty"`
	State          State                                    `json:"state"`
	Draft          draft.Draft                              `json:"draft"`
	Errors         schema.ErrorMap                          `json:"errors"`
	TabsWithErrors []string                                 `json:"tabsWithErrors,omitempty"`
	Attachments    map[staging.Category][]staging.Attachment `json:"attachments"`
}

func (s *Session) touch() { s.lastTouch = time.Now() }

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	errs := make(schema.ErrorMap, len(s.errs))
	for k, v := range s.errs {
		errs[k] = v
	}
	return Snapshot{
		ID:             s.ID,
		Entity:         s.Entity,
		EntityID:       s.EntityID,
		State:          s.state,
		Draft:          s.d,
		Errors:         errs,
		TabsWithErrors: sections.TabsWithErrors(s.Entity, errs),
		Attachments:    s.stager.All(),
	}
}

type Change struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// Apply routes a batch of field changes into the draft. Only the editing
// state accepts mutations. Editing the CEP or any address field bumps the
// matching generation counter so in-flight lookups cannot clobber newer
// input.
func (s *Session) Apply(changes []Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEditing {
		return ErrNotEditing
	}
	for _, c := range changes {
		s.d = draft.Set(s.d, c.Path, draft.CoerceIncoming(c.Value))
		if c.Path == "endereco.cep" {
			s.cepGen++
		}
		if sec, ok := sections.Owning(s.Entity, c.Path); ok && sec.Name == "endereco" {
			s.geoGen++
		}
		// correcting a field clears its stale error eagerly; the next
		// validation run rebuilds the map anyway
		delete(s.errs, c.Path)
	}
	s.touch()
	return nil
}

// ---- attachments ----

func (s *Session) AddAttachments(ctx context.Context, cat staging.Category, files []staging.FileInput) (staging.Result, []staging.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEditing {
		return staging.Result{}, nil, ErrNotEditing
	}
	s.touch()
	return s.stager.Add(ctx, cat, files)
}

func (s *Session) RemoveAttachment(ctx context.Context, cat staging.Category, index int) (staging.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEditing {
		return staging.Result{}, ErrNotEditing
	}
	s.touch()
	return s.stager.Remove(ctx, cat, index)
}

func (s *Session) RecategorizeDocument(index int, tipo string) (staging.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEditing {
		return staging.Result{}, ErrNotEditing
	}
	s.touch()
	return s.stager.Recategorize(staging.Documentos, index, tipo), nil
}

// ---- address lookups ----

type LookupOutcome struct {
	Found bool
	Stale bool
}

// LookupCEP resolves the draft's postal code and back-fills still-empty
// address fields. Single-flight; a response that arrives after the CEP was
// edited again is discarded (generation check), never applied.
func (s *Session) LookupCEP(ctx context.Context, lookup CEPLookup) (LookupOutcome, error) {
	s.mu.Lock()
	if s.cepInFlight {
		s.mu.Unlock()
		return LookupOutcome{}, ErrBusy
	}
	code := draft.GetString(s.d, "endereco.cep")
	if _, ok := cep.Normalize(code); !ok {
		s.mu.Unlock()
		return LookupOutcome{Found: false}, nil
	}
	gen := s.cepGen
	s.cepInFlight = true
	s.mu.Unlock()

	addr, found, err := lookup.Lookup(ctx, code)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cepInFlight = false
	s.touch()
	if err != nil {
		return LookupOutcome{}, err
	}
	if !found {
		return LookupOutcome{Found: false}, nil
	}
	if gen != s.cepGen {
		return LookupOutcome{Found: true, Stale: true}, nil
	}
	d, changed := sections.BackfillAddress(s.d, addr)
	s.d = d
	if changed {
		// the backfill supersedes any geocode computed from the old address
		s.geoGen++
	}
	return LookupOutcome{Found: true}, nil
}

// Geocode fills latitude/longitude from the assembled address. Failures are
// recoverable: the caller surfaces them and manual entry stays possible.
func (s *Session) Geocode(ctx context.Context, geocoder Geocoder) (LookupOutcome, error) {
	s.mu.Lock()
	if s.geoInFlight {
		s.mu.Unlock()
		return LookupOutcome{}, ErrBusy
	}
	query := sections.AssembleQuery(s.d)
	if query == "" {
		s.mu.Unlock()
		return LookupOutcome{Found: false}, nil
	}
	gen := s.geoGen
	s.geoInFlight = true
	s.mu.Unlock()

	pt, found, err := geocoder.Geocode(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.geoInFlight = false
	s.touch()
	if err != nil {
		return LookupOutcome{}, err
	}
	if !found {
		return LookupOutcome{Found: false}, nil
	}
	if gen != s.geoGen {
		return LookupOutcome{Found: true, Stale: true}, nil
	}
	s.d = draft.Merge(s.d, map[string]any{
		"endereco.latitude":  formatCoord(pt.Lat),
		"endereco.longitude": formatCoord(pt.Lon),
	})
	return LookupOutcome{Found: true}, nil
}

// ---- submission ----

type SubmitStatus string

const (
	SubmitAccepted SubmitStatus = "accepted"
	SubmitInvalid  SubmitStatus = "invalid"
	SubmitFailed   SubmitStatus = "failed"
)

type SubmitOutcome struct {
	Status   SubmitStatus
	EntityID int64
	Errors   schema.ErrorMap
	Message  string
}

// Submit drives validate → serialize → send. Validation runs exactly once,
// synchronously, over the whole draft. On any failure the draft, the staged
// attachments and every entered value survive untouched; only the error
// state changes. Re-entrant submission is refused while one is in flight.
func (s *Session) Submit(ctx context.Context, submitter Submitter, jrnl *journal.Journal) (SubmitOutcome, error) {
	s.mu.Lock()
	if s.submitInFlight {
		s.mu.Unlock()
		return SubmitOutcome{}, ErrBusy
	}
	if s.state != StateEditing {
		s.mu.Unlock()
		return SubmitOutcome{}, ErrNotEditing
	}

	s.state = StateValidating
	if errs := schema.Validate(s.Entity, s.d); len(errs) > 0 {
		s.errs = errs
		s.state = StateEditing
		s.mu.Unlock()
		return SubmitOutcome{Status: SubmitInvalid, Errors: errs,
			Message: "Corrija os campos destacados antes de salvar."}, nil
	}

	payload, err := serializer.Serialize(s.Entity, s.d, s.stager.All())
	if err != nil {
		var verr *serializer.ValidationError
		if errors.As(err, &verr) {
			s.errs = verr.Fields
			s.state = StateEditing
			s.mu.Unlock()
			return SubmitOutcome{Status: SubmitInvalid, Errors: verr.Fields,
				Message: "Corrija os campos destacados antes de salvar."}, nil
		}
		s.state = StateEditing
		s.mu.Unlock()
		return SubmitOutcome{}, err
	}

	var body bytes.Buffer
	contentType, err := serializer.WriteMultipart(ctx, &body, s.Entity, payload, s.stager.OpenPayload)
	if err != nil {
		s.state = StateEditing
		s.mu.Unlock()
		return SubmitOutcome{}, err
	}

	s.errs = schema.ErrorMap{}
	s.state = StateSubmitting
	s.submitInFlight = true
	entity, entityID := s.Entity, s.EntityID
	s.mu.Unlock()

	var res crm.SubmitResult
	var callErr error
	if entityID > 0 {
		res, callErr = submitter.Update(ctx, entity, entityID, contentType, body.Bytes())
	} else {
		res, callErr = submitter.Create(ctx, entity, contentType, body.Bytes())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitInFlight = false
	s.touch()

	if callErr != nil {
		// draft and staged attachments are preserved exactly as they were
		s.state = StateEditing
		msg := "Falha ao salvar; tente novamente."
		var apiErr *crm.APIError
		if errors.As(callErr, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}
		recordAttempt(jrnl, buildAttempt(s, entityID, "transport_error", callErr.Error(), body.Bytes(), len(payload.Parts)))
		return SubmitOutcome{Status: SubmitFailed, Message: msg}, nil
	}

	s.state = StateSucceeded
	if res.ID > 0 {
		s.EntityID = res.ID
	}
	s.stager.Discard(ctx)
	recordAttempt(jrnl, buildAttempt(s, s.EntityID, "accepted", "", body.Bytes(), len(payload.Parts)))
	return SubmitOutcome{Status: SubmitAccepted, EntityID: s.EntityID,
		Message: "Salvo com sucesso."}, nil
}

func buildAttempt(s *Session, entityID int64, outcome, serverMsg string, body []byte, parts int) journal.Attempt {
	a := journal.Attempt{
		SessionID:   s.ID,
		Entity:      string(s.Entity),
		Outcome:     outcome,
		PayloadBody: body,
		PartCount:   parts,
	}
	if entityID > 0 {
		a.EntityID = sql.NullInt64{Int64: entityID, Valid: true}
	}
	if serverMsg != "" {
		a.ServerMessage = sql.NullString{String: serverMsg, Valid: true}
	}
	return a
}

// recordAttempt writes behind: the attempt is a value copy, so the insert
// runs off the session lock and a slow journal never stalls a submission.
func recordAttempt(jrnl *journal.Journal, a journal.Attempt) {
	if !jrnl.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jrnl.Record(ctx, a); err != nil {
			logWarn("journal write failed: %v", err)
		}
	}()
}

// Discard drops the session's staged blobs. Called on cancel and eviction.
func (s *Session) Discard(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stager.Discard(ctx)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
