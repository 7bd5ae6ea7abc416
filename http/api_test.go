package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/editor-api/crm"
	"github.com/yourorg/editor-api/internal/cep"
	"github.com/yourorg/editor-api/internal/draft"
	"github.com/yourorg/editor-api/internal/geo"
	"github.com/yourorg/editor-api/internal/notify"
	"github.com/yourorg/editor-api/internal/session"
	"github.com/yourorg/editor-api/internal/staging"
)

type fakeCRM struct {
	res crm.SubmitResult
	err error
}

func (f *fakeCRM) Create(context.Context, draft.Entity, string, []byte) (crm.SubmitResult, error) {
	return f.res, f.err
}

func (f *fakeCRM) Update(context.Context, draft.Entity, int64, string, []byte) (crm.SubmitResult, error) {
	return f.res, f.err
}

func (f *fakeCRM) Fetch(context.Context, draft.Entity, int64) (map[string]any, []crm.Anexo, error) {
	return map[string]any{}, nil, nil
}

type fakeCEP struct {
	addr  cep.Address
	found bool
}

func (f *fakeCEP) Lookup(context.Context, string) (cep.Address, bool, error) {
	return f.addr, f.found, nil
}

type fakeGeo struct{}

func (fakeGeo) Geocode(context.Context, string) (geo.Point, bool, error) {
	return geo.Point{Lat: -25.43, Lon: -49.27}, true, nil
}

type testAPI struct {
	srv      *httptest.Server
	sessions *session.Manager
	crm      *fakeCRM
	notify   notify.Publisher
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	crmFake := &fakeCRM{}
	manager := session.NewManager(staging.NewMemoryStore(), crmFake, time.Hour)
	pub := notify.NewInMemory(64)

	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	RegisterSessions(r, SessionDeps{Sessions: manager, Notify: pub})
	RegisterAttachments(r, AttachmentDeps{Sessions: manager, Notify: pub})
	RegisterAddress(r, AddressDeps{Sessions: manager, Notify: pub,
		CEP: &fakeCEP{found: true, addr: cep.Address{Rua: "Rua das Flores", Cidade: "Curitiba", UF: "PR"}},
		Geocoder: fakeGeo{}})
	RegisterSubmit(r, SubmitDeps{Sessions: manager, Notify: pub, CRM: crmFake, Journal: nil})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, sessions: manager, crm: crmFake, notify: pub}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("content-type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (a *testAPI) open(t *testing.T, entity string) string {
	t.Helper()
	code, out := a.do(t, http.MethodPost, "/v1/sessions", map[string]any{"entity": entity})
	require.Equal(t, http.StatusOK, code)
	sess := out["session"].(map[string]any)
	return sess["id"].(string)
}

func TestOpenSessionRejectsUnknownEntity(t *testing.T) {
	api := newTestAPI(t)
	code, out := api.do(t, http.MethodPost, "/v1/sessions", map[string]any{"entity": "fazenda"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "unknown_entity", out["error"])
}

func TestSessionLifecycle(t *testing.T) {
	api := newTestAPI(t)
	sid := api.open(t, "imovel")

	code, out := api.do(t, http.MethodGet, "/v1/sessions/"+sid, nil)
	require.Equal(t, http.StatusOK, code)
	sess := out["session"].(map[string]any)
	assert.Equal(t, "editing", sess["state"])

	code, _ = api.do(t, http.MethodDelete, "/v1/sessions/"+sid, nil)
	assert.Equal(t, http.StatusOK, code)

	code, out = api.do(t, http.MethodGet, "/v1/sessions/"+sid, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "session_not_found", out["error"])
}

func TestPatchDraftAppliesChanges(t *testing.T) {
	api := newTestAPI(t)
	sid := api.open(t, "imovel")

	code, out := api.do(t, http.MethodPatch, "/v1/sessions/"+sid+"/draft", map[string]any{
		"changes": []map[string]any{
			{"path": "titulo", "value": "Casa com piscina"},
			{"path": "valores.precoVenda", "value": 850000},
		},
	})
	require.Equal(t, http.StatusOK, code)
	d := out["session"].(map[string]any)["draft"].(map[string]any)
	assert.Equal(t, "Casa com piscina", d["titulo"])
	assert.Equal(t, "850000", d["valores"].(map[string]any)["precoVenda"])
}

func TestPatchDraftRequiresChanges(t *testing.T) {
	api := newTestAPI(t)
	sid := api.open(t, "imovel")

	code, out := api.do(t, http.MethodPatch, "/v1/sessions/"+sid+"/draft", map[string]any{"changes": []any{}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "empty_changes", out["error"])
}

func uploadFiles(t *testing.T, api *testAPI, sid, categoria string, names ...string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(strings.Repeat("x", 32)))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, api.srv.URL+"/v1/sessions/"+sid+"/attachments/"+categoria, &buf)
	require.NoError(t, err)
	req.Header.Set("content-type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestUploadStagesFiles(t *testing.T) {
	api := newTestAPI(t)
	sid := api.open(t, "imovel")

	code, out := uploadFiles(t, api, sid, "fotos", "frente.jpg", "fundos.jpg")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["ok"])
	added := out["added"].([]any)
	assert.Len(t, added, 2)

	// staging feedback lands in the notification queue
	codeN, outN := api.do(t, http.MethodGet, "/v1/sessions/"+sid+"/notifications", nil)
	require.Equal(t, http.StatusOK, codeN)
	assert.Len(t, outN["notifications"].([]any), 1)
}

func TestUploadRejectsCategoryForCliente(t *testing.T) {
	api := newTestAPI(t)
	sid := api.open(t, "cliente")

	code, out := uploadFiles(t, api, sid, "fotos", "frente.jpg")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "category_not_allowed", out["error"])
}

func TestRemoveAttachment(t *testing.T) {
	api := newTestAPI(t)
	sid := api.open(t, "imovel")
	_, _ = uploadFiles(t, api, sid, "fotos", "a.jpg", "b.jpg")

	code, out := api.do(t, http.MethodDelete, "/v1/sessions/"+sid+"/attachments/fotos/0", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["ok"])

	atts := out["session"].(map[string]any)["attachments"].(map[string]any)
	fotos := atts["fotos"].([]any)
	require.Len(t, fotos, 1)
	assert.Equal(t, "b.jpg", fotos[0].(map[string]any)["nome"])
}

func TestRecategorizeDocument(t *testing.T) {
	api := newTestAPI(t)
	sid := api.open(t, "cliente")
	_, _ = uploadFiles(t, api, sid, "documentos", "doc.pdf")

	code, out := api.do(t, http.MethodPost, "/v1/sessions/"+sid+"/attachments/documentos/0/tipo",
		map[string]any{"tipo": "PROCURACAO"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["ok"])

	atts := out["session"].(map[string]any)["attachments"].(map[string]any)
	docs := atts["documentos"].([]any)
	assert.Equal(t, "PROCURACAO", docs[0].(map[string]any)["tipo"])
}

func TestCEPLookupBackfillsDraft(t *testing.T) {
	api := newTestAPI(t)
	sid := api.open(t, "imovel")

	_, _ = api.do(t, http.MethodPatch, "/v1/sessions/"+sid+"/draft", map[string]any{
		"changes": []map[string]any{{"path": "endereco.cep", "value": "80010-000"}},
	})

	code, out := api.do(t, http.MethodPost, "/v1/sessions/"+sid+"/endereco/cep", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["found"])
	d := out["session"].(map[string]any)["draft"].(map[string]any)
	assert.Equal(t, "Rua das Flores", d["endereco"].(map[string]any)["rua"])
}

func TestGeocodeFillsCoordinates(t *testing.T) {
	api := newTestAPI(t)
	sid := api.open(t, "imovel")

	_, _ = api.do(t, http.MethodPatch, "/v1/sessions/"+sid+"/draft", map[string]any{
		"changes": []map[string]any{
			{"path": "endereco.rua", "value": "Rua das Flores"},
			{"path": "endereco.numero", "value": "100"},
			{"path": "endereco.cidade", "value": "Curitiba"},
		},
	})

	code, out := api.do(t, http.MethodPost, "/v1/sessions/"+sid+"/endereco/geocode", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["found"])
	end := out["session"].(map[string]any)["draft"].(map[string]any)["endereco"].(map[string]any)
	assert.Equal(t, "-25.43", end["latitude"])
	assert.Equal(t, "-49.27", end["longitude"])
}

func TestSubmitInvalidReturnsErrorsAndTabs(t *testing.T) {
	api := newTestAPI(t)
	sid := api.open(t, "imovel")

	code, out := api.do(t, http.MethodPost, "/v1/sessions/"+sid+"/submit", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, out["ok"])
	assert.Equal(t, "invalid", out["status"])
	errs := out["errors"].(map[string]any)
	assert.Contains(t, errs, "titulo")

	sess := out["session"].(map[string]any)
	assert.Equal(t, "editing", sess["state"])
	assert.NotEmpty(t, sess["tabsWithErrors"])
}

func TestSubmitClienteSucceeds(t *testing.T) {
	api := newTestAPI(t)
	sid := api.open(t, "cliente")
	api.crm.res = crm.SubmitResult{ID: 77}

	_, _ = api.do(t, http.MethodPatch, "/v1/sessions/"+sid+"/draft", map[string]any{
		"changes": []map[string]any{
			{"path": "nome", "value": "Maria Souza"},
			{"path": "email", "value": "maria@exemplo.com.br"},
			{"path": "perfil", "value": "CLIENTE"},
		},
	})

	code, out := api.do(t, http.MethodPost, "/v1/sessions/"+sid+"/submit", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, "accepted", out["status"])
	assert.Equal(t, float64(77), out["entityId"])

	// success feedback is queued for the next notification poll
	_, outN := api.do(t, http.MethodGet, "/v1/sessions/"+sid+"/notifications", nil)
	notes := outN["notifications"].([]any)
	require.NotEmpty(t, notes)
	assert.Equal(t, "success", notes[len(notes)-1].(map[string]any)["level"])
}

func TestEditAfterSuccessIsConflict(t *testing.T) {
	api := newTestAPI(t)
	sid := api.open(t, "cliente")
	api.crm.res = crm.SubmitResult{ID: 12}

	_, _ = api.do(t, http.MethodPatch, "/v1/sessions/"+sid+"/draft", map[string]any{
		"changes": []map[string]any{
			{"path": "nome", "value": "Maria Souza"},
			{"path": "email", "value": "maria@exemplo.com.br"},
			{"path": "perfil", "value": "CLIENTE"},
		},
	})
	code, _ := api.do(t, http.MethodPost, "/v1/sessions/"+sid+"/submit", nil)
	require.Equal(t, http.StatusOK, code)

	code, out := api.do(t, http.MethodPatch, "/v1/sessions/"+sid+"/draft", map[string]any{
		"changes": []map[string]any{{"path": "nome", "value": "Outra"}},
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "not_editing", out["error"])
}

func TestNotificationsDrainOnce(t *testing.T) {
	api := newTestAPI(t)
	sid := api.open(t, "imovel")
	api.notify.Publish(sid, notify.Info, "olá")

	_, out := api.do(t, http.MethodGet, "/v1/sessions/"+sid+"/notifications", nil)
	assert.Len(t, out["notifications"].([]any), 1)

	_, out = api.do(t, http.MethodGet, "/v1/sessions/"+sid+"/notifications", nil)
	assert.Empty(t, out["notifications"].([]any))
}
