package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"flotilla/api/internal/checklist"
	"flotilla/api/internal/search"
	"flotilla/api/internal/store"
)

type fakeSearch struct {
	searchFn func(search.Query) search.Response
	indexed  []search.ChecklistRecord
}

func (f *fakeSearch) Search(q search.Query) search.Response {
	if f.searchFn == nil {
		return search.Response{Results: []search.Result{}}
	}
	return f.searchFn(q)
}

func (f *fakeSearch) IndexChecklist(rec search.ChecklistRecord) {
	f.indexed = append(f.indexed, rec)
}

func newTestServer(svc *Service) *httptest.Server {
	httpServer := NewHTTPServer(svc, "*")
	return httptest.NewServer(httpServer.Handler())
}

func decodeResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(newTestService(&fakeStore{}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeResponse(t, resp)
	if body["ok"] != true {
		t.Errorf("expected ok true, got %v", body["ok"])
	}
}

func TestReadyEndpoint(t *testing.T) {
	server := newTestServer(newTestService(&fakeStore{}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/ready")
	if err != nil {
		t.Fatalf("GET /api/ready failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeResponse(t, resp)
	if body["status"] != "ready" {
		t.Errorf("expected status ready, got %v", body["status"])
	}
	checks, ok := body["checks"].(map[string]any)
	if !ok {
		t.Fatal("missing checks block")
	}
	if _, ok := checks["database"]; !ok {
		t.Error("missing database check")
	}
}

func TestRequestIDHeader(t *testing.T) {
	server := newTestServer(newTestService(&fakeStore{}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/health", nil)
	req.Header.Set("X-Request-ID", "test-request-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "test-request-1" {
		t.Errorf("request id not echoed, got %q", got)
	}
}

func TestPreflightRequest(t *testing.T) {
	server := newTestServer(newTestService(&fakeStore{}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/api/assignments/1/checklist", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}
}

func TestInvalidAssignmentID(t *testing.T) {
	server := newTestServer(newTestService(&fakeStore{}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/assignments/abc")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeResponse(t, resp)
	if body["code"] != "INVALID_ID" {
		t.Errorf("expected INVALID_ID, got %v", body["code"])
	}
}

func TestGetAsignacionEndpointNotFound(t *testing.T) {
	server := newTestServer(newTestService(&fakeStore{}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/assignments/99")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	body := decodeResponse(t, resp)
	if body["error"] != "asignación no encontrada" {
		t.Errorf("unexpected error message: %v", body["error"])
	}
}

func TestFormEndpoint(t *testing.T) {
	st := &fakeStore{
		getAsignacionFn: func(ctx context.Context, id int) (store.Asignacion, error) {
			return testAsignacion("tractocamion"), nil
		},
	}
	server := newTestServer(newTestService(st))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/assignments/42/checklist/form")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var form FormResponse
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&form); err != nil {
		t.Fatalf("decode form: %v", err)
	}
	if form.TipoUnidad != "tractocamion" {
		t.Errorf("expected tractocamion, got %q", form.TipoUnidad)
	}
	// Tractocamion sees all three sections, including Quinta Rueda.
	if len(form.Secciones) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(form.Secciones))
	}
	if len(form.Respuestas.Answers) != 4 {
		t.Errorf("expected 4 seeded answers, got %d", len(form.Respuestas.Answers))
	}
}

func TestSubmitEndpointValidationError(t *testing.T) {
	st := &fakeStore{
		getAsignacionFn: func(ctx context.Context, id int) (store.Asignacion, error) {
			return testAsignacion("camioneta"), nil
		},
	}
	server := newTestServer(newTestService(st))
	defer server.Close()

	payload := `{"respuestas":{"preguntas":[{"idPregunta":1,"tipo":"numero","respuesta":"abc"}]}}`
	resp, err := http.Post(server.URL+"/api/assignments/42/checklist", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	body := decodeResponse(t, resp)
	if body["code"] != "VALIDATION_FAILED" {
		t.Errorf("expected VALIDATION_FAILED, got %v", body["code"])
	}
	if body["error"] != checklist.MsgInvalidNumber {
		t.Errorf("expected %q surfaced as error, got %v", checklist.MsgInvalidNumber, body["error"])
	}
	details, ok := body["details"].([]any)
	if !ok || len(details) == 0 {
		t.Fatal("expected per-field details")
	}
}

func TestSubmitEndpoint(t *testing.T) {
	st := &fakeStore{
		getAsignacionFn: func(ctx context.Context, id int) (store.Asignacion, error) {
			return testAsignacion("camioneta"), nil
		},
		insertChecklistFn: func(ctx context.Context, asignacionID int, raw []byte) (int, error) {
			return 7, nil
		},
	}
	svc := newTestService(st)
	index := &fakeSearch{}
	svc.search = index
	server := newTestServer(svc)
	defer server.Close()

	payload := `{"respuestas":{"preguntas":[
		{"idPregunta":1,"tipo":"numero","respuesta":15},
		{"idPregunta":2,"tipo":"si_no","respuesta":"si"},
		{"idPregunta":4,"tipo":"texto","respuesta":"sin novedades"}
	]}}`
	resp, err := http.Post(server.URL+"/api/assignments/42/checklist", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	body := decodeResponse(t, resp)
	if body["id"] != float64(7) {
		t.Errorf("expected id 7, got %v", body["id"])
	}
	if body["message"] != "Checklist guardado correctamente" {
		t.Errorf("unexpected message: %v", body["message"])
	}

	if len(index.indexed) != 1 {
		t.Fatalf("expected checklist indexed for search, got %d", len(index.indexed))
	}
	rec := index.indexed[0]
	if rec.ID != "7" || rec.TipoUnidad != "camioneta" {
		t.Errorf("unexpected index record: %+v", rec)
	}
	if !strings.Contains(rec.Respuestas, "sin novedades") {
		t.Errorf("answer text missing from search blob: %q", rec.Respuestas)
	}
}

func TestSubmitEndpointMethodNotAllowed(t *testing.T) {
	server := newTestServer(newTestService(&fakeStore{}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/assignments/42/checklist")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestDraftEndpoints(t *testing.T) {
	st := &fakeStore{
		getAsignacionFn: func(ctx context.Context, id int) (store.Asignacion, error) {
			return testAsignacion("camioneta"), nil
		},
	}
	svc := newTestService(st)
	saver := newFakeSaver()
	drafts := &fakeDrafts{
		loadFn: func(ctx context.Context, key string) (checklist.State, bool, error) {
			state, ok := saver.saved[key]
			return state, ok, nil
		},
	}
	svc.drafts = drafts
	svc.saver = saver
	server := newTestServer(svc)
	defer server.Close()

	// Nothing drafted yet.
	resp, err := http.Get(server.URL + "/api/assignments/42/checklist/draft")
	if err != nil {
		t.Fatalf("GET draft failed: %v", err)
	}
	body := decodeResponse(t, resp)
	if body["found"] != false {
		t.Errorf("expected found false, got %v", body["found"])
	}

	// Draft a partial answer.
	payload := `{"respuestas":{"preguntas":[{"idPregunta":1,"tipo":"numero","respuesta":15}]}}`
	req, _ := http.NewRequest(http.MethodPut, server.URL+"/api/assignments/42/checklist/draft", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT draft failed: %v", err)
	}
	body = decodeResponse(t, resp)
	if body["skipped"] != false {
		t.Errorf("expected skipped false, got %v", body["skipped"])
	}

	// Now the draft comes back.
	resp, err = http.Get(server.URL + "/api/assignments/42/checklist/draft")
	if err != nil {
		t.Fatalf("GET draft failed: %v", err)
	}
	body = decodeResponse(t, resp)
	if body["found"] != true {
		t.Fatalf("expected found true, got %v", body["found"])
	}

	// Discard it.
	req, _ = http.NewRequest(http.MethodDelete, server.URL+"/api/assignments/42/checklist/draft", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE draft failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if len(drafts.cleared) != 1 {
		t.Errorf("draft not cleared: %v", drafts.cleared)
	}
}

func TestSearchEndpoint(t *testing.T) {
	svc := newTestService(&fakeStore{})
	svc.search = &fakeSearch{
		searchFn: func(q search.Query) search.Response {
			if q.Text != "aceite" || q.TipoUnidad != "camioneta" || q.Limit != 5 {
				t.Errorf("query not passed through: %+v", q)
			}
			return search.Response{
				Results: []search.Result{{ChecklistID: "7", NoUnidad: "U-12"}},
				Total:   1,
				Query:   q.Text,
			}
		},
	}
	server := newTestServer(svc)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/checklists/search?q=aceite&tipo=camioneta&limit=5")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeResponse(t, resp)
	results, ok := body["results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("expected 1 result, got %v", body["results"])
	}
}

func TestUnknownRoute(t *testing.T) {
	server := newTestServer(newTestService(&fakeStore{}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/nothing/here")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}
