package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
)

type flowFake struct {
	turn *domain.TurnResult
	err  error
}

func (f flowFake) Run(context.Context, string) (*domain.TurnResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.turn, nil
}

type ingestFake struct {
	err error
}

func (f ingestFake) Upload(_ context.Context, filename string, body io.Reader) (*domain.Guide, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &domain.Guide{
		ID:          "guide-1",
		Filename:    filename,
		StoragePath: "guide-1_" + filename,
		Status:      domain.GuideUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type deleteFake struct {
	err error
	got []string
}

func (f *deleteFake) Delete(_ context.Context, ids []string) error {
	f.got = ids
	return f.err
}

type evalFake struct {
	result *domain.EvaluationResult
	err    error
}

func (f evalFake) EvaluateScenario(_ context.Context, sc *domain.Scenario, _ *domain.TurnResult) (*domain.EvaluationResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &domain.EvaluationResult{Scenario: sc.Name, Metrics: map[string]float64{}}, nil
}

type registryFake struct {
	guide *domain.Guide
	err   error
}

func (f registryFake) Create(context.Context, *domain.Guide) error { return nil }

func (f registryFake) GetByID(context.Context, string) (*domain.Guide, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.guide, nil
}

func (f registryFake) UpdateStatus(context.Context, string, domain.GuideStatus, string) error {
	return nil
}

func (f registryFake) SetIndexed(context.Context, string, string, int) error { return nil }

type scenarioFake struct {
	scenario *domain.Scenario
	err      error
}

func (f scenarioFake) List() ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"playa_familiar"}, nil
}

func (f scenarioFake) ByName(string) (*domain.Scenario, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.scenario, nil
}

type routerDeps struct {
	flow      flowFake
	ingest    ingestFake
	deleter   *deleteFake
	eval      evalFake
	registry  registryFake
	scenarios scenarioFake
}

func newTestRouter(deps routerDeps) http.Handler {
	if deps.deleter == nil {
		deps.deleter = &deleteFake{}
	}
	return NewRouter(
		"api-test",
		deps.flow,
		deps.ingest,
		deps.deleter,
		deps.eval,
		deps.registry,
		deps.scenarios,
		nil,
	).Handler()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestRouter(routerDeps{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestChatReturnsResponseAndDocs(t *testing.T) {
	handler := newTestRouter(routerDeps{
		flow: flowFake{turn: &domain.TurnResult{
			Response: "Visita Valencia.",
			RetrievedDocs: []domain.RetrievedDoc{
				{ID: "Valencia#Playas", Similarity: 0.82},
			},
		}},
	})

	payload, _ := json.Marshal(map[string]any{"message": "playas para ir con niños"})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var body struct {
		Response      string                `json:"response"`
		RetrievedDocs []domain.RetrievedDoc `json:"retrieved_docs"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Response != "Visita Valencia." {
		t.Fatalf("response = %q", body.Response)
	}
	if len(body.RetrievedDocs) != 1 || body.RetrievedDocs[0].ID != "Valencia#Playas" {
		t.Fatalf("retrieved docs = %+v", body.RetrievedDocs)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	handler := newTestRouter(routerDeps{})

	payload, _ := json.Marshal(map[string]any{"message": "   "})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestChatMapsTemporaryErrorTo503(t *testing.T) {
	handler := newTestRouter(routerDeps{
		flow: flowFake{err: domain.WrapError(domain.ErrTemporary, "search", errors.New("circuit open"))},
	})

	payload, _ := json.Marshal(map[string]any{"message": "hola"})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestUploadGuideSuccess(t *testing.T) {
	handler := newTestRouter(routerDeps{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "madrid.md")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte("# Madrid\n\n## Playas\n\ntexto")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/guides", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}

	var guide map[string]any
	if err := json.NewDecoder(res.Body).Decode(&guide); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if guide["id"] != "guide-1" {
		t.Fatalf("unexpected response: %+v", guide)
	}
}

func TestUploadGuideMissingMultipartField(t *testing.T) {
	handler := newTestRouter(routerDeps{})

	req := httptest.NewRequest(http.MethodPost, "/v1/guides", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetGuideByIDReturns404ForNotFound(t *testing.T) {
	handler := newTestRouter(routerDeps{
		registry: registryFake{err: domain.WrapError(domain.ErrGuideNotFound, "get guide", errors.New("id missing"))},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/guides/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestDeleteSectionsPassesIDs(t *testing.T) {
	deleter := &deleteFake{}
	handler := newTestRouter(routerDeps{deleter: deleter})

	payload, _ := json.Marshal(map[string]any{"ids": []string{"Valencia#Playas", "Valencia#Museos"}})
	req := httptest.NewRequest(http.MethodDelete, "/v1/sections", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if len(deleter.got) != 2 {
		t.Fatalf("deleter received %v", deleter.got)
	}
}

func TestEvaluateScenarioUnknownNameReturns404(t *testing.T) {
	handler := newTestRouter(routerDeps{
		scenarios: scenarioFake{err: domain.WrapError(domain.ErrScenarioNotFound, "lookup scenario", errors.New(`name "x"`))},
	})

	payload, _ := json.Marshal(map[string]any{"name": "x"})
	req := httptest.NewRequest(http.MethodPost, "/v1/scenarios/evaluate", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestEvaluateScenarioReturnsMetrics(t *testing.T) {
	handler := newTestRouter(routerDeps{
		flow: flowFake{turn: &domain.TurnResult{Response: "ok", RetrievedDocs: []domain.RetrievedDoc{}}},
		scenarios: scenarioFake{scenario: &domain.Scenario{
			Name:      "playa_familiar",
			UserInput: "playas con niños",
		}},
		eval: evalFake{result: &domain.EvaluationResult{
			Scenario: "playa_familiar",
			Metrics: map[string]float64{
				domain.MetricAdaptiveRecall: 1.0,
			},
		}},
	})

	payload, _ := json.Marshal(map[string]any{"name": "playa_familiar"})
	req := httptest.NewRequest(http.MethodPost, "/v1/scenarios/evaluate", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var result domain.EvaluationResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Scenario != "playa_familiar" {
		t.Fatalf("scenario = %q", result.Scenario)
	}
	if result.Metrics[domain.MetricAdaptiveRecall] != 1.0 {
		t.Fatalf("metrics = %v", result.Metrics)
	}
}
