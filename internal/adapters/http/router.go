package httpadapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
	"github.com/Shiroi-Max/koala-route/internal/core/ports"
	"github.com/Shiroi-Max/koala-route/internal/observability/metrics"
)

// The router depends on narrow views of the use cases so handlers can be
// exercised with fakes.
type chatFlow interface {
	Run(ctx context.Context, input string) (*domain.TurnResult, error)
}

type guideIngestor interface {
	Upload(ctx context.Context, filename string, body io.Reader) (*domain.Guide, error)
}

type sectionDeleter interface {
	Delete(ctx context.Context, ids []string) error
}

type scenarioEvaluator interface {
	EvaluateScenario(ctx context.Context, scenario *domain.Scenario, turn *domain.TurnResult) (*domain.EvaluationResult, error)
}

type Router struct {
	service   string
	flow      chatFlow
	ingestUC  guideIngestor
	deleteUC  sectionDeleter
	evaluator scenarioEvaluator
	registry  ports.GuideRegistry
	scenarios ports.ScenarioSource
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(
	service string,
	flow chatFlow,
	ingestUC guideIngestor,
	deleteUC sectionDeleter,
	evaluator scenarioEvaluator,
	registry ports.GuideRegistry,
	scenarios ports.ScenarioSource,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		service:   service,
		flow:      flow,
		ingestUC:  ingestUC,
		deleteUC:  deleteUC,
		evaluator: evaluator,
		registry:  registry,
		scenarios: scenarios,
		metrics:   m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat", rt.chat)
	mux.HandleFunc("/v1/guides", rt.uploadGuide)
	mux.HandleFunc("/v1/guides/", rt.getGuideByID)
	mux.HandleFunc("/v1/sections", rt.deleteSections)
	mux.HandleFunc("/v1/scenarios", rt.listScenarios)
	mux.HandleFunc("/v1/scenarios/evaluate", rt.evaluateScenario)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	start := time.Now()
	turn, err := rt.flow.Run(r.Context(), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordTurn(rt.service, "/v1/chat", len(turn.RetrievedDocs), time.Since(start))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"response":       turn.Response,
		"retrieved_docs": turn.RetrievedDocs,
	})
}

func (rt *Router) uploadGuide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	guide, err := rt.ingestUC.Upload(r.Context(), fileHeader.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, guide)
}

func (rt *Router) getGuideByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/guides/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "guide id is required"})
		return
	}

	guide, err := rt.registry.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, guide)
}

func (rt *Router) deleteSections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := rt.deleteUC.Delete(r.Context(), req.IDs); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": len(req.IDs)})
}

func (rt *Router) listScenarios(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	names, err := rt.scenarios.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": names})
}

// evaluateScenario runs one catalog scenario end to end and reports the
// metric scores for it.
func (rt *Router) evaluateScenario(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scenario name is required"})
		return
	}

	sc, err := rt.scenarios.ByName(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	turn, err := rt.flow.Run(r.Context(), sc.UserInput)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordEvaluation(rt.service, err)
		}
		writeError(w, err)
		return
	}

	result, err := rt.evaluator.EvaluateScenario(r.Context(), sc, turn)
	if rt.metrics != nil {
		rt.metrics.RecordEvaluation(rt.service, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
