package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/app"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/logging"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/presentation"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/transport/rundto"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	svc     app.Runner
	metrics prometheus.Gatherer
	logger  *slog.Logger
}

type Option func(*Handler)

// WithMetrics exposes g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.metrics = g
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

func NewHandler(svc app.Runner, opts ...Option) *Handler {
	h := &Handler{svc: svc}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logging.NewNop()
	}
	return h
}

// Routes builds the router:
//
//	POST /v1/chain | /v1/parallel | /v1/dag | /v1/run
//	POST /v1/graph
//	GET  /v1/providers | /v1/policies | /healthz | /metrics
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/chain", h.mode(app.ModeChain))
		r.Post("/parallel", h.mode(app.ModeParallel))
		r.Post("/dag", h.mode(app.ModeDAG))
		r.Post("/run", h.Run)
		r.Post("/graph", h.Graph)
		r.Get("/providers", h.Providers)
		r.Get("/policies", h.Policies)
	})
	return r
}

func (h *Handler) mode(m app.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decode(w, r)
		if !ok {
			return
		}
		h.dispatch(w, r, m, in)
	}
}

// Run reads the mode from the request body.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	in, ok := decode(w, r)
	if !ok {
		return
	}
	m, err := app.ParseMode(in.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, rundto.ErrorBody{Error: "invalid request", Details: err.Error()})
		return
	}
	h.dispatch(w, r, m, in)
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, m app.Mode, in rundto.RunRequest) {
	start := time.Now()
	rep, err := rundto.Dispatch(r.Context(), h.svc, m, in)
	status, body := rundto.Response(rep, err)

	h.logger.Info("run request",
		"request_id", middleware.GetReqID(r.Context()),
		"mode", m,
		"status", status,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	writeJSON(w, status, body)
}

type graphResponse struct {
	Order   []string `json:"order"`
	Sinks   []string `json:"sinks"`
	Mermaid string   `json:"mermaid"`
}

// Graph validates a graph without running it and returns its execution
// order and a Mermaid rendering.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	in, ok := decode(w, r)
	if !ok {
		return
	}
	req, err := in.DAG()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, rundto.ErrorBody{Error: "invalid request", Details: err.Error()})
		return
	}
	plan, err := h.svc.Compile(req.Graph)
	if err != nil {
		status, body := rundto.Response(nil, err)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, graphResponse{
		Order:   plan.Order(),
		Sinks:   plan.Sinks(),
		Mermaid: presentation.Mermaid(plan),
	})
}

func (h *Handler) Providers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": h.svc.Providers()})
}

func (h *Handler) Policies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"policies": h.svc.Policies()})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decode(w http.ResponseWriter, r *http.Request) (rundto.RunRequest, bool) {
	var in rundto.RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, rundto.ErrorBody{Error: "invalid json", Details: err.Error()})
		return in, false
	}
	return in, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
