package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthServer serves /healthz and /metrics for a running session.
type HealthServer struct {
	client   *taskfeed.Client
	gatherer prometheus.Gatherer
	addr     string
	logger   *slog.Logger
	server   *http.Server
}

// NewHealthServer creates a server listening on addr.
func NewHealthServer(client *taskfeed.Client, gatherer prometheus.Gatherer, addr string, logger *slog.Logger) *HealthServer {
	return &HealthServer{
		client:   client,
		gatherer: gatherer,
		addr:     addr,
		logger:   logger,
	}
}

// Handler returns the HTTP routes of the server.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.healthCheckHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Start starts the HTTP server in the background.
func (h *HealthServer) Start() error {
	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("health server failed", "addr", h.addr, "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

// healthCheckHandler handles GET /healthz requests.
// Returns 200 OK if Redis is accessible, 503 Service Unavailable otherwise.
func (h *HealthServer) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Namespace: h.client.Namespace(),
	}
	status := http.StatusOK

	if err := h.client.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Redis = "disconnected"
		response.Error = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		response.Redis = "connected"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// HealthResponse is the JSON response structure for health checks.
type HealthResponse struct {
	Status    string `json:"status"`
	Namespace string `json:"namespace"`
	Redis     string `json:"redis,omitempty"`
	Error     string `json:"error,omitempty"`
}
