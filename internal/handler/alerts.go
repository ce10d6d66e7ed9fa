package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matthewbaird/fadem/internal/arrears"
	"github.com/matthewbaird/fadem/internal/ledger"
)

// AlertHandler serves arrears alerts and their live stream.
type AlertHandler struct {
	engine  *ledger.Engine
	monitor *arrears.Monitor
	stream  *AlertStream
	logger  *zap.Logger
}

func NewAlertHandler(engine *ledger.Engine, monitor *arrears.Monitor, stream *AlertStream, logger *zap.Logger) *AlertHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertHandler{engine: engine, monitor: monitor, stream: stream, logger: logger}
}

func (h *AlertHandler) Routes(r chi.Router) {
	r.Get("/alerts", h.ListAlerts)
	r.Post("/alerts/refresh", h.RefreshAlerts)
	r.Post("/alerts/{id}/resolve", h.ResolveAlert)
	if h.stream != nil {
		r.Get("/alerts/stream", h.stream.ServeHTTP)
	}
}

// ListAlerts returns open alerts, most urgent first. ?all=true includes
// resolved ones.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Alerts(queryBool(r, "all")))
}

// RefreshAlerts runs an arrears pass now instead of waiting for the ticker.
func (h *AlertHandler) RefreshAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.monitor.Refresh(r.Context())
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	if alerts == nil {
		alerts = []ledger.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	a, err := h.engine.ResolveAlert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
