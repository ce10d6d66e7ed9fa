package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matthewbaird/fadem/internal/ledger"
	"github.com/matthewbaird/fadem/internal/report"
	"github.com/matthewbaird/fadem/internal/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DataHandler serves whole-dataset operations: export, import, backup,
// restore, reset and the workbook report.
type DataHandler struct {
	engine *ledger.Engine
	repo   *storage.Repository
	logger *zap.Logger
}

func NewDataHandler(engine *ledger.Engine, repo *storage.Repository, logger *zap.Logger) *DataHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataHandler{engine: engine, repo: repo, logger: logger}
}

func (h *DataHandler) Routes(r chi.Router) {
	r.Get("/data/export", h.Export)
	r.Post("/data/import", h.Import)
	r.Post("/data/backup", h.Backup)
	r.Get("/data/backup", h.GetBackup)
	r.Post("/data/restore", h.Restore)
	r.Post("/data/reset", h.Reset)
	r.Get("/reports/workbook.xlsx", h.Workbook)
}

func (h *DataHandler) Export(w http.ResponseWriter, r *http.Request) {
	raw, err := h.repo.Export(r.Context())
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	name := fmt.Sprintf("fadem_%s_%s.json", h.repo.Module(), h.engine.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// Import replaces the live dataset with an export file posted as the body.
func (h *DataHandler) Import(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	d, err := h.repo.Import(raw)
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	if err := h.engine.Replace(r.Context(), d, "import"); err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Statistics())
}

func (h *DataHandler) Backup(w http.ResponseWriter, r *http.Request) {
	b, err := h.repo.Backup(r.Context())
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"module": b.Module, "timestamp": b.Timestamp})
}

// GetBackup reports when the last backup was taken.
func (h *DataHandler) GetBackup(w http.ResponseWriter, r *http.Request) {
	b, err := h.repo.LatestBackup(r.Context())
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"module": b.Module, "timestamp": b.Timestamp})
}

func (h *DataHandler) Restore(w http.ResponseWriter, r *http.Request) {
	d, err := h.repo.RestoreBackup(r.Context())
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	if err := h.engine.Replace(r.Context(), d, "backup"); err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Statistics())
}

// Reset deletes all stored data and empties the live dataset. The request
// must carry ?confirm=true.
func (h *DataHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if !queryBool(r, "confirm") {
		writeError(w, http.StatusBadRequest, "CONFIRMATION_REQUIRED", "reset deletes all data; pass confirm=true")
		return
	}
	keys, err := h.repo.Reset(r.Context())
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	if err := h.engine.Replace(r.Context(), ledger.NewDataset(h.engine.Currency()), "reset"); err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": keys})
}

func (h *DataHandler) Workbook(w http.ResponseWriter, r *http.Request) {
	now := h.engine.Now()
	raw, err := report.Workbook(h.engine.Snapshot(), now)
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	name := fmt.Sprintf("fadem_report_%s.xlsx", now.Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
