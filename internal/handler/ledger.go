// Package handler exposes the rent ledger over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matthewbaird/fadem/internal/ledger"
)

// LedgerHandler serves owners, properties, tenants, leases, due items,
// payments and statistics.
type LedgerHandler struct {
	engine *ledger.Engine
	logger *zap.Logger
}

func NewLedgerHandler(engine *ledger.Engine, logger *zap.Logger) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{engine: engine, logger: logger}
}

// Routes mounts the ledger endpoints on r.
func (h *LedgerHandler) Routes(r chi.Router) {
	r.Get("/owners", h.ListOwners)
	r.Post("/owners", h.CreateOwner)

	r.Get("/properties", h.ListProperties)
	r.Post("/properties", h.CreateProperty)
	r.Get("/properties/{id}", h.GetProperty)
	r.Post("/properties/{id}/maintenance", h.SetPropertyMaintenance)
	r.Put("/properties/{id}/rooms/{number}/status", h.SetRoomStatus)

	r.Get("/tenants", h.ListTenants)
	r.Post("/tenants", h.CreateTenant)
	r.Get("/tenants/{id}", h.GetTenant)
	r.Patch("/tenants/{id}", h.UpdateTenant)
	r.Get("/tenants/{id}/ledger", h.GetTenantLedger)
	r.Post("/tenants/{id}/default", h.MarkTenantDefault)
	r.Delete("/tenants/{id}/default", h.ClearTenantDefault)

	r.Get("/leases", h.ListLeases)
	r.Post("/leases", h.CreateLease)
	r.Get("/leases/{id}", h.GetLease)
	r.Post("/leases/{id}/status", h.SetLeaseStatus)

	r.Get("/due-items", h.ListDueItems)
	r.Get("/due-items/{id}", h.GetDueItem)
	r.Post("/due-items/accrue", h.Accrue)

	r.Get("/payments", h.ListPayments)
	r.Post("/payments", h.CreatePayment)

	r.Get("/stats", h.GetStatistics)
}

// ── Owners ───────────────────────────────────────────────────────────────────

func (h *LedgerHandler) ListOwners(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Owners())
}

func (h *LedgerHandler) CreateOwner(w http.ResponseWriter, r *http.Request) {
	var in ledger.OwnerInput
	if !decodeJSON(w, r, &in) {
		return
	}
	o, err := h.engine.AddOwner(r.Context(), in)
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// ── Properties ───────────────────────────────────────────────────────────────

func (h *LedgerHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Properties())
}

func (h *LedgerHandler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var in ledger.PropertyInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.engine.AddProperty(r.Context(), in)
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *LedgerHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Property(chi.URLParam(r, "id"))
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *LedgerHandler) SetPropertyMaintenance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Maintenance bool `json:"maintenance"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.engine.SetPropertyMaintenance(r.Context(), chi.URLParam(r, "id"), req.Maintenance)
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *LedgerHandler) SetRoomStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status ledger.RoomStatus `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.engine.SetRoomStatus(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "number"), req.Status)
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ── Tenants ──────────────────────────────────────────────────────────────────

func (h *LedgerHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants := h.engine.Tenants()
	if s := ledger.Standing(r.URL.Query().Get("standing")); s != "" {
		filtered := tenants[:0]
		for _, t := range tenants {
			if t.Standing == s {
				filtered = append(filtered, t)
			}
		}
		tenants = filtered
	}
	if tenants == nil {
		tenants = []ledger.Tenant{}
	}
	writeJSON(w, http.StatusOK, tenants)
}

func (h *LedgerHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var in ledger.TenantInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := h.engine.AddTenant(r.Context(), in)
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *LedgerHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.engine.Tenant(chi.URLParam(r, "id"))
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *LedgerHandler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	var in ledger.TenantInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := h.engine.UpdateTenantContact(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *LedgerHandler) GetTenantLedger(w http.ResponseWriter, r *http.Request) {
	tl, err := h.engine.TenantLedger(chi.URLParam(r, "id"))
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

func (h *LedgerHandler) MarkTenantDefault(w http.ResponseWriter, r *http.Request) {
	t, err := h.engine.MarkTenantDefault(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *LedgerHandler) ClearTenantDefault(w http.ResponseWriter, r *http.Request) {
	t, err := h.engine.ClearTenantDefault(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ── Leases ───────────────────────────────────────────────────────────────────

func (h *LedgerHandler) ListLeases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.engine.Leases(ledger.LeaseFilter{
		TenantID:   q.Get("tenant_id"),
		PropertyID: q.Get("property_id"),
		Status:     ledger.LeaseStatus(q.Get("status")),
	}))
}

// CreateLease signs a lease and returns it with its rent schedule.
func (h *LedgerHandler) CreateLease(w http.ResponseWriter, r *http.Request) {
	var in ledger.LeaseInput
	if !decodeJSON(w, r, &in) {
		return
	}
	l, items, err := h.engine.CreateLease(r.Context(), in)
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Lease    ledger.Lease     `json:"lease"`
		DueItems []ledger.DueItem `json:"due_items"`
	}{l, items})
}

func (h *LedgerHandler) GetLease(w http.ResponseWriter, r *http.Request) {
	l, err := h.engine.Lease(chi.URLParam(r, "id"))
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *LedgerHandler) SetLeaseStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status ledger.LeaseStatus `json:"status"`
		Reason string             `json:"reason,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := h.engine.SetLeaseStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.Reason)
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// ── Due items & payments ─────────────────────────────────────────────────────

func (h *LedgerHandler) ListDueItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ledger.DueItemFilter{
		LeaseID:  q.Get("lease_id"),
		TenantID: q.Get("tenant_id"),
		Status:   ledger.DueStatus(q.Get("status")),
	}
	if queryBool(r, "overdue") {
		now := h.engine.Now()
		f.OverdueAt = &now
	}
	writeJSON(w, http.StatusOK, h.engine.DueItems(f))
}

func (h *LedgerHandler) GetDueItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.engine.DueItem(chi.URLParam(r, "id"))
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *LedgerHandler) Accrue(w http.ResponseWriter, r *http.Request) {
	n, err := h.engine.Accrue(r.Context())
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"accrued": n})
}

func (h *LedgerHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.engine.Payments(ledger.PaymentFilter{
		DueItemID: q.Get("due_item_id"),
		LeaseID:   q.Get("lease_id"),
		TenantID:  q.Get("tenant_id"),
	}))
}

// CreatePayment applies a payment. An Idempotency-Key header stands in for
// the body field when the latter is empty; a replay answers 200 instead of 201.
func (h *LedgerHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var in ledger.PaymentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}
	res, err := h.engine.ApplyPayment(r.Context(), in)
	if err != nil {
		ledgerErrorToHTTP(w, h.logger, err)
		return
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (h *LedgerHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Statistics())
}
