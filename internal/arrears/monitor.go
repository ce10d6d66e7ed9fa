// Package arrears scans due items for overdue rent and keeps the ledger's
// payment-overdue alerts in step with them.
package arrears

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matthewbaird/fadem/internal/ledger"
	"github.com/matthewbaird/fadem/internal/types"
)

// DefaultInterval is how often Run rescans when no interval is configured.
const DefaultInterval = 30 * time.Second

// Priority thresholds in whole days overdue.
const (
	urgentAfterDays = 15
	highAfterDays   = 7
)

// alertNamespace seeds the deterministic alert IDs derived from due item IDs.
var alertNamespace = uuid.MustParse("5b0f6a1e-2c1d-4f7e-9a43-6f1e0c3d8b52")

// DefaultActions are the follow-ups suggested on every overdue alert.
var DefaultActions = []string{"call", "sms", "visit"}

// AlertID returns the alert ID used for the overdue alert of a due item.
func AlertID(dueItemID string) string {
	return uuid.NewSHA1(alertNamespace, []byte(dueItemID)).String()
}

// DaysOverdue is the number of whole days between due and now.
func DaysOverdue(now, due time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(now.Sub(due) / (24 * time.Hour))
}

// PriorityFor maps days overdue to an alert priority.
func PriorityFor(days int) ledger.AlertPriority {
	switch {
	case days > urgentAfterDays:
		return ledger.PriorityUrgent
	case days > highAfterDays:
		return ledger.PriorityHigh
	default:
		return ledger.PriorityMedium
	}
}

// Directory resolves the names and lease states a scan needs.
type Directory struct {
	Currency     string
	tenants      map[string]ledger.Tenant
	closedLeases map[string]bool
}

// DirectoryFor indexes a dataset for scanning.
func DirectoryFor(d *ledger.Dataset) Directory {
	dir := Directory{
		Currency:     d.Currency,
		tenants:      make(map[string]ledger.Tenant, len(d.Tenants)),
		closedLeases: d.ClosedLeases(),
	}
	for _, t := range d.Tenants {
		dir.tenants[t.ID] = t
	}
	return dir
}

func (dir Directory) tenantName(id string) string {
	t, ok := dir.tenants[id]
	if !ok {
		return "unknown tenant"
	}
	return t.FullName()
}

// Scan builds one payment-overdue alert per unpaid due item that fell due
// before now. Items of closed leases are skipped unless they were incurred
// before the lease closed.
func Scan(now time.Time, items []ledger.DueItem, dir Directory) []ledger.Alert {
	var out []ledger.Alert
	for _, item := range items {
		if item.Status == ledger.DuePaid || !item.DueDate.Before(now) {
			continue
		}
		if ledger.Waived(item, dir.closedLeases) {
			continue
		}
		days := DaysOverdue(now, item.DueDate)
		amount := types.NewMoney(item.Outstanding(), dir.Currency)
		out = append(out, ledger.Alert{
			ID:          AlertID(item.ID),
			Type:        ledger.AlertPaymentOverdue,
			Priority:    PriorityFor(days),
			Title:       fmt.Sprintf("Payment overdue - %d day(s)", days),
			Description: fmt.Sprintf("%s - rent of %s overdue", dir.tenantName(item.TenantID), amount),
			TenantID:    item.TenantID,
			PropertyID:  item.PropertyID,
			RoomNumber:  item.RoomNumber,
			LeaseID:     item.LeaseID,
			DueItemID:   item.ID,
			DueDate:     item.DueDate,
			DaysOverdue: days,
			Amount:      item.Outstanding(),
			Actions:     append([]string(nil), DefaultActions...),
			CreatedAt:   now,
		})
	}
	return out
}

// Merge replaces the unresolved payment-overdue alerts in existing with
// fresh. Resolved alerts and alerts of other types are kept, and a due item
// whose overdue alert was resolved gets no new one. An alert that survives
// a rescan keeps its original creation time.
func Merge(existing, fresh []ledger.Alert) []ledger.Alert {
	out := make([]ledger.Alert, 0, len(existing)+len(fresh))
	resolved := make(map[string]bool)
	created := make(map[string]time.Time)
	for _, a := range existing {
		if a.Resolved || a.Type != ledger.AlertPaymentOverdue {
			out = append(out, a)
			if a.Resolved && a.DueItemID != "" {
				resolved[a.DueItemID] = true
			}
			continue
		}
		created[a.ID] = a.CreatedAt
	}
	for _, a := range fresh {
		if resolved[a.DueItemID] {
			continue
		}
		if at, ok := created[a.ID]; ok {
			a.CreatedAt = at
		}
		out = append(out, a)
	}
	return out
}

// Refresh is the ledger.AlertRefresher that scans and merges.
func Refresh(now time.Time, d *ledger.Dataset) []ledger.Alert {
	return Merge(d.Alerts, Scan(now, d.DueItems, DirectoryFor(d)))
}

// Ledger is the part of ledger.Engine the monitor drives.
type Ledger interface {
	RefreshAlerts(ctx context.Context, refresh ledger.AlertRefresher) ([]ledger.Alert, error)
}

// Monitor rescans the ledger on demand and on a fixed interval.
type Monitor struct {
	ledger   Ledger
	interval time.Duration
	logger   *zap.Logger
}

// NewMonitor returns a monitor over l. A non-positive interval means
// DefaultInterval.
func NewMonitor(l Ledger, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{ledger: l, interval: interval, logger: logger.Named("arrears")}
}

// Interval returns the rescan period.
func (m *Monitor) Interval() time.Duration { return m.interval }

// Refresh runs one scan and returns the unresolved alerts.
func (m *Monitor) Refresh(ctx context.Context) ([]ledger.Alert, error) {
	alerts, err := m.ledger.RefreshAlerts(ctx, Refresh)
	if err != nil {
		return nil, fmt.Errorf("refreshing alerts: %w", err)
	}
	ledger.SortAlerts(alerts)
	return alerts, nil
}

// Run scans immediately and then every interval until ctx is done. Failed
// passes are logged and retried on the next tick.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("arrears monitor started", zap.Duration("interval", m.interval))
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.pass(ctx)
		select {
		case <-ctx.Done():
			m.logger.Info("arrears monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) pass(ctx context.Context) {
	start := time.Now()
	alerts, err := m.Refresh(ctx)
	if err != nil {
		m.logger.Error("arrears scan failed", zap.Error(err))
		return
	}
	urgent := 0
	for _, a := range alerts {
		if a.Priority == ledger.PriorityUrgent {
			urgent++
		}
	}
	m.logger.Debug("arrears scan complete",
		zap.Int("open_alerts", len(alerts)),
		zap.Int("urgent", urgent),
		zap.Duration("took", time.Since(start)))
}
