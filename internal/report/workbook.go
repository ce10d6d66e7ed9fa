// Package report renders the ledger as an xlsx workbook: rent roll,
// arrears, payments and a summary sheet.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/matthewbaird/fadem/internal/arrears"
	"github.com/matthewbaird/fadem/internal/ledger"
)

// Sheet names, in workbook order.
const (
	SheetSummary  = "Summary"
	SheetRentRoll = "Rent Roll"
	SheetArrears  = "Arrears"
	SheetPayments = "Payments"
)

const dateLayout = "2006-01-02"

type sheet struct {
	name    string
	headers []string
	widths  []float64
	rows    [][]any
}

// Workbook builds the report for d as of now and returns the xlsx bytes.
func Workbook(d *ledger.Dataset, now time.Time) ([]byte, error) {
	names := newNames(d)
	sheets := []sheet{
		summarySheet(d, now),
		rentRollSheet(d, names),
		arrearsSheet(d, names, now),
		paymentsSheet(d, names),
	}

	f := excelize.NewFile()
	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			f.Close()
			return nil, fmt.Errorf("creating sheet %s: %w", s.name, err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(SheetSummary); err == nil {
		f.SetActiveSheet(index)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	for _, s := range sheets {
		if err := writeSheet(f, s, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	for col, h := range s.headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(s.name, cell, h); err != nil {
			return fmt.Errorf("%s header %s: %w", s.name, cell, err)
		}
		if err := f.SetCellStyle(s.name, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("%s header style: %w", s.name, err)
		}
		if col < len(s.widths) {
			name, _ := excelize.ColumnNumberToName(col + 1)
			if err := f.SetColWidth(s.name, name, name, s.widths[col]); err != nil {
				return fmt.Errorf("%s column width: %w", s.name, err)
			}
		}
	}
	for r, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", s.name, r+2, err)
		}
	}
	return f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// names resolves display names for IDs.
type names struct {
	tenants    map[string]string
	properties map[string]string
}

func newNames(d *ledger.Dataset) names {
	n := names{tenants: map[string]string{}, properties: map[string]string{}}
	for _, t := range d.Tenants {
		n.tenants[t.ID] = t.FullName()
	}
	for _, p := range d.Properties {
		n.properties[p.ID] = p.Name
	}
	return n
}

func (n names) tenant(id string) string {
	if s, ok := n.tenants[id]; ok {
		return s
	}
	return "unknown tenant"
}

func (n names) property(id string) string {
	if s, ok := n.properties[id]; ok {
		return s
	}
	return id
}

func summarySheet(d *ledger.Dataset, now time.Time) sheet {
	s := ledger.ComputeStatistics(d, now)
	return sheet{
		name:    SheetSummary,
		headers: []string{"Metric", "Value"},
		widths:  []float64{28, 18},
		rows: [][]any{
			{"Report date", now.Format(dateLayout)},
			{"Currency", s.Currency},
			{"Properties", s.Properties},
			{"Rooms", s.Rooms},
			{"Occupied rooms", s.OccupiedRooms},
			{"Occupancy rate (%)", fmt.Sprintf("%.1f", s.OccupancyRate)},
			{"Active leases", s.ActiveLeases},
			{"Monthly revenue", s.MonthlyRevenue},
			{"Collected this month", s.CollectedMonth},
			{"Pending", s.Pending},
			{"Arrears", s.ArrearsAmount},
			{"Tenants in arrears", s.TenantsInArrears},
			{"Tenants in default", s.TenantsInDefault},
			{"Overdue items", s.OverdueItems},
			{"Potential late fees", s.PotentialLateFees},
			{"Expiring leases", s.ExpiringLeases},
			{"Open alerts", s.OpenAlerts},
		},
	}
}

func rentRollSheet(d *ledger.Dataset, n names) sheet {
	standing := make(map[string]ledger.Tenant, len(d.Tenants))
	for _, t := range d.Tenants {
		standing[t.ID] = t
	}
	s := sheet{
		name:    SheetRentRoll,
		headers: []string{"Property", "Room", "Tenant", "Monthly Rent", "Start", "End", "Status", "Standing", "Balance"},
		widths:  []float64{24, 8, 24, 14, 12, 12, 12, 16, 14},
	}
	for _, l := range d.Leases {
		t := standing[l.TenantID]
		s.rows = append(s.rows, []any{
			n.property(l.PropertyID), l.RoomNumber, n.tenant(l.TenantID), l.MonthlyRent,
			l.StartDate.Format(dateLayout), ledger.ScheduleEnd(l).Format(dateLayout),
			string(l.Status), string(t.Standing), t.Balance,
		})
	}
	return s
}

func arrearsSheet(d *ledger.Dataset, n names, now time.Time) sheet {
	overdue := arrears.Scan(now, d.DueItems, arrears.DirectoryFor(d))
	ledger.SortAlerts(overdue)
	s := sheet{
		name:    SheetArrears,
		headers: []string{"Tenant", "Property", "Room", "Due Date", "Days Overdue", "Priority", "Outstanding"},
		widths:  []float64{24, 24, 8, 12, 14, 10, 14},
	}
	for _, a := range overdue {
		s.rows = append(s.rows, []any{
			n.tenant(a.TenantID), n.property(a.PropertyID), a.RoomNumber,
			a.DueDate.Format(dateLayout), a.DaysOverdue, string(a.Priority), a.Amount,
		})
	}
	return s
}

func paymentsSheet(d *ledger.Dataset, n names) sheet {
	payments := append([]ledger.Payment(nil), d.Payments...)
	sort.SliceStable(payments, func(i, j int) bool { return payments[i].PaidAt.Before(payments[j].PaidAt) })
	s := sheet{
		name:    SheetPayments,
		headers: []string{"Paid At", "Tenant", "Property", "Amount", "Method", "Reference", "Fees"},
		widths:  []float64{12, 24, 24, 14, 16, 20, 10},
	}
	for _, p := range payments {
		s.rows = append(s.rows, []any{
			p.PaidAt.Format(dateLayout), n.tenant(p.TenantID), n.property(p.PropertyID),
			p.Amount, string(p.Method), p.Reference, p.Fees.Total(),
		})
	}
	return s
}
