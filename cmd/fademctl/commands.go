package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/fadem/internal/arrears"
	"github.com/matthewbaird/fadem/internal/ledger"
	"github.com/matthewbaird/fadem/internal/report"
	"github.com/matthewbaird/fadem/internal/types"
)

func ExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dataset as an export file",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			raw, err := s.repo.Export(cmd.Context())
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			return writeOutput(cmd, out, raw)
		},
	}
	cmd.Flags().StringP("out", "o", "", "output file (default stdout)")
	return cmd
}

func ImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the dataset with an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			d, err := s.repo.Import(raw)
			if err != nil {
				return err
			}
			if err := s.engine.Replace(cmd.Context(), d, "import"); err != nil {
				return err
			}
			st := s.engine.Statistics()
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d properties, %d tenants, %d active leases\n",
				st.Properties, st.Tenants, st.ActiveLeases)
			return nil
		},
	}
}

func BackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Copy the dataset to the backup slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			b, err := s.repo.Backup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup of %s written at %s\n", b.Module, b.Timestamp.Format(time.RFC3339))
			return nil
		},
	}
}

func RestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Replace the dataset with the last backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			d, err := s.repo.RestoreBackup(cmd.Context())
			if err != nil {
				return fmt.Errorf("reading backup: %w", err)
			}
			if err := s.engine.Replace(cmd.Context(), d, "backup"); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "dataset restored from backup")
			return nil
		},
	}
}

func ResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all stored data, backups included",
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return fmt.Errorf("reset deletes all data; rerun with --yes")
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			keys, err := s.repo.Reset(cmd.Context())
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), "deleted", k)
			}
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "confirm deletion")
	return cmd
}

// ScanCmd runs an arrears pass and prints open alerts. With --at it only
// previews the alerts as of that date and stores nothing.
func ScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan for overdue rent and print open alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var alerts []ledger.Alert
			at, _ := cmd.Flags().GetString("at")
			if at != "" {
				now, err := time.Parse(time.DateOnly, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				for _, a := range arrears.Refresh(now, s.engine.Snapshot()) {
					if !a.Resolved {
						alerts = append(alerts, a)
					}
				}
				ledger.SortAlerts(alerts)
			} else {
				m := arrears.NewMonitor(s.engine, 0, s.logger)
				if alerts, err = m.Refresh(cmd.Context()); err != nil {
					return err
				}
			}
			printAlerts(cmd.OutOrStdout(), alerts, s.engine.Currency())
			return nil
		},
	}
	cmd.Flags().String("at", "", "preview as of YYYY-MM-DD without saving")
	return cmd
}

func printAlerts(w io.Writer, alerts []ledger.Alert, currency string) {
	if len(alerts) == 0 {
		fmt.Fprintln(w, "no overdue rent")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tDAYS\tDUE\tAMOUNT\tDESCRIPTION")
	for _, a := range alerts {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", a.Priority, a.DaysOverdue,
			a.DueDate.Format(time.DateOnly), types.NewMoney(a.Amount, currency), a.Description)
	}
	tw.Flush()
}

// ScheduleCmd prints the rent schedule a lease would get, without creating it.
func ScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Preview the monthly rent schedule of a lease",
		RunE: func(cmd *cobra.Command, args []string) error {
			startRaw, _ := cmd.Flags().GetString("start")
			endRaw, _ := cmd.Flags().GetString("end")
			rent, _ := cmd.Flags().GetInt64("rent")
			months, _ := cmd.Flags().GetInt("months")
			currency, _ := cmd.Flags().GetString("currency")

			start, err := time.Parse(time.DateOnly, startRaw)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			l := ledger.Lease{StartDate: start, MonthlyRent: rent, DurationMonths: months}
			if endRaw != "" {
				end, err := time.Parse(time.DateOnly, endRaw)
				if err != nil {
					return fmt.Errorf("--end: %w", err)
				}
				l.EndDate = &end
			}
			items, err := ledger.GenerateSchedule(l)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tDUE\tAMOUNT")
			var total int64
			for i, item := range items {
				total += item.Amount
				fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, item.DueDate.Format(time.DateOnly), types.NewMoney(item.Amount, currency))
			}
			fmt.Fprintf(tw, "\ttotal\t%s\n", types.NewMoney(total, currency))
			return tw.Flush()
		},
	}
	cmd.Flags().String("start", "", "lease start date, YYYY-MM-DD")
	cmd.Flags().String("end", "", "lease end date, YYYY-MM-DD")
	cmd.Flags().Int64("rent", 0, "monthly rent in minor units")
	cmd.Flags().Int("months", 12, "duration in months when --end is not set")
	cmd.Flags().String("currency", types.DefaultCurrency, "currency for display")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("rent")
	return cmd
}

func ReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the rent roll, arrears and payments workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			now := s.engine.Now()
			raw, err := report.Workbook(s.engine.Snapshot(), now)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = fmt.Sprintf("fadem_report_%s.xlsx", now.Format(time.DateOnly))
			}
			if err := os.WriteFile(out, raw, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", out)
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "output file")
	return cmd
}

func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print dashboard statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s.engine.Statistics())
		},
	}
}

func writeOutput(cmd *cobra.Command, path string, raw []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(raw)
		return err
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "wrote", path)
	return nil
}
