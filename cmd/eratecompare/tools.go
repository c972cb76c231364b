package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bher20/eratecompare/internal/config"
	"github.com/bher20/eratecompare/internal/importer"
	"github.com/bher20/eratecompare/internal/migrate"
	"github.com/bher20/eratecompare/internal/rates"
	"github.com/bher20/eratecompare/internal/report"
	"github.com/bher20/eratecompare/internal/storage"
	"github.com/bher20/eratecompare/internal/tariff"
)

var errInvalidPlans = errors.New("one or more plans are invalid")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check every plan in a plan document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			recs, err := importer.DecodePlans(f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var seen []tariff.PricePlan
			failed := false
			for i, rec := range recs {
				plan, err := rec.ToPlan()
				if err != nil {
					fmt.Fprintf(out, "%s/%s: %v\n", rec.Supplier, rec.Plan, err)
					failed = true
					continue
				}
				plan.ID = fmt.Sprint(i)
				res := tariff.ValidatePlan(plan, seen)
				fmt.Fprintf(out, "%s: %s (%d) %s\n", plan.IdentityKey(), res, res.Code(), res.Reason())
				if res != tariff.Valid {
					failed = true
				}
				seen = append(seen, plan)
			}
			if failed {
				return errInvalidPlans
			}
			return nil
		},
	}
}

func newCompareCmd(cfg *config.Config) *cobra.Command {
	var (
		plansPath, usagePath string
		from, to             string
		scenario             tariff.Scenario
		breakdown            bool
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Cost a usage CSV against every plan in a plan document",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := rates.NewServiceWithStorage(rates.Config{Workers: cfg.Workers}, storage.NewMemory())
			if _, err := importFile(ctx, svc, plansPath, false); err != nil {
				return err
			}

			f, err := os.Open(usagePath)
			if err != nil {
				return fmt.Errorf("open usage: %w", err)
			}
			defer f.Close()
			readings, err := importer.ReadUsageCSV(f, time.Local)
			if err != nil {
				return err
			}

			req := rates.ComparisonRequest{Scenario: scenario, Readings: readings}
			if req.Window.From, err = parseDate(from); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if req.Window.To, err = parseDate(to); err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			res, err := svc.RunComparison(ctx, req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := report.WriteComparison(out, res); err != nil {
				return err
			}
			if breakdown {
				for _, c := range res.Costings {
					fmt.Fprintf(out, "\n%s/%s\n", c.Supplier, c.Plan)
					if err := report.WriteBreakdown(out, c); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&plansPath, "plans", "", "plan document (JSON)")
	cmd.Flags().StringVar(&usagePath, "usage", "", "usage CSV (timestamp,value,direction)")
	cmd.Flags().StringVar(&from, "from", "", "window start, YYYY-MM-DD or RFC 3339 (default: first reading)")
	cmd.Flags().StringVar(&to, "to", "", "window end, exclusive (default: day after last reading)")
	cmd.Flags().StringVar(&scenario.ID, "scenario", "cli", "scenario id")
	cmd.Flags().BoolVar(&scenario.HasInverter, "inverter", false, "the installation has an inverter (enables deemed export)")
	cmd.Flags().BoolVar(&breakdown, "breakdown", false, "print kWh per unit price for each plan")
	_ = cmd.MarkFlagRequired("plans")
	_ = cmd.MarkFlagRequired("usage")
	return cmd
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	withMigrator := func(fn func(ctx context.Context, m *migrate.Migrator, out io.Writer) error) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, _ []string) error {
			m, err := migrate.Open(cfg.DBDriver, cfg.DBDSN)
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(c.Context(), m, c.OutOrStdout())
		}
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending schema versions",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(ctx context.Context, m *migrate.Migrator, out io.Writer) error {
				applied, err := m.Up(ctx)
				for _, s := range applied {
					fmt.Fprintf(out, "applied %d %s (%s)\n", s.Version, s.Name, s.Duration.Round(time.Millisecond))
				}
				if err == nil && len(applied) == 0 {
					fmt.Fprintln(out, "schema is up to date")
				}
				return err
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(ctx context.Context, m *migrate.Migrator, out io.Writer) error {
				s, err := m.Down(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "rolled back %d %s\n", s.Version, s.Name)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List schema versions and whether they are applied",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(ctx context.Context, m *migrate.Migrator, out io.Writer) error {
				list, err := m.Status(ctx)
				if err != nil {
					return err
				}
				return report.WriteMigrations(out, list)
			}),
		},
	)
	return cmd
}
