package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bher20/eratecompare/internal/alerting"
	"github.com/bher20/eratecompare/internal/api"
	"github.com/bher20/eratecompare/internal/config"
	"github.com/bher20/eratecompare/internal/cron"
	"github.com/bher20/eratecompare/internal/importer"
	"github.com/bher20/eratecompare/internal/logger"
	"github.com/bher20/eratecompare/internal/migrate"
	"github.com/bher20/eratecompare/internal/rates"
	"github.com/bher20/eratecompare/internal/storage"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var noWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, closeStore, err := openService(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			if !noWorker {
				w := newWorker(svc, cfg)
				go func() {
					if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						logger.L.Errorw("worker stopped", "error", err)
					}
				}()
			}

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           api.NewMux(svc),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				logger.L.Infow("eRateCompare listening", "addr", srv.Addr, "driver", cfg.DBDriver)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			logger.L.Infow("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "listen port")
	cmd.Flags().StringVar(&cfg.PlansFile, "plans", cfg.PlansFile, "plan document to import on startup")
	cmd.Flags().BoolVar(&noWorker, "no-worker", false, "do not run the revalidation job in-process")
	return cmd
}

func newWorkerCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the catalogue revalidation job on its schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, closeStore, err := openService(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			err = newWorker(svc, cfg).Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&cfg.RevalidateSchedule, "schedule", cfg.RevalidateSchedule, "seconds between runs or a cron expression")
	return cmd
}

// openService opens storage, applies migrations when configured, and seeds
// the catalogue from cfg.PlansFile.
func openService(ctx context.Context, cfg *config.Config) (*rates.Service, func(), error) {
	if cfg.AutoMigrate && cfg.DBDriver != "memory" {
		applied, err := migrate.Up(ctx, cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			logger.L.Errorw("auto-migration failed", "error", err)
		}
		for _, s := range applied {
			logger.L.Infow("schema version applied", "version", s.Version, "name", s.Name)
		}
	}

	st, err := storage.Open(ctx, storage.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	closeStore := func() {
		if err := st.Close(); err != nil {
			logger.L.Warnw("close storage failed", "error", err)
		}
	}
	svc := rates.NewServiceWithStorage(rates.Config{Workers: cfg.Workers}, st)

	if cfg.PlansFile != "" {
		if _, err := importFile(ctx, svc, cfg.PlansFile, true); err != nil {
			closeStore()
			return nil, nil, err
		}
	}
	return svc, closeStore, nil
}

func importFile(ctx context.Context, svc *rates.Service, path string, replace bool) (*rates.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plans: %w", err)
	}
	defer f.Close()

	recs, err := importer.DecodePlans(f)
	if err != nil {
		return nil, err
	}
	res, err := svc.ImportPlans(ctx, recs, rates.ImportOptions{Replace: replace})
	if err != nil {
		return nil, err
	}
	for _, rej := range res.Rejected {
		reason := rej.Error
		if rej.Validation != nil {
			reason = rej.Validation.Reason
		}
		logger.L.Warnw("plan not imported", "supplier", rej.Supplier, "plan", rej.Plan, "reason", reason)
	}
	return res, nil
}

func newWorker(svc *rates.Service, cfg *config.Config) *cron.Worker {
	alerter := alerting.NewAlerter(alerting.AlertConfig{
		WebhookURL:  cfg.AlertWebhookURL,
		WebhookType: cfg.AlertWebhookType,
		MinInvalid:  cfg.AlertMinInvalid,
	})
	return cron.NewWorker(svc, cfg.DBDriver, cfg.RevalidateSchedule, alerter)
}
