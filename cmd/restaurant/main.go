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

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"restaurant-orders/internal/config"
	"restaurant-orders/internal/database"
	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/repo"
	"restaurant-orders/internal/server"
	"restaurant-orders/internal/service"
	"restaurant-orders/internal/worker"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "restaurant",
		Short:         "restaurant order intake service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		serveCommand(),
		migrateCommand(),
		normalizeStatusesCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.New(cfg.LogLevel), nil
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run migrations, normalize stored statuses and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := database.Migrate(cfg.MigrateURL(), log); err != nil {
				return err
			}
			db, err := database.New(ctx, cfg.DatabaseURL(), log)
			if err != nil {
				return err
			}
			defer db.Close()

			tx := repo.NewTransactor(db.DB())
			orderRepo := repo.NewOrderRepo(db.DB())
			menuRepo := repo.NewMenuRepo(db.DB())
			loyaltyRepo := repo.NewLoyaltyRepo(db.DB())

			reconciler := worker.NewStatusReconciler(tx, orderRepo, log, cfg.ReconcileInterval)
			if _, err := reconciler.RunOnce(ctx); err != nil {
				return err
			}
			go reconciler.Run(ctx)

			orderService := service.NewOrderService(tx, orderRepo, menuRepo, loyaltyRepo, log, cfg.CartItemIDThreshold)

			gin.SetMode(gin.ReleaseMode)
			httpServer := server.New(cfg, orderService, db, log).HTTPServer()

			errCh := make(chan error, 1)
			go func() {
				log.WithFields(logrus.Fields{"action": "service_started", "port": cfg.Port}).Info("http server listening")
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
			case <-ctx.Done():
			}

			log.WithField("action", "graceful_shutdown").Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-up",
		Short: "migrate all the way up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			return database.Migrate(cfg.MigrateURL(), log)
		},
	}
}

func normalizeStatusesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize-statuses",
		Short: "rewrite stored order statuses outside the canonical set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			db, err := database.New(cmd.Context(), cfg.DatabaseURL(), log)
			if err != nil {
				return err
			}
			defer db.Close()

			reconciler := worker.NewStatusReconciler(repo.NewTransactor(db.DB()), repo.NewOrderRepo(db.DB()), log, 0)
			rewrites, err := reconciler.RunOnce(cmd.Context())
			for _, rw := range rewrites {
				fmt.Printf("%q -> %q (%d orders)\n", rw.From, rw.To, rw.Rows)
			}
			if err != nil {
				return err
			}
			if len(rewrites) == 0 {
				fmt.Println("All status values are valid")
			}
			return nil
		},
	}
}
