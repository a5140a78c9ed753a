package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"restaurant-orders/internal/config"
	"restaurant-orders/internal/service"
)

// HealthChecker reports the state of a backing store.
type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

type Server struct {
	cfg    *config.Config
	orders service.OrderService
	health HealthChecker
	log    logrus.FieldLogger
}

func New(cfg *config.Config, orders service.OrderService, health HealthChecker, log logrus.FieldLogger) *Server {
	return &Server{cfg: cfg, orders: orders, health: health, log: log}
}

// HTTPServer wraps the routes in an http.Server listening on the configured port.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
