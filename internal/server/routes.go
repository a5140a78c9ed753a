package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/service"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), logger.Middleware(s.log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", logger.RequestIDHeader},
		ExposeHeaders:    []string{logger.RequestIDHeader},
		AllowCredentials: true,
	}))

	r.GET("/health", s.healthHandler)

	api := r.Group("/api")
	api.GET("/menu", s.menuHandler)
	api.POST("/cart/validate", s.validateCartHandler)
	api.GET("/orders", s.listOrdersHandler)
	api.POST("/orders", s.createOrderHandler)
	api.GET("/orders/:id", s.getOrderHandler)
	api.PUT("/orders/:id", s.editOrderHandler)
	api.PATCH("/orders/:id/status", s.updateStatusHandler)
	api.POST("/orders/:id/recompute-total", s.recomputeTotalHandler)
	api.GET("/users/:id/orders", s.userOrdersHandler)
	api.GET("/users/:id/loyalty", s.loyaltyHandler)

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	stats := s.health.Health(c.Request.Context())
	code := http.StatusOK
	if stats["status"] != "up" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, stats)
}

func (s *Server) menuHandler(c *gin.Context) {
	items, err := s.orders.ListMenu(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type validateCartRequest struct {
	Items []domain.CartEntry `json:"items" binding:"dive"`
}

func (s *Server) validateCartHandler(c *gin.Context) {
	var req validateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accepted, rejected := s.orders.ValidateCart(req.Items)
	c.JSON(http.StatusOK, gin.H{"accepted": accepted, "rejected": rejected})
}

func (s *Server) createOrderHandler(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.orders.CreateOrder(c.Request.Context(), req)
	if err != nil {
		s.writeOrderError(c, res, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) editOrderHandler(c *gin.Context) {
	id, ok := pathID(c, "order")
	if !ok {
		return
	}
	var req service.EditOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.orders.EditOrder(c.Request.Context(), id, req)
	if err != nil {
		s.writeOrderError(c, res, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// writeOrderError reports an empty order together with the entries that were
// left out of it.
func (s *Server) writeOrderError(c *gin.Context, res *service.OrderResult, err error) {
	if errors.Is(err, domain.ErrEmptyOrder) && res != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    err.Error(),
			"rejected": res.Rejected,
			"dropped":  res.Dropped,
		})
		return
	}
	s.writeError(c, err)
}

func (s *Server) listOrdersHandler(c *gin.Context) {
	orders, err := s.orders.ListOrders(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) userOrdersHandler(c *gin.Context) {
	userID, ok := pathID(c, "user")
	if !ok {
		return
	}
	orders, err := s.orders.ListUserOrders(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) loyaltyHandler(c *gin.Context) {
	userID, ok := pathID(c, "user")
	if !ok {
		return
	}
	points, err := s.orders.LoyaltyBalance(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "total_points": points})
}

func (s *Server) getOrderHandler(c *gin.Context) {
	id, ok := pathID(c, "order")
	if !ok {
		return
	}
	order, err := s.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) updateStatusHandler(c *gin.Context) {
	id, ok := pathID(c, "order")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := s.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": order.ID, "status": order.Status})
}

func (s *Server) recomputeTotalHandler(c *gin.Context) {
	id, ok := pathID(c, "order")
	if !ok {
		return
	}
	order, err := s.orders.RecomputeTotal(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": order.ID, "total": order.TotalAmount})
}

func pathID(c *gin.Context, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + " id"})
		return 0, false
	}
	return id, true
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and reported as a 500 without its details.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrOrderClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrEmptyOrder):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		logger.FromContext(s.log, c).WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
