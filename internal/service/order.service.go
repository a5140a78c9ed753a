package service

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/repo"
)

type OrderService interface {
	ValidateCart(entries []domain.CartEntry) (accepted, rejected []domain.CartEntry)
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error)
	EditOrder(ctx context.Context, id int64, req EditOrderRequest) (*OrderResult, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListUserOrders(ctx context.Context, userID int64) ([]domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*domain.Order, error)
	RecomputeTotal(ctx context.Context, id int64) (*domain.Order, error)
	LoyaltyBalance(ctx context.Context, userID int64) (int64, error)
	ListMenu(ctx context.Context) ([]domain.MenuItem, error)
}

type CreateOrderRequest struct {
	UserID  int64              `json:"user_id" binding:"required,gt=0"`
	TableID *int64             `json:"table_id,omitempty" binding:"omitempty,gt=0"`
	Notes   string             `json:"notes"`
	Items   []domain.CartEntry `json:"items" binding:"dive"`
}

// EditOrderRequest changes an open order. A nil Items keeps the current line
// items, while an empty one is treated as an empty cart. A nil Notes keeps the
// current notes.
type EditOrderRequest struct {
	Items []domain.CartEntry `json:"items" binding:"omitempty,dive"`
	Notes *string            `json:"notes"`
}

// DroppedEntry is a plausible cart entry that could not become a line item.
type DroppedEntry struct {
	Entry  domain.CartEntry `json:"entry"`
	Reason string           `json:"reason"`
	Err    error            `json:"-"`
}

// OrderResult carries the created or edited order together with every cart
// entry left out of it. On ErrEmptyOrder, Order is nil but the other fields
// are set.
type OrderResult struct {
	Order    *domain.Order      `json:"order"`
	Rejected []domain.CartEntry `json:"rejected"`
	Dropped  []DroppedEntry     `json:"dropped"`
}

type orderService struct {
	tx          repo.Transactor
	orderRepo   repo.OrderRepo
	menuRepo    repo.MenuRepo
	loyaltyRepo repo.LoyaltyRepo
	log         logrus.FieldLogger
	threshold   int64
	now         func() time.Time
}

func NewOrderService(
	tx repo.Transactor,
	orderRepo repo.OrderRepo,
	menuRepo repo.MenuRepo,
	loyaltyRepo repo.LoyaltyRepo,
	log logrus.FieldLogger,
	itemIDThreshold int64,
) OrderService {
	return &orderService{
		tx:          tx,
		orderRepo:   orderRepo,
		menuRepo:    menuRepo,
		loyaltyRepo: loyaltyRepo,
		log:         log,
		threshold:   itemIDThreshold,
		now:         time.Now,
	}
}

func (s *orderService) ValidateCart(entries []domain.CartEntry) (accepted, rejected []domain.CartEntry) {
	return domain.ValidateCart(entries, s.threshold)
}

func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	result := &OrderResult{Dropped: []DroppedEntry{}}
	items, err := s.buildItems(ctx, req.Items, result, logrus.Fields{"user_id": req.UserID})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return result, domain.ErrEmptyOrder
	}

	order := &domain.Order{
		UserID:  req.UserID,
		TableID: req.TableID,
		Status:  domain.OrderNew,
		Notes:   req.Notes,
		Items:   items,
	}
	order.CalculateTotal()

	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		return s.orderRepo.CreateOrder(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"action":   "order_created",
		"order_id": order.ID,
		"user_id":  order.UserID,
		"items":    len(order.Items),
		"total":    order.TotalAmount.StringFixed(2),
	}).Info("order created")

	result.Order = order
	return result, nil
}

// buildItems turns cart entries into priced line items. Implausible ids end up
// in result.Rejected, and entries missing from the catalog or unavailable end
// up in result.Dropped. Unit prices are taken from the catalog as it is now.
func (s *orderService) buildItems(
	ctx context.Context,
	entries []domain.CartEntry,
	result *OrderResult,
	fields logrus.Fields,
) ([]domain.OrderLineItem, error) {
	accepted, rejected := s.ValidateCart(entries)
	result.Rejected = rejected

	log := s.log.WithFields(fields)
	if len(rejected) > 0 {
		log.WithFields(logrus.Fields{"action": "cart_validation", "rejected": len(rejected)}).
			Warn("rejected cart entries with implausible item ids")
	}
	if len(accepted) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(accepted))
	for _, e := range accepted {
		ids = append(ids, e.ItemID.Value)
	}
	menu, err := s.menuRepo.FindByIds(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderLineItem, 0, len(accepted))
	for _, e := range accepted {
		item, ok := menu[e.ItemID.Value]
		switch {
		case !ok:
			result.drop(e, domain.ErrMenuItemNotFound)
			continue
		case !item.IsAvailable():
			result.drop(e, domain.ErrMenuItemUnavailable)
			continue
		}

		items = append(items, domain.OrderLineItem{
			MenuItemID: item.ID,
			Name:       item.Name,
			Quantity:   max(1, e.Quantity),
			UnitPrice:  item.Price,
			Note:       e.Note,
		})
	}

	for _, d := range result.Dropped {
		log.WithFields(logrus.Fields{
			"action":  "order_item_dropped",
			"item_id": d.Entry.ItemID.String(),
		}).WithError(d.Err).Warn("dropped cart entry")
	}
	return items, nil
}

func (r *OrderResult) drop(e domain.CartEntry, reason error) {
	err := &domain.MenuItemError{ItemID: e.ItemID.Value, Err: reason}
	r.Dropped = append(r.Dropped, DroppedEntry{Entry: e, Reason: err.Error(), Err: err})
}

// EditOrder replaces the line items and notes of an order that has not reached
// a terminal status. New items are validated and priced exactly as in
// CreateOrder, and the stored total is recomputed from them.
func (s *orderService) EditOrder(ctx context.Context, id int64, req EditOrderRequest) (*OrderResult, error) {
	result := &OrderResult{Rejected: []domain.CartEntry{}, Dropped: []DroppedEntry{}}
	log := s.log.WithFields(logrus.Fields{"action": "order_edit", "order_id": id})

	var items []domain.OrderLineItem
	if req.Items != nil {
		var err error
		items, err = s.buildItems(ctx, req.Items, result, logrus.Fields{"order_id": id})
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return result, domain.ErrEmptyOrder
		}
	}

	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		order, err := s.orderRepo.FindByIdForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return domain.ErrOrderClosed
		}

		if items != nil {
			if err := s.orderRepo.ReplaceItems(ctx, tx, id, items); err != nil {
				return err
			}
			if _, err := s.orderRepo.RecomputeTotal(ctx, tx, id); err != nil {
				return err
			}
		}
		if req.Notes != nil {
			return s.orderRepo.UpdateNotes(ctx, tx, id, *req.Notes)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrOrderClosed) {
			log.WithError(err).Warn("rejected order edit")
		}
		return nil, err
	}

	order, err := s.orderRepo.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"items": len(order.Items),
		"total": order.TotalAmount.StringFixed(2),
	}).Info("order edited")

	result.Order = order
	return result, nil
}

func (s *orderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return s.orderRepo.FindById(ctx, id)
}

func (s *orderService) ListUserOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

func (s *orderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.orderRepo.ListAll(ctx)
}

// UpdateStatus normalizes status and moves the order to it under a row lock.
// Moving into completed also credits the customer's loyalty points, once.
func (s *orderService) UpdateStatus(ctx context.Context, id int64, status string) (*domain.Order, error) {
	target := domain.NormalizeStatus(status)
	log := s.log.WithFields(logrus.Fields{
		"action":    "order_status_update",
		"order_id":  id,
		"requested": status,
		"target":    target,
	})

	var updated *domain.Order
	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		order, err := s.orderRepo.FindByIdForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		from := order.Status
		if err := domain.CheckTransition(from, target); err != nil {
			return err
		}
		updated = order
		if from == target {
			if order.StoredStatus.IsCanonical() {
				return nil
			}
			// stored under a legacy spelling, write the canonical one back
			return s.orderRepo.UpdateOrderStatus(ctx, tx, order)
		}

		order.Status = target
		if target == domain.OrderCompleted {
			now := s.now().UTC()
			order.CompletedAt = &now
		}
		if err := s.orderRepo.UpdateOrderStatus(ctx, tx, order); err != nil {
			return err
		}

		if target == domain.OrderCompleted {
			return s.awardPoints(ctx, tx, order, log)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			log.WithError(err).Warn("rejected status transition")
		}
		return nil, err
	}

	log.WithField("status", updated.Status).Info("order status updated")
	return updated, nil
}

func (s *orderService) awardPoints(ctx context.Context, tx *sqlx.Tx, order *domain.Order, log logrus.FieldLogger) error {
	points := domain.PointsForAmount(order.TotalAmount)
	if points == 0 {
		return nil
	}

	awarded, err := s.loyaltyRepo.AwardPoints(ctx, tx, &domain.PointTransaction{
		UserID:  order.UserID,
		OrderID: order.ID,
		Points:  points,
	})
	if err != nil {
		return err
	}
	if awarded {
		log.WithFields(logrus.Fields{"user_id": order.UserID, "points": points}).Info("awarded loyalty points")
	}
	return nil
}

func (s *orderService) RecomputeTotal(ctx context.Context, id int64) (*domain.Order, error) {
	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.orderRepo.RecomputeTotal(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.orderRepo.FindById(ctx, id)
}

// LoyaltyBalance is the customer's spendable points. Customers who never
// earned any have a balance of zero.
func (s *orderService) LoyaltyBalance(ctx context.Context, userID int64) (int64, error) {
	return s.loyaltyRepo.TotalPoints(ctx, userID)
}

func (s *orderService) ListMenu(ctx context.Context) ([]domain.MenuItem, error) {
	return s.menuRepo.ListAvailable(ctx)
}
