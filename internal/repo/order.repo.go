package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"restaurant-orders/internal/domain"
)

type OrderRepo interface {
	FindById(ctx context.Context, id int64) (*domain.Order, error)
	// FindByIdForUpdate locks the order row until tx ends.
	FindByIdForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Order, error)
	// ListByUser returns a customer's orders, newest first.
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	CreateOrder(ctx context.Context, tx *sqlx.Tx, order *domain.Order) error
	UpdateOrderStatus(ctx context.Context, tx *sqlx.Tx, order *domain.Order) error
	// ReplaceItems swaps the order's line items for items. The stored total is
	// left alone until RecomputeTotal runs.
	ReplaceItems(ctx context.Context, tx *sqlx.Tx, id int64, items []domain.OrderLineItem) error
	UpdateNotes(ctx context.Context, tx *sqlx.Tx, id int64, notes string) error
	RecomputeTotal(ctx context.Context, tx *sqlx.Tx, id int64) (decimal.Decimal, error)
	// FindNonCanonicalStatuses lists distinct stored statuses outside the canonical set.
	FindNonCanonicalStatuses(ctx context.Context) ([]string, error)
	RewriteStatus(ctx context.Context, tx *sqlx.Tx, from string, to domain.OrderStatus) (int64, error)
}

type orderRepo struct {
	db *sqlx.DB
}

func NewOrderRepo(db *sqlx.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, user_id, table_id, status, total_amount, notes, created_at, updated_at, completed_at`

var findOrderQuery = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

var findOrderItemsQuery = `
	SELECT oi.id, oi.order_id, oi.menu_item_id, COALESCE(m.name, '') AS name,
	       oi.quantity, oi.unit_price, oi.note
	FROM order_items oi
	LEFT JOIN menu_items m ON m.id = oi.menu_item_id
	WHERE oi.order_id = $1
	ORDER BY oi.id`

func (r *orderRepo) FindById(ctx context.Context, id int64) (*domain.Order, error) {
	return r.find(ctx, r.db, findOrderQuery, id)
}

func (r *orderRepo) FindByIdForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Order, error) {
	return r.find(ctx, tx, findOrderQuery+` FOR UPDATE`, id)
}

func (r *orderRepo) find(ctx context.Context, q sqlx.QueryerContext, query string, id int64) (*domain.Order, error) {
	var order domain.Order
	err := sqlx.GetContext(ctx, q, &order, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	normalize(&order)

	if err := sqlx.SelectContext(ctx, q, &order.Items, findOrderItemsQuery, id); err != nil {
		return nil, err
	}
	return &order, nil
}

func normalize(order *domain.Order) {
	order.StoredStatus = order.Status
	order.Status = domain.NormalizeStatus(string(order.Status))
}

var listByUserQuery = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

var listAllQuery = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id DESC`

var listOrderItemsQuery = `
	SELECT oi.id, oi.order_id, oi.menu_item_id, COALESCE(m.name, '') AS name,
	       oi.quantity, oi.unit_price, oi.note
	FROM order_items oi
	LEFT JOIN menu_items m ON m.id = oi.menu_item_id
	WHERE oi.order_id IN (?)
	ORDER BY oi.id`

func (r *orderRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	return r.list(ctx, listByUserQuery, userID)
}

func (r *orderRepo) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, listAllQuery)
}

func (r *orderRepo) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	orders := []domain.Order{}
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*domain.Order, len(orders))
	for i := range orders {
		normalize(&orders[i])
		orders[i].Items = []domain.OrderLineItem{}
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}

	q, qargs, err := sqlx.In(listOrderItemsQuery, ids)
	if err != nil {
		return nil, err
	}
	var items []domain.OrderLineItem
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(q), qargs...); err != nil {
		return nil, err
	}
	for _, item := range items {
		o := byID[item.OrderID]
		o.Items = append(o.Items, item)
	}
	return orders, nil
}

var createOrderQuery = `
	INSERT INTO orders (user_id, table_id, status, total_amount, notes)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at, updated_at`

var createOrderItemQuery = `
	INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price, note)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id`

// CreateOrder inserts the order and its line items, filling in generated ids.
func (r *orderRepo) CreateOrder(ctx context.Context, tx *sqlx.Tx, order *domain.Order) error {
	order.Status = domain.NormalizeStatus(string(order.Status))

	err := tx.QueryRowxContext(ctx, createOrderQuery,
		order.UserID, order.TableID, order.Status, order.TotalAmount, order.Notes,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return err
	}
	return insertItems(ctx, tx, order.ID, order.Items)
}

func insertItems(ctx context.Context, tx *sqlx.Tx, orderID int64, items []domain.OrderLineItem) error {
	for i := range items {
		item := &items[i]
		item.OrderID = orderID
		err := tx.QueryRowxContext(ctx, createOrderItemQuery,
			item.OrderID, item.MenuItemID, item.Quantity, item.UnitPrice, item.Note,
		).Scan(&item.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

var updateOrderStatusQuery = `
	UPDATE orders
	SET status = $1, completed_at = $2, updated_at = now()
	WHERE id = $3
	RETURNING updated_at`

func (r *orderRepo) UpdateOrderStatus(ctx context.Context, tx *sqlx.Tx, order *domain.Order) error {
	order.Status = domain.NormalizeStatus(string(order.Status))
	err := tx.QueryRowxContext(ctx, updateOrderStatusQuery, order.Status, order.CompletedAt, order.ID).
		Scan(&order.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	order.StoredStatus = order.Status
	return nil
}

var deleteOrderItemsQuery = `DELETE FROM order_items WHERE order_id = $1`

func (r *orderRepo) ReplaceItems(ctx context.Context, tx *sqlx.Tx, id int64, items []domain.OrderLineItem) error {
	if _, err := tx.ExecContext(ctx, deleteOrderItemsQuery, id); err != nil {
		return err
	}
	return insertItems(ctx, tx, id, items)
}

var updateNotesQuery = `UPDATE orders SET notes = $1, updated_at = now() WHERE id = $2`

func (r *orderRepo) UpdateNotes(ctx context.Context, tx *sqlx.Tx, id int64, notes string) error {
	res, err := tx.ExecContext(ctx, updateNotesQuery, notes, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

var recomputeTotalQuery = `
	UPDATE orders
	SET total_amount = (
		SELECT COALESCE(SUM(unit_price * quantity), 0) FROM order_items WHERE order_id = $1
	), updated_at = now()
	WHERE id = $1
	RETURNING total_amount`

func (r *orderRepo) RecomputeTotal(ctx context.Context, tx *sqlx.Tx, id int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := tx.QueryRowxContext(ctx, recomputeTotalQuery, id).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, domain.ErrOrderNotFound
	}
	return total, err
}

var findNonCanonicalStatusesQuery = `
	SELECT DISTINCT status FROM orders
	WHERE NOT (status = ANY($1))
	ORDER BY status`

func (r *orderRepo) FindNonCanonicalStatuses(ctx context.Context) ([]string, error) {
	canonical := make([]string, 0, len(domain.CanonicalStatuses))
	for _, s := range domain.CanonicalStatuses {
		canonical = append(canonical, string(s))
	}

	var statuses []string
	if err := r.db.SelectContext(ctx, &statuses, findNonCanonicalStatusesQuery, canonical); err != nil {
		return nil, err
	}
	return statuses, nil
}

var rewriteStatusQuery = `UPDATE orders SET status = $1, updated_at = now() WHERE status = $2`

func (r *orderRepo) RewriteStatus(ctx context.Context, tx *sqlx.Tx, from string, to domain.OrderStatus) (int64, error) {
	res, err := tx.ExecContext(ctx, rewriteStatusQuery, domain.NormalizeStatus(string(to)), from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
