package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"restaurant-orders/internal/domain"
)

type MenuRepo interface {
	// FindByIds returns the menu items that exist among ids, keyed by id.
	FindByIds(ctx context.Context, ids []int64) (map[int64]domain.MenuItem, error)
	ListAvailable(ctx context.Context) ([]domain.MenuItem, error)
}

type menuRepo struct {
	db *sqlx.DB
}

func NewMenuRepo(db *sqlx.DB) MenuRepo {
	return &menuRepo{db: db}
}

var findMenuItemsQuery = `SELECT id, name, price, status FROM menu_items WHERE id IN (?)`

func (r *menuRepo) FindByIds(ctx context.Context, ids []int64) (map[int64]domain.MenuItem, error) {
	found := make(map[int64]domain.MenuItem, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	query, args, err := sqlx.In(findMenuItemsQuery, ids)
	if err != nil {
		return nil, err
	}

	var items []domain.MenuItem
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, item := range items {
		found[item.ID] = item
	}
	return found, nil
}

var listAvailableQuery = `SELECT id, name, price, status FROM menu_items WHERE status = $1 ORDER BY name`

func (r *menuRepo) ListAvailable(ctx context.Context) ([]domain.MenuItem, error) {
	items := []domain.MenuItem{}
	err := r.db.SelectContext(ctx, &items, listAvailableQuery, domain.MenuItemAvailable)
	return items, err
}
