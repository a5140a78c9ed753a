package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"restaurant-orders/internal/domain"
)

type LoyaltyRepo interface {
	// AwardPoints records tr and credits the customer. It reports false when
	// the order was already credited.
	AwardPoints(ctx context.Context, tx *sqlx.Tx, tr *domain.PointTransaction) (bool, error)
	TotalPoints(ctx context.Context, userID int64) (int64, error)
}

type loyaltyRepo struct {
	db *sqlx.DB
}

func NewLoyaltyRepo(db *sqlx.DB) LoyaltyRepo {
	return &loyaltyRepo{db: db}
}

var insertPointTransactionQuery = `
	INSERT INTO point_transactions (user_id, order_id, points)
	VALUES ($1, $2, $3)
	ON CONFLICT (order_id) DO NOTHING
	RETURNING id, created_at`

var creditLoyaltyQuery = `
	INSERT INTO customer_loyalty (user_id, total_points, lifetime_points)
	VALUES ($1, $2, $2)
	ON CONFLICT (user_id) DO UPDATE SET
		total_points = customer_loyalty.total_points + EXCLUDED.total_points,
		lifetime_points = customer_loyalty.lifetime_points + EXCLUDED.lifetime_points,
		updated_at = now()`

func (r *loyaltyRepo) AwardPoints(ctx context.Context, tx *sqlx.Tx, tr *domain.PointTransaction) (bool, error) {
	err := tx.QueryRowxContext(ctx, insertPointTransactionQuery, tr.UserID, tr.OrderID, tr.Points).
		Scan(&tr.ID, &tr.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := tx.ExecContext(ctx, creditLoyaltyQuery, tr.UserID, tr.Points); err != nil {
		return false, err
	}
	return true, nil
}

func (r *loyaltyRepo) TotalPoints(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total, `SELECT total_points FROM customer_loyalty WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return total, err
}
