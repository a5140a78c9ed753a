package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PointsPerBlock = 100
	PointsBlock    = 50 // currency units spent per block of points
)

// PointsForAmount returns the loyalty points earned for a completed order of
// the given total, rounded down.
func PointsForAmount(amount decimal.Decimal) int64 {
	if !amount.IsPositive() {
		return 0
	}
	return amount.
		Mul(decimal.NewFromInt(PointsPerBlock)).
		Div(decimal.NewFromInt(PointsBlock)).
		Floor().
		IntPart()
}

type PointTransaction struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	OrderID   int64     `db:"order_id"`
	Points    int64     `db:"points"`
	CreatedAt time.Time `db:"created_at"`
}
