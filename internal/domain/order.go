package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderNew        OrderStatus = "new"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderRejected   OrderStatus = "rejected"
	OrderCancelled  OrderStatus = "cancelled"
)

// CanonicalStatuses lists every status an order may be stored with.
var CanonicalStatuses = []OrderStatus{
	OrderNew,
	OrderProcessing,
	OrderCompleted,
	OrderRejected,
	OrderCancelled,
}

// legacy kitchen workflow statuses, collapsed into the single in-progress state
var legacyStatuses = map[string]OrderStatus{
	"preparing": OrderProcessing,
	"ready":     OrderProcessing,
}

// NormalizeStatus maps any status token to a canonical status.
// Canonical values match case-insensitively, legacy synonyms collapse into
// processing, and anything unrecognised falls back to processing so an order is
// never left in a state nothing downstream can act on.
func NormalizeStatus(token string) OrderStatus {
	folded := strings.ToLower(token)
	for _, s := range CanonicalStatuses {
		if folded == string(s) {
			return s
		}
	}
	if s, ok := legacyStatuses[folded]; ok {
		return s
	}
	return OrderProcessing
}

// IsCanonical reports whether s is stored exactly as one of the canonical values.
func (s OrderStatus) IsCanonical() bool {
	for _, c := range CanonicalStatuses {
		if s == c {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderRejected || s == OrderCancelled
}

var transitions = map[OrderStatus][]OrderStatus{
	OrderNew:        {OrderProcessing, OrderRejected, OrderCancelled},
	OrderProcessing: {OrderCompleted, OrderRejected, OrderCancelled},
}

// CheckTransition returns a *TransitionError when an order may not move from
// one status to the other. Re-applying the current status is always allowed.
func CheckTransition(from, to OrderStatus) error {
	if from == to {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}

type Order struct {
	ID          int64           `db:"id" json:"order_id"`
	UserID      int64           `db:"user_id" json:"user_id"`
	TableID     *int64          `db:"table_id" json:"table_id,omitempty"`
	Status      OrderStatus     `db:"status" json:"status"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total"`
	Notes       string          `db:"notes" json:"notes"`
	Items       []OrderLineItem `db:"-" json:"items"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`

	// StoredStatus is the status column exactly as read, before normalization.
	StoredStatus OrderStatus `db:"-" json:"-"`
}

type OrderLineItem struct {
	ID         int64           `db:"id" json:"id"`
	OrderID    int64           `db:"order_id" json:"order_id"`
	MenuItemID int64           `db:"menu_item_id" json:"item_id"`
	Name       string          `db:"name" json:"name,omitempty"`
	Quantity   int             `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	Note       string          `db:"note" json:"note,omitempty"`
}

func (li OrderLineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// CalculateTotal sums the line items and stores the result on the order.
func (o *Order) CalculateTotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range o.Items {
		total = total.Add(li.Subtotal())
	}
	o.TotalAmount = total
	return total
}
