package domain

import "github.com/shopspring/decimal"

type MenuItemStatus string

const (
	MenuItemAvailable    MenuItemStatus = "available"
	MenuItemOutOfStock   MenuItemStatus = "out_of_stock"
	MenuItemDiscontinued MenuItemStatus = "discontinued"
)

type MenuItem struct {
	ID     int64           `db:"id" json:"item_id"`
	Name   string          `db:"name" json:"name"`
	Price  decimal.Decimal `db:"price" json:"price"`
	Status MenuItemStatus  `db:"status" json:"status"`
}

func (m MenuItem) IsAvailable() bool {
	return m.Status == MenuItemAvailable
}
