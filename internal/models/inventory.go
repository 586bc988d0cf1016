package models

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
)

// InventoryItem is a stocked material or accessory.
type InventoryItem struct {
	Name          string `json:"name" validate:"required,max=255"`
	Category      string `json:"category,omitempty" validate:"max=100"`
	Quantity      int64  `json:"quantity" validate:"gte=0"`
	Unit          string `json:"unit,omitempty" validate:"max=30"`
	LowStockAlert *int64 `json:"lowStockAlert,omitempty" validate:"omitempty,gte=0"`
}

func (InventoryItem) Type() EntityType            { return Inventory }
func (InventoryItem) ParentID() int64             { return 0 }
func (i InventoryItem) WithParentID(int64) Entity { return i }
func (InventoryItem) sealed()                     {}

// LowStock reports whether the quantity has reached the alert level.
func (i InventoryItem) LowStock() bool {
	return i.LowStockAlert != nil && i.Quantity <= *i.LowStockAlert
}

func (i InventoryItem) Fields() []Field {
	return []Field{
		{"name", i.Name},
		{"category", i.Category},
		{"quantity", fmt.Sprintf("%d", i.Quantity)},
		{"unit", i.Unit},
		{"lowStockAlert", formatInt(i.LowStockAlert)},
	}
}

func (i InventoryItem) decode(data []byte) (Entity, error) {
	if err := json.Unmarshal(data, &i); err != nil {
		return nil, fmt.Errorf("%w: inventory item: %v", common.ErrInvalidRecord, err)
	}
	return i, nil
}
