package models

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
)

// Payment is money received against an order, in minor currency units.
type Payment struct {
	OrderID        int64  `json:"orderId" validate:"required"`
	Amount         int64  `json:"amount" validate:"gt=0"`
	Method         string `json:"method" validate:"required,max=50"`
	Status         string `json:"status,omitempty" validate:"max=50"`
	TransactionRef string `json:"transactionRef,omitempty" validate:"max=255"`
	PaymentType    string `json:"paymentType,omitempty" validate:"max=50"`
	PaymentBalance *int64 `json:"paymentBalance,omitempty"`
}

func (Payment) Type() EntityType  { return Payments }
func (p Payment) ParentID() int64 { return p.OrderID }
func (Payment) sealed()           {}

func (p Payment) WithParentID(id int64) Entity {
	p.OrderID = id
	return p
}

func (p Payment) Fields() []Field {
	return []Field{
		{"orderId", fmt.Sprintf("%d", p.OrderID)},
		{"amount", fmt.Sprintf("%d", p.Amount)},
		{"method", p.Method},
		{"status", p.Status},
		{"transactionRef", p.TransactionRef},
		{"paymentType", p.PaymentType},
		{"paymentBalance", formatInt(p.PaymentBalance)},
	}
}

func (p Payment) decode(data []byte) (Entity, error) {
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: payment: %v", common.ErrInvalidRecord, err)
	}
	return p, nil
}
