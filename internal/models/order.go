package models

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
)

// DateLayout is the format of Order.DueDate.
const DateLayout = "2006-01-02"

// Order is a piece of work for a client. TotalPrice is in minor currency
// units (pesewas).
type Order struct {
	ClientID    int64  `json:"clientId" validate:"required"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status" validate:"required,max=50"`
	DueDate     string `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TotalPrice  *int64 `json:"totalPrice,omitempty" validate:"omitempty,gte=0"`
	ImageURL    string `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

func (Order) Type() EntityType  { return Orders }
func (o Order) ParentID() int64 { return o.ClientID }
func (Order) sealed()           {}

func (o Order) WithParentID(id int64) Entity {
	o.ClientID = id
	return o
}

func (o Order) Fields() []Field {
	return []Field{
		{"clientId", fmt.Sprintf("%d", o.ClientID)},
		{"description", o.Description},
		{"status", o.Status},
		{"dueDate", o.DueDate},
		{"totalPrice", formatInt(o.TotalPrice)},
		{"imageUrl", o.ImageURL},
	}
}

func (o Order) decode(data []byte) (Entity, error) {
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("%w: order: %v", common.ErrInvalidRecord, err)
	}
	return o, nil
}
