package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
)

// EntityType names one of the four record tables.
type EntityType string

const (
	Clients   EntityType = "clients"
	Orders    EntityType = "orders"
	Inventory EntityType = "inventory"
	Payments  EntityType = "payments"
)

// All returns every entity type, parents before the types referencing them.
func All() []EntityType {
	return []EntityType{Clients, Inventory, Orders, Payments}
}

// ParseEntityType accepts table names and their singular forms.
func ParseEntityType(s string) (EntityType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clients", "client":
		return Clients, nil
	case "orders", "order":
		return Orders, nil
	case "inventory", "item", "items":
		return Inventory, nil
	case "payments", "payment":
		return Payments, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrUnknownEntity, s)
	}
}

func (t EntityType) Valid() bool {
	switch t {
	case Clients, Orders, Inventory, Payments:
		return true
	}
	return false
}

// Parent returns the entity type t references, if any.
func (t EntityType) Parent() (EntityType, bool) {
	switch t {
	case Orders:
		return Clients, true
	case Payments:
		return Orders, true
	}
	return "", false
}

// Children returns the types holding references to t.
func (t EntityType) Children() []EntityType {
	switch t {
	case Clients:
		return []EntityType{Orders}
	case Orders:
		return []EntityType{Payments}
	}
	return nil
}

// Singular is used in user-facing messages.
func (t EntityType) Singular() string {
	switch t {
	case Clients:
		return "client"
	case Orders:
		return "order"
	case Inventory:
		return "inventory item"
	case Payments:
		return "payment"
	}
	return string(t)
}

// Entity is the field set of one record. It is implemented only by Client,
// Order, InventoryItem and Payment.
type Entity interface {
	Type() EntityType

	// ParentID returns the id of the referenced parent record, 0 if the type
	// has no parent.
	ParentID() int64

	// WithParentID returns a copy pointing at a different parent record.
	// Types without a parent return themselves unchanged.
	WithParentID(id int64) Entity

	// Fields lists the entity's fields in display order.
	Fields() []Field

	sealed()
}

// Field is a named, display-formatted entity value.
type Field struct {
	Name  string
	Value string
}

// New returns the zero entity of type t.
func New(t EntityType) (Entity, error) {
	switch t {
	case Clients:
		return Client{}, nil
	case Orders:
		return Order{}, nil
	case Inventory:
		return InventoryItem{}, nil
	case Payments:
		return Payment{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownEntity, string(t))
	}
}

// Marshal encodes the entity fields as a JSON object.
func Marshal(e Entity) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil entity", common.ErrInvalidRecord)
	}
	return json.Marshal(e)
}

// Unmarshal decodes a JSON object into the entity type t.
func Unmarshal(t EntityType, data []byte) (Entity, error) {
	switch t {
	case Clients:
		var v Client
		return v.decode(data)
	case Orders:
		var v Order
		return v.decode(data)
	case Inventory:
		var v InventoryItem
		return v.decode(data)
	case Payments:
		var v Payment
		return v.decode(data)
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownEntity, string(t))
	}
}

// FieldValue looks up a field by name; ok is false for unknown names.
func FieldValue(e Entity, name string) (string, bool) {
	for _, f := range e.Fields() {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Comparable names the fields shown side by side when a record conflicts.
func Comparable(t EntityType) []string {
	switch t {
	case Clients:
		return []string{"name", "phone", "email", "notes"}
	case Orders:
		return []string{"description", "status", "dueDate", "totalPrice"}
	case Inventory:
		return []string{"name", "category", "quantity", "unit"}
	case Payments:
		return []string{"amount", "method", "status", "paymentType", "paymentBalance"}
	}
	return nil
}

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func formatMeasure(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}
