package records

import (
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

type scanner interface {
	Scan(dest ...any) error
}

// table maps one entity type onto its PostgreSQL table.
type table struct {
	name    string
	columns []string
	// parentTable/parentColumn describe the reference the entity holds, if any.
	parentTable  string
	parentColumn string
	// child is the table referencing this one, if any.
	childTable  string
	childColumn string
	values      func(models.Entity) ([]any, error)
	scan        func(s scanner) (models.Canonical, error)
}

func tableFor(t models.EntityType) (*table, error) {
	switch t {
	case models.Clients:
		return &clientsTable, nil
	case models.Orders:
		return &ordersTable, nil
	case models.Inventory:
		return &inventoryTable, nil
	case models.Payments:
		return &paymentsTable, nil
	}
	return nil, fmt.Errorf("%w: %q", common.ErrUnknownEntity, string(t))
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func wrongType(want models.EntityType, e models.Entity) error {
	return fmt.Errorf("%w: want %s, got %T", common.ErrInvalidRecord, want.Singular(), e)
}

var clientsTable = table{
	name: "clients",
	columns: []string{
		"name", "phone", "email",
		"neck", "chest", "bust", "waist", "hips", "thigh", "inseam", "arm_length",
		"outseam", "ankle", "shoulder", "sleeve_length", "knee", "wrist", "rise", "bicep",
		"notes",
	},
	childTable:  "orders",
	childColumn: "client_id",
	values: func(e models.Entity) ([]any, error) {
		c, ok := e.(models.Client)
		if !ok {
			return nil, wrongType(models.Clients, e)
		}
		m := c.Measurements
		return []any{
			c.Name, nullString(c.Phone), nullString(c.Email),
			nullInt(m.Neck), nullInt(m.Chest), nullInt(m.Bust), nullInt(m.Waist), nullInt(m.Hips),
			nullInt(m.Thigh), nullInt(m.Inseam), nullInt(m.ArmLength), nullInt(m.Outseam), nullInt(m.Ankle),
			nullInt(m.Shoulder), nullInt(m.SleeveLength), nullInt(m.Knee), nullInt(m.Wrist), nullInt(m.Rise),
			nullInt(m.Bicep),
			nullString(c.Notes),
		}, nil
	},
	scan: func(s scanner) (models.Canonical, error) {
		var (
			cn                  models.Canonical
			ref                 sql.NullString
			phone, email, notes sql.NullString
			ms                  [16]sql.NullInt64
			c                   models.Client
		)
		dest := []any{&cn.ID, &ref, &cn.UpdatedAt, &c.Name, &phone, &email}
		for i := range ms {
			dest = append(dest, &ms[i])
		}
		dest = append(dest, &notes)
		if err := s.Scan(dest...); err != nil {
			return cn, err
		}
		c.Phone, c.Email, c.Notes = phone.String, email.String, notes.String
		c.Measurements = models.Measurements{
			Neck: intPtr(ms[0]), Chest: intPtr(ms[1]), Bust: intPtr(ms[2]), Waist: intPtr(ms[3]),
			Hips: intPtr(ms[4]), Thigh: intPtr(ms[5]), Inseam: intPtr(ms[6]), ArmLength: intPtr(ms[7]),
			Outseam: intPtr(ms[8]), Ankle: intPtr(ms[9]), Shoulder: intPtr(ms[10]), SleeveLength: intPtr(ms[11]),
			Knee: intPtr(ms[12]), Wrist: intPtr(ms[13]), Rise: intPtr(ms[14]), Bicep: intPtr(ms[15]),
		}
		cn.ClientRef = ref.String
		cn.Entity = c
		return cn, nil
	},
}

var ordersTable = table{
	name:         "orders",
	columns:      []string{"client_id", "description", "status", "due_date", "total_price", "image_url"},
	parentTable:  "clients",
	parentColumn: "client_id",
	childTable:   "payments",
	childColumn:  "order_id",
	values: func(e models.Entity) ([]any, error) {
		o, ok := e.(models.Order)
		if !ok {
			return nil, wrongType(models.Orders, e)
		}
		return []any{
			o.ClientID, nullString(o.Description), o.Status, nullString(o.DueDate),
			nullInt64(o.TotalPrice), nullString(o.ImageURL),
		}, nil
	},
	scan: func(s scanner) (models.Canonical, error) {
		var (
			cn          models.Canonical
			ref         sql.NullString
			desc, image sql.NullString
			due         sql.NullTime
			total       sql.NullInt64
			o           models.Order
		)
		if err := s.Scan(&cn.ID, &ref, &cn.UpdatedAt, &o.ClientID, &desc, &o.Status, &due, &total, &image); err != nil {
			return cn, err
		}
		o.Description, o.ImageURL = desc.String, image.String
		if due.Valid {
			o.DueDate = due.Time.Format(models.DateLayout)
		}
		o.TotalPrice = int64Ptr(total)
		cn.ClientRef = ref.String
		cn.Entity = o
		return cn, nil
	},
}

var inventoryTable = table{
	name:    "inventory",
	columns: []string{"name", "category", "quantity", "unit", "low_stock_alert"},
	values: func(e models.Entity) ([]any, error) {
		i, ok := e.(models.InventoryItem)
		if !ok {
			return nil, wrongType(models.Inventory, e)
		}
		return []any{i.Name, nullString(i.Category), i.Quantity, nullString(i.Unit), nullInt64(i.LowStockAlert)}, nil
	},
	scan: func(s scanner) (models.Canonical, error) {
		var (
			cn             models.Canonical
			ref            sql.NullString
			category, unit sql.NullString
			alert          sql.NullInt64
			i              models.InventoryItem
		)
		if err := s.Scan(&cn.ID, &ref, &cn.UpdatedAt, &i.Name, &category, &i.Quantity, &unit, &alert); err != nil {
			return cn, err
		}
		i.Category, i.Unit = category.String, unit.String
		i.LowStockAlert = int64Ptr(alert)
		cn.ClientRef = ref.String
		cn.Entity = i
		return cn, nil
	},
}

var paymentsTable = table{
	name: "payments",
	columns: []string{
		"order_id", "amount", "method", "status", "transaction_ref", "payment_type", "payment_balance",
	},
	parentTable:  "orders",
	parentColumn: "order_id",
	values: func(e models.Entity) ([]any, error) {
		p, ok := e.(models.Payment)
		if !ok {
			return nil, wrongType(models.Payments, e)
		}
		return []any{
			p.OrderID, p.Amount, p.Method, nullString(p.Status), nullString(p.TransactionRef),
			nullString(p.PaymentType), nullInt64(p.PaymentBalance),
		}, nil
	},
	scan: func(s scanner) (models.Canonical, error) {
		var (
			cn                         models.Canonical
			ref                        sql.NullString
			status, txRef, paymentType sql.NullString
			balance                    sql.NullInt64
			p                          models.Payment
		)
		if err := s.Scan(&cn.ID, &ref, &cn.UpdatedAt, &p.OrderID, &p.Amount, &p.Method,
			&status, &txRef, &paymentType, &balance); err != nil {
			return cn, err
		}
		p.Status, p.TransactionRef, p.PaymentType = status.String, txRef.String, paymentType.String
		p.PaymentBalance = int64Ptr(balance)
		cn.ClientRef = ref.String
		cn.Entity = p
		return cn, nil
	},
}

// utc normalizes timestamps read back from the driver.
func utc(c models.Canonical) models.Canonical {
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c
}
