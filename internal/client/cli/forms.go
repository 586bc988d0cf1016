package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// clearValue typed at an optional prompt empties the field.
const clearValue = "-"

// form prompts for entity fields. When editing, an empty answer keeps the
// current value.
type form struct {
	r *bufio.Reader
	w io.Writer
}

func (f form) text(label, cur string) (string, error) {
	prompt := label
	if cur != "" {
		prompt = fmt.Sprintf("%s [%s]", label, cur)
	}
	v, err := GetSimpleText(f.r, prompt, f.w)
	switch {
	case err != nil:
		return "", err
	case v == "":
		return cur, nil
	case v == clearValue:
		return "", nil
	}
	return v, nil
}

func (f form) int64(label string, cur int64) (int64, error) {
	def := ""
	if cur != 0 {
		def = strconv.FormatInt(cur, 10)
	}
	v, err := f.text(label, def)
	if err != nil || v == "" {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a whole number", common.ErrValidation, label)
	}
	return n, nil
}

func (f form) optInt64(label string, cur *int64) (*int64, error) {
	def := ""
	if cur != nil {
		def = strconv.FormatInt(*cur, 10)
	}
	v, err := f.text(label, def)
	if err != nil || v == "" {
		return nil, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a whole number", common.ErrValidation, label)
	}
	return &n, nil
}

// entity asks for every editable field of type t, starting from cur (nil
// when adding).
func (f form) entity(t models.EntityType, cur models.Entity) (models.Entity, error) {
	if cur == nil {
		var err error
		if cur, err = models.New(t); err != nil {
			return nil, err
		}
	}

	var err error
	set := func(dst *string, label string) {
		if err == nil {
			*dst, err = f.text(label, *dst)
		}
	}
	setInt := func(dst *int64, label string) {
		if err == nil {
			*dst, err = f.int64(label, *dst)
		}
	}
	setOpt := func(dst **int64, label string) {
		if err == nil {
			*dst, err = f.optInt64(label, *dst)
		}
	}

	switch e := cur.(type) {
	case models.Client:
		set(&e.Name, "Name")
		set(&e.Phone, "Phone")
		set(&e.Email, "Email")
		set(&e.Notes, "Notes")
		if err == nil {
			e.Measurements, err = f.measurements(e.Measurements)
		}
		return e, err
	case models.Order:
		setInt(&e.ClientID, "Client id")
		set(&e.Description, "Description")
		set(&e.Status, "Status")
		set(&e.DueDate, "Due date (YYYY-MM-DD)")
		setOpt(&e.TotalPrice, "Total price (pesewas)")
		return e, err
	case models.InventoryItem:
		set(&e.Name, "Name")
		set(&e.Category, "Category")
		setInt(&e.Quantity, "Quantity")
		set(&e.Unit, "Unit")
		setOpt(&e.LowStockAlert, "Low stock alert")
		return e, err
	case models.Payment:
		setInt(&e.OrderID, "Order id")
		setInt(&e.Amount, "Amount (pesewas)")
		set(&e.Method, "Method")
		set(&e.Status, "Status")
		set(&e.TransactionRef, "Transaction reference")
		set(&e.PaymentType, "Payment type")
		setOpt(&e.PaymentBalance, "Balance (pesewas)")
		return e, err
	}
	return nil, fmt.Errorf("%w: %s", common.ErrUnknownEntity, t)
}

// measurements reads "chest=96" style lines on top of cur. A value of "-"
// removes a measurement.
func (f form) measurements(cur models.Measurements) (models.Measurements, error) {
	lines, err := GetPairs(f.r, "Measurements in cm", f.w)
	if err != nil || len(lines) == 0 {
		return cur, err
	}
	return applyMeasurements(cur, lines)
}

func applyMeasurements(cur models.Measurements, lines []string) (models.Measurements, error) {
	raw, err := json.Marshal(cur)
	if err != nil {
		return cur, err
	}
	values := map[string]any{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return cur, err
	}

	for _, line := range lines {
		name, value, ok := strings.Cut(line, "=")
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if !ok || name == "" {
			return cur, fmt.Errorf("%w: %q is not name=value", common.ErrValidation, line)
		}
		if value == clearValue {
			delete(values, name)
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return cur, fmt.Errorf("%w: %s must be a whole number", common.ErrValidation, name)
		}
		values[name] = n
	}

	raw, err = json.Marshal(values)
	if err != nil {
		return cur, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var out models.Measurements
	if err := dec.Decode(&out); err != nil {
		return cur, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return out, nil
}
