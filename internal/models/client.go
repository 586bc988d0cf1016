package models

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
)

// Measurements are body measurements in whole centimetres; nil means not taken.
type Measurements struct {
	Neck         *int `json:"neck,omitempty" validate:"omitempty,gte=0"`
	Chest        *int `json:"chest,omitempty" validate:"omitempty,gte=0"`
	Bust         *int `json:"bust,omitempty" validate:"omitempty,gte=0"`
	Waist        *int `json:"waist,omitempty" validate:"omitempty,gte=0"`
	Hips         *int `json:"hips,omitempty" validate:"omitempty,gte=0"`
	Thigh        *int `json:"thigh,omitempty" validate:"omitempty,gte=0"`
	Inseam       *int `json:"inseam,omitempty" validate:"omitempty,gte=0"`
	ArmLength    *int `json:"armLength,omitempty" validate:"omitempty,gte=0"`
	Outseam      *int `json:"outseam,omitempty" validate:"omitempty,gte=0"`
	Ankle        *int `json:"ankle,omitempty" validate:"omitempty,gte=0"`
	Shoulder     *int `json:"shoulder,omitempty" validate:"omitempty,gte=0"`
	SleeveLength *int `json:"sleeveLength,omitempty" validate:"omitempty,gte=0"`
	Knee         *int `json:"knee,omitempty" validate:"omitempty,gte=0"`
	Wrist        *int `json:"wrist,omitempty" validate:"omitempty,gte=0"`
	Rise         *int `json:"rise,omitempty" validate:"omitempty,gte=0"`
	Bicep        *int `json:"bicep,omitempty" validate:"omitempty,gte=0"`
}

func (m Measurements) fields() []Field {
	return []Field{
		{"neck", formatMeasure(m.Neck)},
		{"chest", formatMeasure(m.Chest)},
		{"bust", formatMeasure(m.Bust)},
		{"waist", formatMeasure(m.Waist)},
		{"hips", formatMeasure(m.Hips)},
		{"thigh", formatMeasure(m.Thigh)},
		{"inseam", formatMeasure(m.Inseam)},
		{"armLength", formatMeasure(m.ArmLength)},
		{"outseam", formatMeasure(m.Outseam)},
		{"ankle", formatMeasure(m.Ankle)},
		{"shoulder", formatMeasure(m.Shoulder)},
		{"sleeveLength", formatMeasure(m.SleeveLength)},
		{"knee", formatMeasure(m.Knee)},
		{"wrist", formatMeasure(m.Wrist)},
		{"rise", formatMeasure(m.Rise)},
		{"bicep", formatMeasure(m.Bicep)},
	}
}

// Client is a customer of the business.
type Client struct {
	Name  string `json:"name" validate:"required,max=255"`
	Phone string `json:"phone,omitempty" validate:"max=30"`
	Email string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Measurements
	Notes string `json:"notes,omitempty"`
}

func (Client) Type() EntityType            { return Clients }
func (Client) ParentID() int64             { return 0 }
func (c Client) WithParentID(int64) Entity { return c }
func (Client) sealed()                     {}

func (c Client) Fields() []Field {
	f := []Field{
		{"name", c.Name},
		{"phone", c.Phone},
		{"email", c.Email},
	}
	f = append(f, c.Measurements.fields()...)
	return append(f, Field{"notes", c.Notes})
}

func (c Client) decode(data []byte) (Entity, error) {
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: client: %v", common.ErrInvalidRecord, err)
	}
	return c, nil
}
