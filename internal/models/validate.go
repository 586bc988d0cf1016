package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the entity's field constraints. The returned error wraps
// common.ErrValidation and names every failing field.
func Validate(e Entity) error {
	if e == nil {
		return fmt.Errorf("%w: nil entity", common.ErrValidation)
	}

	err := validatorInstance().Struct(e)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s %s", common.ErrValidation, e.Type().Singular(), strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	name := jsonName(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be an email address"
	case "url":
		return name + " must be a URL"
	case "datetime":
		return name + " must be a date (YYYY-MM-DD)"
	case "gt", "gte", "max":
		return fmt.Sprintf("%s must satisfy %s=%s", name, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", name, fe.Tag())
	}
}

func jsonName(field string) string {
	switch field {
	case "ClientID":
		return "clientId"
	case "OrderID":
		return "orderId"
	case "ImageURL":
		return "imageUrl"
	}
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
