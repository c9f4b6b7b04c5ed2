package utils

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// lets gt/gte/lte work on decimal fields
	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		d, ok := v.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
	// report fields by their json name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// ValidateInput runs struct tag validation and converts failures into a ValidationError.
func ValidateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	fields := ProcessValidationErrors(err)
	if len(fields) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	return &ValidationError{Message: ErrValidation.Error(), Fields: fields}
}

func ProcessValidationErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		// drop the root struct name: "NewInvoice.lines[0].quantity" -> "lines[0].quantity"
		key := ve.Namespace()
		if i := strings.Index(key, "."); i >= 0 {
			key = key[i+1:]
		}
		if ve.Param() != "" {
			errorResponse[key] = fmt.Sprintf("%s=%s", ve.Tag(), ve.Param())
		} else {
			errorResponse[key] = ve.Tag()
		}
	}
	return errorResponse
}

// ValidateResourceId checks id exists for T (tenant scoped by the DB plugin).
func ValidateResourceId[T any](ctx context.Context, db *gorm.DB, entity string, id int) error {
	var count int64
	if err := db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count <= 0 {
		return NewNotFoundError(entity, id)
	}
	return nil
}
