package web

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vbonduro/wardrobe/internal/domain"
)

// MaxCanvasSize bounds the w and h query parameters of render endpoints.
const MaxCanvasSize = 2048

// Validator wraps go-playground/validator with the wardrobe tags registered.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their json name so messages match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("slot", validateSlot)
	_ = v.RegisterValidation("owner_type", validateOwnerType)

	return &Validator{validate: v}
}

func (v *Validator) ValidateStruct(s any) error {
	return v.validate.Struct(s)
}

func (v *Validator) ValidateVar(field any, tag string) error {
	return v.validate.Var(field, tag)
}

func validateSlot(fl validator.FieldLevel) bool {
	_, err := domain.ParseSlot(fl.Field().String())
	return err == nil
}

func validateOwnerType(fl validator.FieldLevel) bool {
	_, err := domain.ParseOwnerType(fl.Field().String())
	return err == nil
}

// FormatValidationError turns validator errors into a field to message map.
// Non-validation errors collapse to a single "error" entry.
func FormatValidationError(err error) map[string]string {
	if err == nil {
		return nil
	}

	errs := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs["error"] = "invalid request format"
		return errs
	}

	for _, e := range validationErrors {
		field := fieldPath(e)
		switch e.Tag() {
		case "required":
			errs[field] = "this field is required"
		case "slot":
			errs[field] = "must be one of BASE, HAT, SHIRT, BOTTOM"
		case "owner_type":
			errs[field] = "must be registration or outlet"
		case "max", "lte":
			errs[field] = fmt.Sprintf("must be at most %s", e.Param())
		case "min", "gte":
			errs[field] = fmt.Sprintf("must be at least %s", e.Param())
		case "gt":
			errs[field] = fmt.Sprintf("must be greater than %s", e.Param())
		default:
			errs[field] = "invalid value"
		}
	}

	return errs
}

// fieldPath drops the top-level struct name from the namespace, so a nested
// failure reads "placement.scale" rather than "placementRequest.placement.scale".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	if ns == "" {
		return "value"
	}
	return ns
}
