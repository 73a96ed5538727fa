package types

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names so errors match the wire format.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError describes the first field of a value that failed validation.
type FieldError struct {
	Field string
	Rule  string
}

func (e *FieldError) Error() string {
	switch e.Rule {
	case "min":
		return fmt.Sprintf("field %s must have at least one value", e.Field)
	case "required":
		return fmt.Sprintf("field %s is required", e.Field)
	default:
		return fmt.Sprintf("field %s failed %q validation", e.Field, e.Rule)
	}
}

// ValidateStruct runs the struct tag rules on v and converts the first
// failure into a *FieldError.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		// Namespace is "TripRequest.interests[0]"; drop the type prefix.
		ns := verrs[0].Namespace()
		if i := strings.Index(ns, "."); i >= 0 {
			ns = ns[i+1:]
		}
		return &FieldError{Field: ns, Rule: verrs[0].Tag()}
	}
	return err
}
