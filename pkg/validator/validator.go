package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

var validate = validator.New()

func init() {
	// Report fields by their JSON name so errors line up with request bodies
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Money fields are compared as numbers by the standard gte/lte tags
	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		if d, ok := v.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*ErrorResponse{{FailedField: "", Tag: "invalid", Value: err.Error()}}
		}
		for _, err := range verrs {
			var element ErrorResponse
			element.FailedField = err.Field()
			element.Tag = err.Tag()
			element.Value = err.Param()
			errors = append(errors, &element)
		}
	}
	return errors
}

// FieldErrors validates data and returns one readable message per failed JSON field
func FieldErrors(data interface{}) map[string]string {
	errs := ValidateStruct(data)
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		if _, exists := out[e.FailedField]; exists {
			continue
		}
		out[e.FailedField] = Message(e)
	}
	return out
}

func Message(e *ErrorResponse) string {
	field := strings.ReplaceAll(e.FailedField, "_", " ")
	switch e.Tag {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "min":
		return fmt.Sprintf("The %s field must be at least %s.", field, e.Value)
	case "gte":
		return fmt.Sprintf("The %s field must be at least %s.", field, e.Value)
	case "gt":
		return fmt.Sprintf("The %s field must be greater than %s.", field, e.Value)
	case "lte":
		return fmt.Sprintf("The %s field must not be greater than %s.", field, e.Value)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", field, e.Value)
	case "oneof", "uuid", "uuid4":
		return fmt.Sprintf("The selected %s is invalid.", field)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", field)
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}
