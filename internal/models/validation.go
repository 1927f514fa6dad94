package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/apnedoctors/minirag/pkg/utils"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterValidations(v)
	}
}

// RegisterValidations reports JSON names in field errors and adds "notblank".
func RegisterValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// NewValidationError converts a gin binding error into a ValidationError.
func NewValidationError(err error) *ValidationError {
	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError

	switch {
	case errors.As(err, &verrs):
		fields := make([]utils.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, utils.FieldError{
				Field:   fe.Field(),
				Message: describe(fe),
			})
		}
		return &ValidationError{Fields: fields}
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return &ValidationError{Fields: []utils.FieldError{{
			Field:   field,
			Message: fmt.Sprintf("must be of type %s", typeErr.Type.String()),
		}}}
	case errors.As(err, &syntaxErr):
		return &ValidationError{Fields: []utils.FieldError{{
			Field:   "body",
			Message: fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset),
		}}}
	case errors.Is(err, io.EOF):
		return &ValidationError{Fields: []utils.FieldError{{
			Field:   "body",
			Message: "request body is required",
		}}}
	default:
		return &ValidationError{Fields: []utils.FieldError{{
			Field:   "body",
			Message: err.Error(),
		}}}
	}
}

func describe(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "field required"
	case "notblank":
		return "must not be blank"
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}
