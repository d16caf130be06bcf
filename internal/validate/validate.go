// Package validate binds and validates request payloads. Struct rules use
// go-playground/validator tags; failures become a 400 apperror whose data
// maps each offending field to a readable message.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/cloudsystem/cloudsystem/internal/apperror"
)

// Messages for the two request surfaces.
const (
	BodyMessage  = "Your request body is invalid"
	QueryMessage = "Your request query parameters are invalid"
	ParamMessage = "Your request path parameters are invalid"
)

// Normalizer is implemented by request DTOs that clean their fields (trim,
// lowercase) between binding and validation.
type Normalizer interface {
	Normalize()
}

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator that reports fields by their json, query or
// form tag name.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "query", "form", "param"} {
			name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return &Validator{v: v}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i any) error {
	return cv.v.Struct(i)
}

// Body binds the request (path, query for GET/DELETE, then body) into dst
// and validates it.
func Body(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperror.NewInvalidInput(BodyMessage, bindFields(err, "body"))
	}
	return check(c, dst, BodyMessage)
}

// Query binds only query parameters into dst and validates them.
func Query(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, dst); err != nil {
		return apperror.NewInvalidInput(QueryMessage, bindFields(err, "query"))
	}
	return check(c, dst, QueryMessage)
}

// Params binds only path parameters into dst and validates them.
func Params(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindPathParams(c, dst); err != nil {
		return apperror.NewInvalidInput(ParamMessage, bindFields(err, "params"))
	}
	return check(c, dst, ParamMessage)
}

func check(c echo.Context, dst any, message string) error {
	if n, ok := dst.(Normalizer); ok {
		n.Normalize()
	}
	if err := c.Validate(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apperror.NewInvalidInput(message, Fields(verrs))
		}
		return apperror.NewInternal(fmt.Errorf("validating request: %w", err))
	}
	return nil
}

// Fields turns validator errors into a field -> message map.
func Fields(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "uuid", "uuid4":
		return field + " must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "max", "gte", "lte":
		word := "at least"
		if fe.Tag() == "max" || fe.Tag() == "lte" {
			word = "at most"
		}
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s must be %s %s characters long", field, word, fe.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("%s must contain %s %s items", field, word, fe.Param())
		default:
			return fmt.Sprintf("%s must be %s %s", field, word, fe.Param())
		}
	default:
		return field + " is invalid"
	}
}

// bindFields extracts the parameter name from an echo binding error when
// the binder reports one.
func bindFields(err error, surface string) map[string]string {
	var be *echo.BindingError
	if errors.As(err, &be) && be.Field != "" {
		return map[string]string{be.Field: be.Field + " has the wrong type"}
	}
	return map[string]string{surface: surface + " could not be parsed"}
}
