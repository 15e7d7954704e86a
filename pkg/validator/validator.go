package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	apperrors "github.com/jwalitptl/zapdoc-api/pkg/errors"
)

// Validator checks struct tags and reports the first failure as a BadRequest.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	Register(v)
	return &Validator{v: v}
}

// Register installs the custom tags and JSON field naming on v. It is also
// applied to gin's binding engine so request structs share the same rules.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("slot", func(fl validator.FieldLevel) bool {
		return model.IsValidSlot(fl.Field().String())
	})
}

func (v *Validator) Validate(obj interface{}) error {
	if err := v.v.Struct(obj); err != nil {
		return Translate(err)
	}
	return nil
}

// Translate turns binding and validation failures into a BadRequest carrying
// a readable message. A failed slot tag keeps its own InvalidSlot code.
func Translate(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if verrs[0].Tag() == "slot" {
			return apperrors.InvalidSlotErr
		}
		return apperrors.BadRequest(Message(verrs[0]), err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return apperrors.BadRequest("Invalid request body", err)
	}
	return apperrors.BadRequest(err.Error(), err)
}

// Message renders one field error, e.g. "email must be a valid email address".
func Message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "slot":
		return "Invalid slot"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
