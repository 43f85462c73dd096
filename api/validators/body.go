package validators

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
)

var validate = newValidator()

// indianPhonePattern accepts digits, spaces, dashes and a plus sign, at
// least ten characters total.
var indianPhonePattern = regexp.MustCompile(`^[\d\s\-+]{10,}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("inphone", func(fl validator.FieldLevel) bool {
		return indianPhonePattern.MatchString(fl.Field().String())
	})

	return v
}

// DecodeJSONBody decodes and validates a JSON request body into dst.
// Unknown fields are rejected so typos surface instead of being dropped.
func DecodeJSONBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body required")
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed request body")
	}
	_, _ = io.Copy(io.Discard, r.Body)

	return ValidateStruct(dst)
}

// ValidateStruct runs tag validation on an already-decoded value.
func ValidateStruct(dst any) error {
	if err := validate.Struct(dst); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(fieldErrs)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "validate request")
	}
	return nil
}

func formatValidationErrors(fieldErrs validator.ValidationErrors) error {
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Field()
		if field == "" {
			field = strings.ToLower(fe.StructField())
		}
		details[field] = validationMessage(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	case "inphone":
		return "must be a valid phone number"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
