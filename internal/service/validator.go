package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/Nakkasenp65/register-item-delivery/pkg/errors"
)

var lineUserIDPattern = regexp.MustCompile(`^U[0-9a-f]{32}$`)

// Validator struct validation reporting json field names
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers json tag names and the custom rules
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// LINE user IDs are "U" followed by 32 lowercase hex digits
	_ = v.RegisterValidation("lineuserid", func(fl validator.FieldLevel) bool {
		return lineUserIDPattern.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Struct validates s; the first failing field becomes a ValidationError
func (vs *Validator) Struct(s interface{}) error {
	err := vs.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required", "required_if":
		return pkgerrors.Required(fe.Field())
	case "max":
		return pkgerrors.Invalid(fe.Field(), fmt.Sprintf("must be at most %s characters", fe.Param()))
	case "min":
		return pkgerrors.Invalid(fe.Field(), fmt.Sprintf("must be at least %s characters", fe.Param()))
	case "len":
		return pkgerrors.Invalid(fe.Field(), fmt.Sprintf("must be exactly %s characters", fe.Param()))
	case "numeric":
		return pkgerrors.Invalid(fe.Field(), "must contain digits only")
	case "oneof":
		return pkgerrors.Invalid(fe.Field(), fmt.Sprintf("must be one of [%s]", fe.Param()))
	case "lineuserid":
		return pkgerrors.Invalid(fe.Field(), "malformed LINE user ID")
	default:
		return pkgerrors.Invalid(fe.Field(), "failed "+fe.Tag())
	}
}
