package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"propdash/pkg/logger"
	"propdash/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

// Fields lists the offending JSON field names in declaration order.
func (v ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(v))
	for _, e := range v {
		fields = append(fields, e.Field)
	}
	return fields
}

type ListingValidator struct {
	validate *validator.Validate
	log      *logger.Logger
}

func NewListingValidator(log *logger.Logger) *ListingValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON names so the caller sees "petPolicy", not "PetPolicy".
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &ListingValidator{
		validate: v,
		log:      log,
	}
}

// ValidateFields expects already-trimmed input; whitespace-only values arrive here as "".
func (v *ListingValidator) ValidateFields(fields *model.ListingFields) error {
	return v.validateStruct(fields)
}

func (v *ListingValidator) ValidateStatus(change *model.StatusChange) error {
	return v.validateStruct(change)
}

func (v *ListingValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		v.log.Error("unexpected validator failure", "error", err)
		return err
	}
	return nil
}

func (v *ListingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		var message string
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), strings.ReplaceAll(err.Param(), " ", ", "))
		default:
			message = fmt.Sprintf("%s is invalid", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
