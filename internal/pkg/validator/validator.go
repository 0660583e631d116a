package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nailbook/booking-api/internal/pkg/phone"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// North American phone number in any common notation
	validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, err := phone.Normalize(fl.Field().String())
		return err == nil
	})

	// Comma separated list of UUIDs, at least one
	validate.RegisterValidation("csv_uuid", func(fl validator.FieldLevel) bool {
		ids, err := ParseUUIDList(fl.Field().String())
		return err == nil && len(ids) > 0
	})

	// Technician reference: a UUID or the literal "any"
	validate.RegisterValidation("technician_ref", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		if strings.EqualFold(v, "any") {
			return true
		}
		_, err := uuid.Parse(v)
		return err == nil
	})
}

// ParseUUIDList splits a comma separated list, trimming blanks.
func ParseUUIDList(s string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	errors := make(map[string]string)
	for _, err := range verrs {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "uuid":
			errors[field] = "Must be a valid UUID"
		case "phone":
			errors[field] = "Invalid phone number"
		case "csv_uuid":
			errors[field] = "Must be a comma separated list of service IDs"
		case "technician_ref":
			errors[field] = "Must be a technician ID or \"any\""
		case "oneof":
			errors[field] = "Must be one of: " + err.Param()
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
