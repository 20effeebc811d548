package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/pkg/calendar"
)

// Validator turns raw request payloads into typed, normalized values or a
// domain.ValidationError listing every offending field.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	_ = v.RegisterValidation("date", validateDate)
	_ = v.RegisterValidation("money", validateMoney)
	_ = v.RegisterValidation("positive", validatePositive)
	_ = v.RegisterValidation("dimension", validateDimension)
	return &Validator{validate: v}
}

// Struct runs the tag rules of s.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &domain.ValidationError{}
	for _, fe := range verrs {
		out.Add(fe.Field(), fe.Tag(), message(fe))
	}
	return out
}

// ID checks that value is a well-formed identifier.
func ID(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", domain.NewValidationError(field, "required", "is required")
	}
	if _, err := uuid.Parse(value); err != nil {
		return "", domain.NewValidationError(field, "uuid", "must be a valid identifier")
	}
	return strings.ToLower(value), nil
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return strings.ToLower(f.Name)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a valid identifier"
	case "date":
		return "must be a date in YYYY-MM-DD format"
	case "money":
		return "must be a non-negative decimal with at most two fractional digits"
	case "positive":
		return "must be greater than zero"
	case "dimension":
		return "must be a positive decimal with at most two fractional digits"
	case "iso4217":
		return "must be an ISO 4217 currency code"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := calendar.Parse(fl.Field().String())
	return err == nil
}

func validateMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
	if err != nil {
		return false
	}
	return !d.IsNegative() && d.Equal(d.Round(2))
}

func validatePositive(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
	return err == nil && d.IsPositive()
}

func validateDimension(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
	return err == nil && d.IsPositive() && d.Equal(d.Round(2))
}

func parseDecimal(value string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseNullDecimal(value string) decimal.NullDecimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(parseDecimal(value))
}

// parseDate is only called after the "date" rule passed.
func parseDate(value string) calendar.Date {
	if strings.TrimSpace(value) == "" {
		return calendar.Date{}
	}
	d, _ := calendar.Parse(value)
	return d
}

func optionalID(value string) *string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return nil
	}
	return &value
}
