// Package middleware provides HTTP middleware for the Moneytrail API.
package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/moneytrail/moneytrail/internal/model"
)

// DateLayout is the calendar date format accepted for transactions.
const DateLayout = "2006-01-02"

// Amounts are stored as NUMERIC(14, 2).
const amountScale = 2

var amountLimit = decimal.New(1, 12)

// ValidationError reports the first rule a request body violated.
type ValidationError struct {
	Field   string
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4,max=100"`
}

func (r *SignupRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
}

// LoginRequest is the body of POST /api/auth/login.
// Password bounds are looser than signup's.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=3,max=100"`
}

func (r *LoginRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// TransactionRequest is the body of the add-incomes and add-expenses endpoints.
type TransactionRequest struct {
	Title       string      `json:"title" validate:"required,max=50"`
	Amount      json.Number `json:"amount" validate:"required,amount,cents,amountmax"`
	Date        string      `json:"date" validate:"required,txdate"`
	Category    string      `json:"category" validate:"required,max=50"`
	Description string      `json:"description" validate:"required,max=50"`
}

func (r *TransactionRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Date = strings.TrimSpace(r.Date)
	r.Category = strings.TrimSpace(r.Category)
	r.Description = strings.TrimSpace(r.Description)
}

// ParsedAmount returns the amount as a decimal. Valid only after validation.
func (r *TransactionRequest) ParsedAmount() decimal.Decimal {
	d, _ := decimal.NewFromString(r.Amount.String())
	return d
}

// ParsedDate returns the date. Valid only after validation.
func (r *TransactionRequest) ParsedDate() time.Time {
	t, _ := parseDate(r.Date)
	return t
}

// CheckAmount applies the sign rule for kind: incomes may be zero, expenses must be positive.
func (r *TransactionRequest) CheckAmount(kind model.TransactionKind) error {
	amount := r.ParsedAmount()
	switch kind {
	case model.KindIncome:
		if amount.IsNegative() {
			return &ValidationError{Field: "amount", Rule: "min", Message: `"amount" must be greater than or equal to 0`}
		}
	case model.KindExpense:
		if !amount.IsPositive() {
			return &ValidationError{Field: "amount", Rule: "positive", Message: `"amount" must be a positive number`}
		}
	}
	return nil
}

type normalizer interface {
	normalize()
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := decimal.NewFromString(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("cents", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.Equal(d.Truncate(amountScale))
	})
	_ = v.RegisterValidation("amountmax", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.Abs().LessThan(amountLimit)
	})
	_ = v.RegisterValidation("txdate", func(fl validator.FieldLevel) bool {
		_, err := parseDate(fl.Field().String())
		return err == nil
	})

	return v
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// DecodeAndValidate decodes a JSON body into dst and validates it.
// Unknown fields are rejected. Any failure is a *ValidationError.
func DecodeAndValidate(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return decodeError(err)
	}

	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}

	return Validate(dst)
}

// Validate checks v against its validate tags and returns the first violation.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Rule: "invalid", Message: "invalid request"}
	}

	fe := fieldErrs[0]
	return &ValidationError{
		Field:   fe.Field(),
		Rule:    fe.Tag(),
		Message: ruleMessage(fe),
	}
}

func ruleMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "min":
		return fmt.Sprintf("%q length must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%q length must be less than or equal to %s characters long", field, fe.Param())
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	case "amount":
		return fmt.Sprintf("%q must be a number", field)
	case "cents":
		return fmt.Sprintf("%q must have at most %d decimal places", field, amountScale)
	case "amountmax":
		return fmt.Sprintf("%q must be less than %s", field, amountLimit.String())
	case "txdate":
		return fmt.Sprintf("%q must be a valid date", field)
	default:
		return fmt.Sprintf("%q is invalid", field)
	}
}

func decodeError(err error) *ValidationError {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return &ValidationError{Rule: "size", Message: "request body too large"}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ValidationError{
			Field:   typeErr.Field,
			Rule:    "type",
			Message: fmt.Sprintf("%q must be a %s", typeErr.Field, jsonTypeName(typeErr.Type)),
		}
	}

	// encoding/json reports unknown fields only by message.
	const unknownPrefix = "json: unknown field "
	if msg := err.Error(); strings.HasPrefix(msg, unknownPrefix) {
		field := strings.Trim(strings.TrimPrefix(msg, unknownPrefix), `"`)
		return &ValidationError{
			Field:   field,
			Rule:    "unknown",
			Message: fmt.Sprintf("%q is not allowed", field),
		}
	}

	return &ValidationError{Rule: "json", Message: "invalid JSON body"}
}

var numberType = reflect.TypeOf(json.Number(""))

func jsonTypeName(t reflect.Type) string {
	if t == numberType {
		return "number"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Struct, reflect.Map:
		return "object"
	default:
		return t.Kind().String()
	}
}
