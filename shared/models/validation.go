package models

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// FieldErrors maps a field name to the messages explaining why it is invalid
type FieldErrors map[string][]string

// Add records a message against a field
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// Merge copies every message of other into fe
func (fe FieldErrors) Merge(other FieldErrors) {
	for field, messages := range other {
		for _, m := range messages {
			fe.Add(field, m)
		}
	}
}

// Err returns nil when no field failed, or a *ValidationError otherwise
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return &ValidationError{Fields: fe}
}

// ValidationError is returned when an entity fails its declared constraints
type ValidationError struct {
	Fields FieldErrors `json:"errors"`
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		for _, m := range e.Fields[field] {
			parts = append(parts, field+" "+m)
		}
	}
	return strings.Join(parts, "; ")
}

// AsValidationError unwraps err into a *ValidationError when it is one
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

var (
	validate = newValidator()

	gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z0-9]{13}$`)
)

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields under their JSON names
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

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	mustRegister(v, "landline", func(fl validator.FieldLevel) bool {
		return isDigits(fl.Field().String())
	})
	mustRegister(v, "gstin", func(fl validator.FieldLevel) bool {
		return gstinPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "clock", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(ClockLayout, fl.Field().String())
		return err == nil
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// validateStruct runs the struct-tag rules of s and translates failures into FieldErrors
func validateStruct(s interface{}) FieldErrors {
	fieldErrors := FieldErrors{}

	err := validate.Struct(s)
	if err == nil {
		return fieldErrors
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fieldErrors.Add("base", err.Error())
		return fieldErrors
	}

	for _, fe := range verrs {
		fieldErrors.Add(fieldName(fe), messageFor(fe))
	}
	return fieldErrors
}

// fieldName drops the top-level struct name so nested fields read "address.city"
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "can't be blank"
	case "len":
		return fmt.Sprintf("is the wrong length (should be %s characters)", fe.Param())
	case "max":
		return fmt.Sprintf("is too long (maximum is %s characters)", fe.Param())
	case "email":
		return "is invalid"
	case "numeric":
		return "must contain only digits"
	case "landline":
		return "is not a valid landline number"
	case "gstin":
		return "is not a valid GSTIN"
	case "clock":
		return "must be a time of day (HH:MM)"
	case "oneof":
		return "is not included in the list"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	}
	return "is invalid"
}

// NormalizeLandline strips separators and a leading trunk zero from an 11-digit number
func NormalizeLandline(s string) string {
	digits := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(s))

	if len(digits) == 11 && digits[0] == '0' {
		digits = digits[1:]
	}
	return digits
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
