// Package validate holds the shared request validator and the portal's
// custom tags: jalali (YYYY/MM/DD Solar Hijri date), irphone (Iranian phone
// number) and money (a non-negative amount, separators allowed).
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"

	"github.com/bimerz/portal-service/internal/jalali"
	"github.com/bimerz/portal-service/internal/money"
)

const PhoneRegion = "IR"

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("jalali", func(fl validator.FieldLevel) bool {
			_, err := jalali.Parse(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("irphone", func(fl validator.FieldLevel) bool {
			return ValidatePhoneNumber(fl.Field().String(), PhoneRegion) == nil
		})
		_ = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
			_, err := money.Parse(fl.Field().String())
			return err == nil
		})
	})
	return v
}

// Error carries the failing fields and their tags.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Struct validates s and returns *Error for field failures.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := &Error{Fields: make(map[string]string, len(ves))}
	for _, fe := range ves {
		out.Fields[fe.Field()] = fe.Tag()
	}
	return out
}

func ValidatePhoneNumber(phone, region string) error {
	p, err := libphonenumber.Parse(jalali.ToLatinDigits(phone), region)
	if err != nil {
		return err
	}
	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}
	return nil
}

// NormalizePhone returns phone in E.164 form, or an error when invalid.
func NormalizePhone(phone string) (string, error) {
	p, err := libphonenumber.Parse(jalali.ToLatinDigits(strings.TrimSpace(phone)), PhoneRegion)
	if err != nil {
		return "", err
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("phone number is not valid")
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}
