// Package validation holds the format checks applied to save-contact payloads.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var (
	// AHV numbers are 13 digits starting with the Swiss country code 756,
	// usually written as 756.XXXX.XXXX.XX
	ahvDottedRegex = regexp.MustCompile(`^756\.\d{4}\.\d{4}\.\d{2}$`)
	ahvPlainRegex  = regexp.MustCompile(`^756\d{10}$`)

	ibanRegex = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{11,30}$`)
)

// New returns a validator that reports fields by their JSON names and knows
// the custom tags used on payloads:
//
//	notblank  string with at least one non-space character
//	ahv       Swiss social insurance number with a valid check digit
//	iban      IBAN with a valid mod-97 checksum, spaces and case ignored
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		return name
	})
	mustRegister(v, "notblank", validators.NotBlank)
	mustRegister(v, "ahv", func(fl validator.FieldLevel) bool {
		return IsValidAHV(fl.Field().String())
	})
	mustRegister(v, "iban", func(fl validator.FieldLevel) bool {
		return IsValidIBAN(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Problems renders validation errors as "<field> <problem>" lines. Field
// paths drop the root struct name, e.g. "children[1].first_name".
func Problems(errs validator.ValidationErrors) []string {
	problems := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		problems = append(problems, field+" "+describe(fe))
	}
	return problems
}

func describe(fe validator.FieldError) string {
	// Alternatives such as "email|len=0" are reported by their first tag.
	tag, _, _ := strings.Cut(fe.Tag(), "|")
	tag, param, _ := strings.Cut(tag, "=")
	if param == "" {
		param = fe.Param()
	}

	switch tag {
	case "required", "notblank":
		return "is required"
	case "email":
		return fmt.Sprintf("%q is not a valid email address", fe.Value())
	case "ahv":
		return fmt.Sprintf("%q is not a valid AHV number", fe.Value())
	case "iban":
		return fmt.Sprintf("%q is not a valid IBAN", fe.Value())
	case "oneof":
		return fmt.Sprintf("%q is not one of %s", fe.Value(), strings.Join(strings.Fields(param), ", "))
	case "gte":
		return "must be at least " + param
	case "lte":
		return "must be at most " + param
	default:
		return "failed " + tag + " validation"
	}
}

// IsValidAHV checks the format and the EAN-13 check digit of a Swiss social
// insurance number.
func IsValidAHV(ahv string) bool {
	if !ahvDottedRegex.MatchString(ahv) && !ahvPlainRegex.MatchString(ahv) {
		return false
	}
	digits := strings.ReplaceAll(ahv, ".", "")

	sum := 0
	for i := 0; i < 12; i++ {
		d := int(digits[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return check == int(digits[12]-'0')
}

// NormalizeIBAN strips spaces and upper-cases an IBAN.
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
}

// IsValidIBAN checks the IBAN layout and its mod-97 checksum.
func IsValidIBAN(iban string) bool {
	iban = NormalizeIBAN(iban)
	if !ibanRegex.MatchString(iban) {
		return false
	}

	rearranged := iban[4:] + iban[:4]
	remainder := 0
	for _, r := range rearranged {
		var v int
		switch {
		case r >= '0' && r <= '9':
			v = int(r - '0')
			remainder = (remainder*10 + v) % 97
		default:
			v = int(r-'A') + 10
			remainder = (remainder*100 + v) % 97
		}
	}
	return remainder == 1
}
