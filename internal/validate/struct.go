package validate

import (
	"fmt"
	"html"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	v      = newValidator()
	strict = bluemonday.StrictPolicy()
)

func newValidator() *validator.Validate {
	vd := validator.New(validator.WithRequiredStructEnabled())
	// field names in messages follow the form/json names
	vd.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	_ = vd.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return rePhone.MatchString(fl.Field().String())
	})
	_ = vd.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})
	_ = vd.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("15:04", fl.Field().String())
		return err == nil
	})
	return vd
}

// FieldErrors maps a field name to a user-facing message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Struct checks validate tags on s. It returns FieldErrors or nil.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Please enter %s", humanize(f))
	case "email":
		return "Please enter a valid email address"
	case "phone":
		return "Please enter a valid phone number"
	case "isodate":
		return "Please enter a date as YYYY-MM-DD"
	case "hhmm":
		return "Please pick a time slot"
	case "min":
		return fmt.Sprintf("%s must be at least %s", humanize(f), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", humanize(f), fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s must be greater than %s", humanize(f), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", humanize(f), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", humanize(f))
}

func humanize(field string) string {
	var b strings.Builder
	for i, r := range field {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
		case i > 0 && r >= 'A' && r <= 'Z':
			b.WriteRune(' ')
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CleanText strips markup from free text such as notes and SOAP entries.
// Entities are decoded again since templates escape on output.
func CleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
