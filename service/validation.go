package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"ziwuxx-intake/models"
)

// whitespace is the set browsers treat as \s in form patterns, which is
// wider than RE2's \s.
const whitespace = `\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}`

var (
	emailPattern    = regexp.MustCompile(`^[^` + whitespace + `@]+@[^` + whitespace + `@]+\.[^` + whitespace + `@]+$`)
	mobilePattern   = regexp.MustCompile(`^1[3-9]\d{9}$`)
	phoneSeparators = regexp.MustCompile(`[` + whitespace + `-]`)
)

// SubmitRequest is the enrollment form as posted by the landing page.
type SubmitRequest struct {
	Phone      string `json:"phone" form:"phone" validate:"required,cnmobile"`
	Email      string `json:"email" form:"email" validate:"required,looseemail"`
	GradeLevel string `json:"gradeLevel" form:"gradeLevel" validate:"required,gradelevel"`
	Project    string `json:"project" form:"project" validate:"required,project"`
	Message    string `json:"message" form:"message"`
}

// IsMobile reports whether phone is an 11 digit mainland mobile number
// once spaces and hyphens are removed.
func IsMobile(phone string) bool {
	return mobilePattern.MatchString(phoneSeparators.ReplaceAllString(phone, ""))
}

// trimWhitespace strips the same whitespace set the patterns use.
func trimWhitespace(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\ufeff'
	})
}

func IsEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	rules := map[string]func(string) bool{
		"cnmobile":   IsMobile,
		"looseemail": IsEmail,
		"gradelevel": models.IsGradeLevel,
		"project":    models.IsProject,
	}
	for tag, fn := range rules {
		fn := fn
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		}); err != nil {
			panic(err)
		}
	}
	return v
}

// Failures are reported in a fixed order: any missing field first, then
// email, phone, grade level and project.
var validationOrder = []struct {
	tag  string
	kind ValidationKind
}{
	{"required", MissingField},
	{"looseemail", InvalidEmail},
	{"cnmobile", InvalidPhone},
	{"gradelevel", InvalidGradeLevel},
	{"project", InvalidProject},
}

func classifyValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, rule := range validationOrder {
		for _, fe := range fieldErrs {
			if fe.Tag() == rule.tag {
				return &ValidationError{Kind: rule.kind, Field: fe.Field()}
			}
		}
	}
	return &ValidationError{Kind: MissingField, Field: fieldErrs[0].Field()}
}
