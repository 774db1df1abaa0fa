package dto

import (
	"errors"
	"html"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/domain"
	autherror "github.com/AnthoniusHendriyanto/auth-core/internal/errors"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

const passwordSymbols = "@$!%*#?&"

var (
	validate   = newValidator()
	namePolicy = bluemonday.StrictPolicy()
	spaces     = regexp.MustCompile(`\s+`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// IsStrongPassword requires at least one ASCII letter, one digit and one of
// the allowed symbols. Length is checked by the min tag.
func IsStrongPassword(pw string) bool {
	var letter, digit, symbol bool
	for _, r := range pw {
		switch {
		case r <= unicode.MaxASCII && unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	return letter && digit && symbol
}

// NormalizeName strips markup and collapses runs of whitespace.
func NormalizeName(name string) string {
	name = html.UnescapeString(namePolicy.Sanitize(name))
	return strings.TrimSpace(spaces.ReplaceAllString(name, " "))
}

func ValidateSignup(in SignupInput) (SignupInput, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	in.FullName = NormalizeName(in.FullName)
	if in.OrganizationID != nil {
		org := strings.TrimSpace(*in.OrganizationID)
		if org == "" {
			in.OrganizationID = nil
		} else {
			in.OrganizationID = &org
		}
	}
	return in, check(in)
}

func ValidateLogin(in LoginInput) (LoginInput, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	return in, check(in)
}

func ValidateEmailInput(in EmailInput) (EmailInput, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	return in, check(in)
}

func ValidateTokenInput(in TokenInput) (TokenInput, error) {
	in.Token = strings.TrimSpace(in.Token)
	return in, check(in)
}

func ValidateResetPassword(in ResetPasswordInput) (ResetPasswordInput, error) {
	in.Token = strings.TrimSpace(in.Token)
	return in, check(in)
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return autherror.Validation(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "uuid":
		return "must be a valid UUID"
	case "password":
		return "must contain at least one letter, one number, and one special character (" + passwordSymbols + ")"
	default:
		return "is invalid"
	}
}
