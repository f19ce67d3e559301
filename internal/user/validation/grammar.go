package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"social-accounts/internal/admission"
)

const tagEmailDomain = "email_domain"

type emailInput struct {
	Email string `field:"email" validate:"required,email,email_domain"`
}

type passwordInput struct {
	Password string `field:"password" validate:"required,min=8"`
}

var (
	validate = newStructValidator()
	trans    = newTranslator(validate)
)

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("field"); name != "" {
			return name
		}
		return f.Name
	})
	_ = v.RegisterValidation(tagEmailDomain, validEmailDomain)
	return v
}

func newTranslator(v *validator.Validate) ut.Translator {
	english := en.New()
	uni := ut.New(english, english)
	t, _ := uni.GetTranslator("en")
	_ = entranslations.RegisterDefaultTranslations(v, t)
	_ = v.RegisterTranslation(tagEmailDomain, t,
		func(t ut.Translator) error {
			return t.Add(tagEmailDomain, "{0} must have a domain with at least one dot", true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(tagEmailDomain, fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
	return t
}

// validEmailDomain requires dot-separated, non-empty labels after the final '@'.
func validEmailDomain(fl validator.FieldLevel) bool {
	domain, ok := admission.DomainOf(fl.Field().String())
	if !ok || !strings.Contains(domain, ".") {
		return false
	}
	for _, label := range strings.Split(domain, ".") {
		if label == "" {
			return false
		}
	}
	return true
}
