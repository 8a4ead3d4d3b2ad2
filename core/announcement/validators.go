package announcement

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/campushub/backend/core"
)

var (
	typeTag  = "announcementtype"
	typeText = "invalid announcement type"

	targetTag  = "announcementtarget"
	targetText = "invalid announcement target"
)

// RegisterValidators registers announcement-specific validators and their translations.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(typeTag, oneOfValidation(AllTypes))
	core.RegisterCustomTranslation(validate, translator, typeTag, typeText)

	_ = validate.RegisterValidation(targetTag, oneOfValidation(AllTargets))
	core.RegisterCustomTranslation(validate, translator, targetTag, targetText)
}

func oneOfValidation(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		if val == "" {
			return true
		}
		for _, a := range allowed {
			if val == a {
				return true
			}
		}
		return false
	}
}
