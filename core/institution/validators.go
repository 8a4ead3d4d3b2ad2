package institution

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/campushub/backend/core"
)

var (
	statusTag  = "institutionstatus"
	statusText = "invalid institution status"
)

// RegisterValidators registers institution-specific validators and their translations.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

func statusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	if status == "" {
		return true
	}
	for _, s := range AllStatuses {
		if status == s {
			return true
		}
	}
	return false
}
