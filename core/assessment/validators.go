package assessment

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/campushub/backend/core"
)

var (
	typeTag  = "assessmenttype"
	typeText = "invalid assessment type"
)

// RegisterValidators registers assessment-specific validators and their translations.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(typeTag, typeValidation)
	core.RegisterCustomTranslation(validate, translator, typeTag, typeText)
}

func typeValidation(fl validator.FieldLevel) bool {
	typ := fl.Field().String()
	if typ == "" {
		return true
	}
	for _, t := range AllTypes {
		if typ == t {
			return true
		}
	}
	return false
}
