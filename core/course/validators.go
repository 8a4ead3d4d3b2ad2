package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/campushub/backend/core"
)

var (
	materialTypeTag  = "materialtype"
	materialTypeText = "invalid material type"

	enrollmentStatusTag  = "enrollmentstatus"
	enrollmentStatusText = "invalid enrollment status"
)

// RegisterValidators registers course-specific validators and their translations.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(materialTypeTag, oneOfValidation(AllMaterialTypes))
	core.RegisterCustomTranslation(validate, translator, materialTypeTag, materialTypeText)

	_ = validate.RegisterValidation(enrollmentStatusTag, oneOfValidation(AllEnrollmentStatuses))
	core.RegisterCustomTranslation(validate, translator, enrollmentStatusTag, enrollmentStatusText)
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
