package course

import (
	"github.com/go-playground/validator/v10"

	"github.com/darasa-lms/darasa/core"
)

var (
	courseStatusTag  = "coursestatus"
	courseStatusText = "invalid course status"
)

func init() {
	_ = core.Validate.RegisterValidation(courseStatusTag, courseStatusValidation)
	core.RegisterCustomTranslation(courseStatusTag, courseStatusText)
}

// courseStatusValidation checks that the provided status is a known one.
func courseStatusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range Statuses {
		if status == s {
			return true
		}
	}
	return false
}
