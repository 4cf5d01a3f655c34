package serverutils

import (
	"errors"
	"fmt"

	"own-ai-chat/pkg/apperr"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest checks validate tags and reports the first failing field.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperr.New(apperr.Validation, "validate", fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return apperr.Wrap(apperr.Validation, "validate", err)
}
