package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/alexisbeaulieu97/appbase/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	pluginNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_.-]*$`)
)

// validatorInstance configures and returns the shared validator instance.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("plugin_name", func(fl validator.FieldLevel) bool {
			return pluginNamePattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			raw := fl.Field().String()
			if raw == "" {
				return true // Allow empty if not required
			}
			_, err := semver.StrictNewVersion(raw)
			return err == nil
		})

		_ = v.RegisterValidation("semver_constraint", func(fl validator.FieldLevel) bool {
			raw := fl.Field().String()
			if raw == "" {
				return true
			}
			_, err := semver.NewConstraint(raw)
			return err == nil
		})

		validateInst = v
	})

	return validateInst
}

// GetValidator returns the configured validator instance.
func GetValidator() *validator.Validate {
	return validatorInstance()
}

// Struct validates value and converts the first failing field into a
// *errors.ValidationError.
func Struct(value any) error {
	err := validatorInstance().Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.NewValidationError("", err.Error(), err)
	}

	first := fieldErrs[0]
	return apperrors.NewValidationError(first.Namespace(), describe(first), err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "plugin_name":
		return fmt.Sprintf("%q must start with a lowercase letter and contain only [a-z0-9_.-]", fe.Value())
	case "semver":
		return fmt.Sprintf("%q is not a semantic version", fe.Value())
	case "semver_constraint":
		return fmt.Sprintf("%q is not a version constraint", fe.Value())
	case "oneof":
		return fmt.Sprintf("%v must be one of [%s]", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
