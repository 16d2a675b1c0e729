package runtime

import (
	"strings"

	"domogateway/pkg/runtime/constant"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

type ValidateNameFunc func(name string) error

func Validate(name string, nameFn ValidateNameFunc) field.ErrorList {
	return ValidateObjectMeta(name, nameFn)
}

func ValidateObjectMeta(name string, nameFn ValidateNameFunc) field.ErrorList {
	var allErrs field.ErrorList
	if len(name) == 0 {
		allErrs = append(allErrs, field.Required(field.NewPath("name"), ""))
	} else if err := nameFn(name); err != nil {
		allErrs = append(allErrs, field.Invalid(field.NewPath("name"), name, err.Error()))
	}
	return allErrs
}

// ValidateConnection checks the settings every polled device shares. A port
// of 0 selects the protocol default.
func ValidateConnection(host string, port int, pollingInterval int) field.ErrorList {
	var allErrs field.ErrorList
	if len(strings.TrimSpace(host)) == 0 {
		allErrs = append(allErrs, field.Required(field.NewPath("host"), "host must not be blank"))
	}
	if port < 0 || port > 65535 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("port"), port, "must be between 1 and 65535"))
	}
	if pollingInterval < 1 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("pollingInterval"), pollingInterval, "must be at least 1 second"))
	}
	return allErrs
}

// ConfigurationError folds field errors into the error a broker setup returns.
func ConfigurationError(errs field.ErrorList) error {
	if len(errs) == 0 {
		return nil
	}
	return &constant.ConfigurationError{Field: errs[0].Field, Reason: errs.ToAggregate().Error()}
}
