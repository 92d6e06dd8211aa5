package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/mentor-scheduling-api/internal/scheduling"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
)

// NewValidator returns a validator with the scheduling tags registered:
// hhmm accepts wall-clock "HH:MM" and timezone accepts loadable IANA names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := scheduling.ParseClock(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("timezone", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		if name == "" || name == "Local" {
			return false
		}
		_, err := time.LoadLocation(name)
		return err == nil
	})
	return v
}

// validationError turns validator output into a 400 whose message names
// every offending field and the rule it broke.
func validationError(err error, message string) *appErrors.Error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		parts := make([]string, 0, len(errs))
		for _, fe := range errs {
			field := fe.Namespace()
			if idx := strings.Index(field, "."); idx >= 0 {
				field = field[idx+1:]
			}
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
		message = message + ": " + strings.Join(parts, "; ")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
