package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"athletics-registry/internal/tabular"
)

// ValidationError reports the first field a draft got wrong.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Kind() tabular.Kind { return tabular.KindValidation }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name := strings.SplitN(f.Tag.Get("col"), ",", 2)[0]; name != "" {
				return name
			}
			return f.Name
		})
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return Category(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("agegroup", func(fl validator.FieldLevel) bool {
			return AgeGroup(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

// Check runs the struct tags of a draft.
func Check(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: fe.Field(), Message: messageFor(fe)}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "category":
		return fmt.Sprintf("must be %s or %s", CategoryMale, CategoryFemale)
	case "agegroup":
		return fmt.Sprintf("must be one of %s .. %s", AgeGroups[0], AgeGroups[len(AgeGroups)-1])
	}
	return "failed " + fe.Tag()
}
