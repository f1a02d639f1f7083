package service

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/go-playground/validator/v10"
)

// validate checks the `validate` tags of service parameters. Field errors are
// keyed by their JSON names so that API clients and the form layer can
// attribute them.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	// maxbytes bounds the encoded length; max counts runes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= n
	})
	return v
}

// fieldLabels overrides the label derived from a JSON key.
var fieldLabels = map[string]string{
	"vehicle_info.type":       "Vehicle type",
	"vehicle_info.capacity":   "Vehicle capacity",
	"vehicle_info.dimensions": "Vehicle dimensions",
	"message":                 "Message",
}

// checkParams validates each value and merges the field errors into a single
// *domain.ValidationError. It returns nil when every value is valid.
func checkParams(op string, values ...any) error {
	var fields map[string]string
	for _, v := range values {
		if v == nil {
			continue
		}
		err := validate.Struct(v)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return domain.Internal(err, op, "Failed to validate input")
		}
		if fields == nil {
			fields = make(map[string]string, len(verrs))
		}
		for _, fe := range verrs {
			key := fieldKey(fe.Namespace())
			if _, exists := fields[key]; !exists {
				fields[key] = fieldMessage(key, fe)
			}
		}
	}
	if fields == nil {
		return nil
	}
	return &domain.ValidationError{Op: op, Fields: fields}
}

// fieldKey strips the root struct name from a validator namespace:
// "DriverProfile.vehicle_info.type" becomes "vehicle_info.type".
func fieldKey(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func fieldLabel(key string) string {
	if label, ok := fieldLabels[key]; ok {
		return label
	}
	label := strings.ReplaceAll(key, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func fieldMessage(key string, fe validator.FieldError) string {
	label := fieldLabel(key)
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Please enter a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", label, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s is too long (%s bytes max)", label, fe.Param())
	case "gt":
		return label + " must be positive"
	}
	return label + " is invalid"
}
