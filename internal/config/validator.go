package config

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// report yaml or json field names instead of Go names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"yaml", "json", "params"} {
			name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	return validate
}
