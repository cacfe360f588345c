package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/campusfix/dispatch/internal/campus"
	"github.com/campusfix/dispatch/internal/models"
)

// NewValidator registers the dispatch tags: campus_building checks a name
// against the catalog, trade and priority check the enums.
func NewValidator(catalog *campus.Catalog) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("campus_building", func(fl validator.FieldLevel) bool {
		if catalog == nil {
			return fl.Field().String() != ""
		}
		_, ok := catalog.Lookup(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("trade", func(fl validator.FieldLevel) bool {
		return models.Trade(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		return models.Priority(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("assignment_status", func(fl validator.FieldLevel) bool {
		return models.AssignmentStatus(fl.Field().String()).Valid()
	})
	return v
}

func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			out = append(out, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		out = append(out, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
	}
	return out
}
