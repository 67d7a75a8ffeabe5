package validatex

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"renttalk-tenant-portal/shared/workflow"
)

type FieldProblem struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the portal's custom rules.
// Field names in problems are the JSON names.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("issue_category", func(fl validator.FieldLevel) bool {
			return workflow.IsIssueCategory(fl.Field().String())
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		instance = v
	})
	return instance
}

func Struct(s any) error {
	return Validator().Struct(s)
}

// Problems flattens a validation error into per-field problems. Other
// errors yield nil.
func Problems(err error) []FieldProblem {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldProblem, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldProblem{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: message(fe),
		})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "issue_category":
		return fe.Field() + " must be one of: " + strings.Join(workflow.IssueCategories(), ", ")
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "min", "gte", "gt":
		return fe.Field() + " must be at least " + fe.Param()
	case "lte":
		return fe.Field() + " must be at most " + fe.Param()
	case "email":
		return fe.Field() + " must be a valid email"
	case "url":
		return fe.Field() + " must be a valid url"
	default:
		return fe.Field() + " is invalid"
	}
}
