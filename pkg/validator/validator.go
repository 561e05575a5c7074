package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"incidentLog/internal/domain"
	"incidentLog/pkg/e"
)

var validate *validator.Validate

// messages maps "<json field>.<failed tag>" to the text shown to users.
var messages = map[string]string{
	"title.notblank":       "Title is required",
	"title.max":            "Title cannot be more than 100 characters",
	"description.notblank": "Description is required",
	"severity.required":    "Severity is required",
	"severity.oneof":       "Severity must be either Low, Medium, or High",
}

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidateIncident checks an incident draft and returns it with title and
// description trimmed. The length rule is applied to the raw title.
func ValidateIncident(req domain.CreateIncidentRequest) (domain.CreateIncidentRequest, error) {
	if err := ValidateStruct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return domain.CreateIncidentRequest{}, err
		}

		out := &e.ValidationError{Messages: make([]string, 0, len(fieldErrs))}
		for _, fe := range fieldErrs {
			msg, ok := messages[fe.Field()+"."+fe.Tag()]
			if !ok {
				msg = fe.Field() + " is invalid"
			}
			out.Messages = append(out.Messages, msg)
		}
		return domain.CreateIncidentRequest{}, out
	}

	return domain.CreateIncidentRequest{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Severity:    req.Severity,
		ReportedAt:  req.ReportedAt,
	}, nil
}
