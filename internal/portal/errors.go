package portal

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/me/partnerportal/pkg/model"
)

var (
	// ErrForbidden is returned when a session may not access a client record.
	ErrForbidden = errors.New("access to this onboarding is not permitted")
	// ErrRateLimited is returned when an email exceeded its OTP allowance.
	ErrRateLimited = errors.New("too many code requests, try again later")
	// ErrInvalidCode is returned when the backend rejected a one-time code.
	ErrInvalidCode = errors.New("invalid or expired code")
)

// ValidationError carries per-field input problems.
type ValidationError struct {
	Fields []model.FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

// validateVar runs a validator tag against a single value and converts the
// outcome into a ValidationError for field.
func validateVar(v *validator.Validate, field string, value any, tag string) error {
	err := v.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, model.FieldError{Field: field, Message: describeTag(fe.Tag(), fe.Param())})
	}
	return ve
}

func describeTag(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "numeric":
		return "must contain digits only"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	}
	return "failed " + tag + " check"
}
