package models

import (
	"errors"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
)

const (
	MaxTags      = 50
	MaxTagLength = 100
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("case_type", func(fl validator.FieldLevel) bool {
		s, ok := stringValue(fl.Field())
		return !ok || CaseType(s).IsValid()
	})
	_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		s, ok := stringValue(fl.Field())
		return !ok || Priority(s).IsValid()
	})
	return v
}

func stringValue(v reflect.Value) (string, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.String {
		return "", false
	}
	return v.String(), true
}

// CreateCaseRequest carries the caller-supplied fields of a new case.
type CreateCaseRequest struct {
	Title       string         `json:"title" validate:"required,max=255"`
	Description string         `json:"description" validate:"max=5000"`
	CaseType    CaseType       `json:"case_type" validate:"required,case_type"`
	Priority    Priority       `json:"priority" validate:"omitempty,priority"`
	Metadata    map[string]any `json:"metadata"`
	Tags        []string       `json:"tags"`
}

// Validate checks the request before any number is allocated.
func (r *CreateCaseRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if err := validate.Struct(r); err != nil {
		return translateValidation(err)
	}
	if strings.TrimSpace(r.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "title must not be blank")
	}
	return validateTags(r.Tags)
}

// UpdateCaseRequest is a partial update; nil fields are left unchanged.
// ExpectedVersion, when set, must match the stored version.
type UpdateCaseRequest struct {
	Title           *string         `json:"title" validate:"omitempty,max=255"`
	Description     *string         `json:"description" validate:"omitempty,max=5000"`
	Priority        *Priority       `json:"priority" validate:"omitempty,priority"`
	Tags            *[]string       `json:"tags"`
	Metadata        *map[string]any `json:"metadata"`
	ExpectedVersion *int64          `json:"-"`
}

func (r *UpdateCaseRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if err := validate.Struct(r); err != nil {
		return translateValidation(err)
	}
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "title must not be blank")
	}
	if r.Tags != nil {
		return validateTags(*r.Tags)
	}
	return nil
}

// IsEmpty reports a patch that changes nothing.
func (r *UpdateCaseRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.Priority == nil && r.Tags == nil && r.Metadata == nil
}

// AssignRequest names the new assignee.
type AssignRequest struct {
	AssigneeID      id.UserID
	ExpectedVersion *int64
}

func (r AssignRequest) Validate() error {
	if r.AssigneeID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "assignee is required")
	}
	return nil
}

// TransitionRequest carries the free-text reason or note of close, escalate and review.
type TransitionRequest struct {
	Reason          string
	ExpectedVersion *int64
}

func (r TransitionRequest) Validate() error {
	if utf8.RuneCountInString(r.Reason) > MaxDescriptionLength {
		return dErrors.Newf(dErrors.CodeValidation, "reason must be at most %d characters", MaxDescriptionLength)
	}
	return nil
}

func validateTags(tags []string) error {
	if len(tags) > MaxTags {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d tags are allowed", MaxTags)
	}
	for _, t := range tags {
		if utf8.RuneCountInString(t) > MaxTagLength {
			return dErrors.Newf(dErrors.CodeValidation, "tags must be at most %d characters", MaxTagLength)
		}
	}
	return nil
}

func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid request")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return dErrors.Newf(dErrors.CodeValidation, "%s is required", fe.Field())
	case "max":
		return dErrors.Newf(dErrors.CodeValidation, "%s must be at most %s characters", fe.Field(), fe.Param())
	case "case_type":
		return dErrors.Newf(dErrors.CodeValidation, "unknown case type: %v", fe.Value())
	case "priority":
		return dErrors.Newf(dErrors.CodeValidation, "unknown priority: %v", fe.Value())
	default:
		return dErrors.Newf(dErrors.CodeValidation, "%s is invalid", fe.Field())
	}
}
