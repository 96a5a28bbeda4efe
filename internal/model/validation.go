package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so issues match the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Issue is one problem found in a request.
type Issue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError is returned when client input does not satisfy the
// submission shape. It is reported as 422 before any store access.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.Join(is.Loc, "."), is.Msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a single-issue ValidationError.
func NewValidationError(loc []string, msg, typ string) *ValidationError {
	return &ValidationError{Issues: []Issue{{Loc: loc, Msg: msg, Type: typ}}}
}

// DecodeSubmission reads a JSON submission from r and validates it.
func DecodeSubmission(r io.Reader) (*Submission, error) {
	var s Submission
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, decodeError(err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the submission constraints.
func (s *Submission) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewValidationError([]string{"body"}, err.Error(), "value_error")
	}

	out := &ValidationError{Issues: make([]Issue, 0, len(verrs))}
	for _, fe := range verrs {
		out.Issues = append(out.Issues, issueFor(fe))
	}
	return out
}

func issueFor(fe validator.FieldError) Issue {
	is := Issue{Loc: []string{"body", fe.Field()}}
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		is.Msg, is.Type = "Field required", "missing"
	case "min":
		if isString {
			is.Msg, is.Type = fmt.Sprintf("String should have at least %s characters", fe.Param()), "string_too_short"
		} else {
			is.Msg, is.Type = fmt.Sprintf("Input should be greater than or equal to %s", fe.Param()), "greater_than_equal"
		}
	case "max":
		if isString {
			is.Msg, is.Type = fmt.Sprintf("String should have at most %s characters", fe.Param()), "string_too_long"
		} else {
			is.Msg, is.Type = fmt.Sprintf("Input should be less than or equal to %s", fe.Param()), "less_than_equal"
		}
	case "email":
		is.Msg, is.Type = "value is not a valid email address", "value_error"
	default:
		is.Msg, is.Type = fmt.Sprintf("failed on the '%s' rule", fe.Tag()), "value_error"
	}
	return is
}

func decodeError(err error) *ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		loc := []string{"body"}
		if typeErr.Field != "" {
			loc = append(loc, strings.Split(typeErr.Field, ".")...)
		}
		return NewValidationError(loc, fmt.Sprintf("Input should be a valid %s", typeErr.Type.Kind()), "type_error")
	}
	if errors.Is(err, io.EOF) {
		return NewValidationError([]string{"body"}, "Field required", "missing")
	}
	return NewValidationError([]string{"body"}, "JSON decode error: "+err.Error(), "json_invalid")
}
