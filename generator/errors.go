package generator

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTopic        = errors.New("topic is required")
	ErrInvalidField      = errors.New("invalid field value")
	ErrMissingCredential = errors.New("api key missing")
	ErrAuth              = errors.New("llm authentication failed")
	ErrGeneration        = errors.New("llm generation failed")
)

// FieldError names the request field that holds an unsupported value.
type FieldError struct {
	Field string
	Value string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: unsupported value %q", e.Field, e.Value)
}

func (e *FieldError) Unwrap() error { return ErrInvalidField }

const (
	msgEmptyTopic        = "Please enter a topic."
	msgMissingCredential = "Please enter your API key to get started."
	msgFailure           = "Error: the API key seems invalid or there is a connection problem."
)

// UserMessage turns a Generate error into text that is safe to show on the page.
func UserMessage(err error) string {
	var fe *FieldError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyTopic):
		return msgEmptyTopic
	case errors.As(err, &fe):
		return fmt.Sprintf("Please choose a valid %s.", fe.Field)
	case errors.Is(err, ErrMissingCredential):
		return msgMissingCredential
	default:
		return msgFailure
	}
}

// IsUserError reports errors caused by the submitted input rather than the model call.
func IsUserError(err error) bool {
	return errors.Is(err, ErrEmptyTopic) || errors.Is(err, ErrInvalidField)
}
