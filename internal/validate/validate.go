// Package validate checks the credentials a session needs before it may
// touch any audio device or remote service.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/alkime/voxrelay/internal/failure"
	"github.com/go-playground/validator/v10"
)

// emailPattern is intentionally loose: it only asks for something@something.something
// and lets quotes-free domains with spaces through. Do not tighten it.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^"]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// EmailStatus distinguishes a field the user has not filled in yet from one
// that is wrong. Only Valid allows recording.
type EmailStatus int

const (
	EmailEmpty EmailStatus = iota
	EmailInvalid
	EmailValid
)

// StatusOf classifies s.
func StatusOf(s string) EmailStatus {
	switch {
	case s == "":
		return EmailEmpty
	case ValidEmail(s):
		return EmailValid
	default:
		return EmailInvalid
	}
}

// ShowError reports whether the UI should flag the field.
func (s EmailStatus) ShowError() bool {
	return s == EmailInvalid
}

// Credentials are the two user-supplied values held by a session.
type Credentials struct {
	APIKey string `validate:"required,notblank"`
	Email  string `validate:"required,loose_email"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		//nolint:errcheck // only fails on an empty tag or nil func
		validate.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
			return ValidEmail(fl.Field().String())
		})
		//nolint:errcheck // only fails on an empty tag or nil func
		validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})

	return validate
}

// Check returns nil when both credentials are usable, and an error wrapping
// failure.ErrValidationFailed naming the offending fields otherwise.
func (c Credentials) Check() error {
	err := instance().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", failure.ErrValidationFailed, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, describe(fe))
	}

	return fmt.Errorf("%w: %s", failure.ErrValidationFailed, strings.Join(fields, ", "))
}

// Valid is Check without the error detail.
func (c Credentials) Valid() bool {
	return c.Check() == nil
}

func describe(fe validator.FieldError) string {
	switch fe.Field() {
	case "APIKey":
		return "API key is required"
	case "Email":
		if fe.Tag() == "required" {
			return "email is required"
		}

		return "email is invalid"
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
