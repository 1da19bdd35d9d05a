package auth

import (
	"errors"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"studytube/backend/internal/apperror"
)

// Validate checks the record against the user schema before it is stored.
// A rejected record yields an *apperror.Fault of kind FaultValidation.
func (u *User) Validate() error {
	err := validation.Errors{
		"name":     validation.Validate(u.Name, validation.Required, validation.Length(1, 100)),
		"email":    validation.Validate(u.Email, validation.Required, is.Email.Error("must be a valid email address")),
		"password": validation.Validate(u.PasswordHash, validation.Required.Error("hash is required")),
	}.Filter()
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return apperror.InvalidWithCause(err)
	}

	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]apperror.FieldError, 0, len(fields))
	for _, field := range fields {
		out = append(out, apperror.FieldError{Field: field, Message: errs[field].Error()})
	}
	return apperror.InvalidWithCause(err, out...)
}
