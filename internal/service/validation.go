package service

import (
	"net/mail"
	"strings"
)

// FieldError es una violación de regla sobre un campo concreto.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError agrupa todas las violaciones encontradas en una petición,
// no solo la primera.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func validateUsername(username string) []FieldError {
	var errs []FieldError
	if len(username) < 5 {
		errs = append(errs, FieldError{Field: "username", Message: "Username should be at least 5 characters long"})
	}
	if len(username) > 50 {
		errs = append(errs, FieldError{Field: "username", Message: "Username should not exceed 50 characters"})
	}
	return errs
}

func validatePassword(password string) []FieldError {
	var errs []FieldError
	if len(password) < 6 {
		errs = append(errs, FieldError{Field: "password", Message: "Password should be at least 6 characters long"})
	}
	if len(password) > 20 {
		errs = append(errs, FieldError{Field: "password", Message: "Password should not exceed 20 characters"})
	}
	return errs
}

func validateSignup(username, email, password string) *ValidationError {
	var errs []FieldError
	errs = append(errs, validateUsername(username)...)

	if _, err := mail.ParseAddress(email); err != nil {
		errs = append(errs, FieldError{Field: "email", Message: "Invalid email format"})
	}
	if len(email) < 5 {
		errs = append(errs, FieldError{Field: "email", Message: "Email should be at least 5 characters long"})
	}
	if len(email) > 50 {
		errs = append(errs, FieldError{Field: "email", Message: "Email should not exceed 50 characters"})
	}

	errs = append(errs, validatePassword(password)...)

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func validateLogin(username, password string) *ValidationError {
	var errs []FieldError
	errs = append(errs, validateUsername(username)...)
	errs = append(errs, validatePassword(password)...)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
