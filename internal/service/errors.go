package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation             = errors.New("validation error")
	ErrDuplicateCredential    = errors.New("email or mobile already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrEmailUnverified        = errors.New("email not verified")
	ErrNoToken                = errors.New("no token provided")
	ErrTokenInvalid           = errors.New("invalid token")
	ErrTokenExpired           = errors.New("token expired")
	ErrTokenNotFoundOrExpired = errors.New("invalid or expired token")
	ErrAccessDenied           = errors.New("access denied")
	ErrAccountNotFound        = errors.New("account not found")
	ErrRateLimited            = errors.New("rate limited")
)

// ValidationError lleva el detalle por campo de una entrada rechazada.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func fieldError(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
