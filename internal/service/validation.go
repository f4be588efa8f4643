package service

import (
	"errors"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/nyaruka/phonenumbers"
)

const (
	minPasswordLength = 6
	// bcrypt ignora lo que pase de 72 bytes.
	maxPasswordLength = 72
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeMobile devuelve el número en E.164. Sin prefijo internacional
// se interpreta con la región por defecto.
func normalizeMobile(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("is required")
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", errors.New("is not a valid phone number")
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("is not a valid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func validatePassword(field, password string) error {
	switch {
	case password == "":
		return fieldError(field, "cannot be blank")
	case utf8.RuneCountInString(password) < minPasswordLength:
		return fieldError(field, "must be at least 6 characters")
	case len(password) > maxPasswordLength:
		return fieldError(field, "must be at most 72 bytes")
	}
	return nil
}

// toValidationError aplana validation.Errors anidados en claves con punto.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string)}
	flattenErrors("", errs, out.Fields)
	if len(out.Fields) == 0 {
		return nil
	}
	return out
}

func flattenErrors(prefix string, errs validation.Errors, dst map[string]string) {
	for field, fieldErr := range errs {
		if fieldErr == nil {
			continue
		}
		key := field
		if prefix != "" {
			key = prefix + "." + field
		}
		var nested validation.Errors
		if errors.As(fieldErr, &nested) {
			flattenErrors(key, nested, dst)
			continue
		}
		dst[key] = fieldErr.Error()
	}
}

func mergeValidation(dst *ValidationError, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	for k, v := range ve.Fields {
		dst.Fields[k] = v
	}
	return nil
}
