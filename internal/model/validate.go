package model

import (
	"errors"
	"strings"
)

var (
	ErrFileNameRequired = errors.New("fileName is required")
	ErrFileNameInvalid  = errors.New("fileName must be a plain file name")
	ErrContentRequired  = errors.New("content is required")
	ErrIDRequired       = errors.New("documentId is required")
	ErrEditNumber       = errors.New("editNumber must be >= 1")
)

// ValidateFileName checks that name is usable as the last segment of a blob key.
func ValidateFileName(name string) error {
	n := strings.TrimSpace(name)
	if n == "" {
		return ErrFileNameRequired
	}
	if n == "." || n == ".." || strings.ContainsAny(n, `/\`) {
		return ErrFileNameInvalid
	}
	return nil
}

// OrDefault returns v, or def when v is blank.
func OrDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
