package config

import (
	"errors"
	"fmt"
	"strings"
)

var errNoSecretResolver = errors.New("no secret resolver configured")

// ValidationError lists the fields that are missing or out of range.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return "config: invalid " + strings.Join(e.fields, ", ")
}

// Fields returns a copy of the offending field names.
func (e *ValidationError) Fields() []string { return append([]string(nil), e.fields...) }

// SecretError wraps a failed secret:// lookup.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("config: resolve %s: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError names required secret fields that came back empty.
type MissingSecretsError struct {
	names []string
}

func (e *MissingSecretsError) Error() string {
	return "config: required secrets are empty: " + strings.Join(e.names, ", ")
}

// Names returns the config field names, never the values.
func (e *MissingSecretsError) Names() []string { return append([]string(nil), e.names...) }
