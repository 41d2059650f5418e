package ldappasswd

import (
	"fmt"
)

// Error helper functions keep error construction consistent across the
// session and password-change code paths.

// connectionError creates a standardized dial error
func connectionError(server string, err error) error {
	ldapErr := NewLDAPError("Dial", server, fmt.Errorf("%w: %w", ErrConnectionFailed, err))
	return ldapErr.WithContext("error_type", "connection")
}

// startTLSError creates a standardized StartTLS error
func startTLSError(server string, err error) error {
	ldapErr := NewLDAPError("StartTLS", server, fmt.Errorf("%w: %w", ErrTLSNegotiation, err))
	return ldapErr.WithContext("error_type", "tls")
}

// operationCancelledError creates a standardized cancellation error
func operationCancelledError(operation, identifier, server string, err error) error {
	return fmt.Errorf("%s cancelled for %s: %w", operation, identifier, WrapLDAPError(operation, server, err))
}

// validationError creates a standardized config validation error
func validationError(field string, value interface{}, reason string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: reason,
	}
}
