package ldappasswd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// LDAPError represents an error with context for a single LDAP operation.
// It wraps the underlying error while recording where it happened.
type LDAPError struct {
	// Op is the operation name (e.g., "Bind", "PasswordModify")
	Op string
	// DN is the distinguished name involved in the operation (if applicable)
	DN string
	// Server is the LDAP server URL
	Server string
	// Code is the LDAP result code, 0 when the failure did not come from the directory
	Code int
	// Err is the underlying error
	Err error
	// Context contains additional context information for debugging
	Context map[string]interface{}
	// Timestamp indicates when the error occurred
	Timestamp time.Time
}

// Error implements the error interface, providing a formatted error message.
func (e *LDAPError) Error() string {
	if e.DN != "" {
		return fmt.Sprintf("ldap %s failed for DN %q on server %q: %v", e.Op, e.DN, e.Server, e.Err)
	}
	return fmt.Sprintf("ldap %s failed on server %q: %v", e.Op, e.Server, e.Err)
}

// Unwrap implements the Go 1.13+ error unwrapping interface.
func (e *LDAPError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches target. Besides the wrapped chain, an
// LDAPError matches the sentinel that corresponds to its result code.
func (e *LDAPError) Is(target error) bool {
	if ldapErr, ok := target.(*LDAPError); ok {
		return e.Op == ldapErr.Op && e.Code == ldapErr.Code
	}
	if sentinel := sentinelForCode(e.Code); sentinel != nil && sentinel == target {
		return true
	}
	return errors.Is(e.Err, target)
}

// Sentinel errors for common failures. Use errors.Is to test for them.
var (
	// Connection errors
	ErrConnectionFailed  = errors.New("ldap: connection failed")
	ErrServerUnavailable = errors.New("ldap: server unavailable")
	ErrTLSNegotiation    = errors.New("ldap: StartTLS negotiation failed")

	// Authentication errors
	ErrAuthenticationFailed = errors.New("ldap: authentication failed")
	ErrInvalidCredentials   = errors.New("ldap: invalid credentials")

	// Authorization errors
	ErrInsufficientAccess = errors.New("ldap: insufficient access")
	ErrUnwillingToPerform = errors.New("ldap: server unwilling to perform")

	// Data errors
	ErrInvalidDN           = errors.New("ldap: invalid distinguished name")
	ErrObjectNotFound      = errors.New("ldap: object not found")
	ErrConstraintViolation = errors.New("ldap: constraint violation")

	// Protocol errors
	ErrProtocolError        = errors.New("ldap: protocol error")
	ErrUnsupportedOperation = errors.New("ldap: unsupported operation")

	// Context errors
	ErrContextCancelled        = errors.New("ldap: context cancelled")
	ErrContextDeadlineExceeded = errors.New("ldap: context deadline exceeded")

	// ErrSessionReleased is returned when a Session is used after its scope ended.
	ErrSessionReleased = errors.New("ldap: session already released")
)

func sentinelForCode(code int) error {
	switch uint16(code) {
	case ldap.LDAPResultInvalidCredentials:
		return ErrInvalidCredentials
	case ldap.LDAPResultInappropriateAuthentication:
		return ErrAuthenticationFailed
	case ldap.LDAPResultInsufficientAccessRights:
		return ErrInsufficientAccess
	case ldap.LDAPResultUnwillingToPerform:
		return ErrUnwillingToPerform
	case ldap.LDAPResultNoSuchObject:
		return ErrObjectNotFound
	case ldap.LDAPResultInvalidDNSyntax:
		return ErrInvalidDN
	case ldap.LDAPResultConstraintViolation:
		return ErrConstraintViolation
	case ldap.LDAPResultUnavailable, ldap.LDAPResultBusy:
		return ErrServerUnavailable
	case ldap.LDAPResultProtocolError:
		return ErrProtocolError
	case ldap.LDAPResultOperationsError:
		return ErrUnsupportedOperation
	case ldap.ErrorNetwork:
		return ErrConnectionFailed
	}
	return nil
}

// NewLDAPError creates a new LDAP error with the specified context.
func NewLDAPError(op, server string, err error) *LDAPError {
	return &LDAPError{
		Op:        op,
		Server:    server,
		Err:       err,
		Context:   make(map[string]interface{}),
		Timestamp: time.Now(),
	}
}

// WithDN adds a distinguished name to the error context.
func (e *LDAPError) WithDN(dn string) *LDAPError {
	e.DN = dn
	return e
}

// WithCode adds an LDAP result code to the error context.
func (e *LDAPError) WithCode(code int) *LDAPError {
	e.Code = code
	return e
}

// WithContext adds additional context information to the error.
func (e *LDAPError) WithContext(key string, value interface{}) *LDAPError {
	e.Context[key] = value
	return e
}

// WrapLDAPError wraps an error with LDAP-specific context information.
// Directory errors keep their result code; context errors are mapped to
// ErrContextCancelled or ErrContextDeadlineExceeded.
func WrapLDAPError(op, server string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, ErrContextCancelled)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrContextDeadlineExceeded)
	}

	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		return classifyLDAPError(op, server, ldapErr)
	}

	return NewLDAPError(op, server, err)
}

// classifyLDAPError records the result code and a coarse error type.
func classifyLDAPError(op, server string, ldapErr *ldap.Error) *LDAPError {
	ldapError := NewLDAPError(op, server, ldapErr).WithCode(int(ldapErr.ResultCode))

	switch ldapErr.ResultCode {
	case ldap.LDAPResultInvalidCredentials, ldap.LDAPResultInappropriateAuthentication:
		return ldapError.WithContext("error_type", "authentication")
	case ldap.LDAPResultInsufficientAccessRights:
		return ldapError.WithContext("error_type", "authorization")
	case ldap.LDAPResultUnwillingToPerform:
		return ldapError.WithContext("error_type", "unwilling_to_perform")
	case ldap.LDAPResultNoSuchObject:
		return ldapError.WithContext("error_type", "not_found")
	case ldap.LDAPResultInvalidDNSyntax:
		return ldapError.WithContext("error_type", "invalid_dn")
	case ldap.LDAPResultConstraintViolation:
		return ldapError.WithContext("error_type", "constraint_violation")
	case ldap.LDAPResultUnavailable, ldap.LDAPResultBusy, ldap.ErrorNetwork:
		return ldapError.WithContext("error_type", "server_unavailable")
	case ldap.LDAPResultProtocolError:
		return ldapError.WithContext("error_type", "protocol_error")
	default:
		return ldapError.WithContext("error_type", "unknown")
	}
}

// GetLDAPResultCode extracts the LDAP result code from an error, if available.
// Returns -1 if no LDAP result code is found.
func GetLDAPResultCode(err error) int {
	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		return int(ldapErr.ResultCode)
	}

	var bindErr *BindError
	if errors.As(err, &bindErr) {
		return bindErr.Code
	}

	var enhancedErr *LDAPError
	if errors.As(err, &enhancedErr) && enhancedErr.Code != 0 {
		return enhancedErr.Code
	}

	return -1
}

// IsInvalidCredentialsError checks if error is specifically about invalid credentials
func IsInvalidCredentialsError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		GetLDAPResultCode(err) == int(ldap.LDAPResultInvalidCredentials)
}

// IsConnectionError checks if the error is related to connection issues.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrServerUnavailable) ||
		errors.Is(err, ErrTLSNegotiation)
}

// IsContextError checks if the error is related to context cancellation or timeout.
func IsContextError(err error) bool {
	return errors.Is(err, ErrContextCancelled) ||
		errors.Is(err, ErrContextDeadlineExceeded)
}

// ConfigError represents an invalid or missing configuration value.
type ConfigError struct {
	Field   string
	Value   interface{}
	Message string
	Err     error
}

// Error implements the error interface.
func (c *ConfigError) Error() string {
	if c.Field != "" {
		return fmt.Sprintf("configuration error in field %q: %s", c.Field, c.Message)
	}
	return fmt.Sprintf("configuration error: %s", c.Message)
}

// Unwrap implements error unwrapping.
func (c *ConfigError) Unwrap() error {
	return c.Err
}

// NewConfigError creates a new configuration error.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// BindError is returned when the directory rejects the bind. It carries the
// directory's diagnostic result so callers can show it verbatim.
type BindError struct {
	// DN is the bind DN that was rejected
	DN string
	// Server is the LDAP server URL
	Server string
	// Code is the LDAP result code returned by the directory
	Code int
	// CodeName is the textual name of Code (e.g., "Invalid Credentials")
	CodeName string
	// Diagnostic is the directory's diagnostic message
	Diagnostic string
	// MatchedDN is the matched DN reported by the directory, if any
	MatchedDN string
	// Err is the underlying error
	Err error
}

// Error implements the error interface.
func (e *BindError) Error() string {
	msg := fmt.Sprintf("error binding to LDAP directory as %q on %q", e.DN, e.Server)
	if e.Code > 0 {
		msg += fmt.Sprintf(": result code %d (%s)", e.Code, e.CodeName)
	}
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	return msg
}

// Unwrap implements error unwrapping.
func (e *BindError) Unwrap() error {
	return e.Err
}

// newBindError builds a BindError from whatever the bind call returned.
func newBindError(server, dn string, err error) *BindError {
	bindErr := &BindError{
		DN:     dn,
		Server: server,
		Err:    WrapLDAPError("Bind", server, err),
	}

	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		bindErr.Code = int(ldapErr.ResultCode)
		bindErr.CodeName = resultCodeName(ldapErr.ResultCode)
		bindErr.MatchedDN = ldapErr.MatchedDN
		if ldapErr.Err != nil {
			bindErr.Diagnostic = ldapErr.Err.Error()
		}
		return bindErr
	}

	bindErr.Diagnostic = err.Error()
	return bindErr
}

// PasswordChangeError is returned when the password-modify extended operation
// fails. Result holds the directory's answer for reporting.
type PasswordChangeError struct {
	Result *Result
	Err    error
}

// Error implements the error interface.
func (e *PasswordChangeError) Error() string {
	if e.Result != nil {
		return fmt.Sprintf("password change for DN %q failed: %v", e.Result.TargetDN, e.Err)
	}
	return fmt.Sprintf("password change failed: %v", e.Err)
}

// Unwrap implements error unwrapping.
func (e *PasswordChangeError) Unwrap() error {
	return e.Err
}

// resultCodeName returns the go-ldap name for a result code.
func resultCodeName(code uint16) string {
	if name, ok := ldap.LDAPResultCodeMap[code]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", code)
}
