package ldappasswd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Result is the outcome of a password-modify extended operation as reported
// by the directory.
type Result struct {
	// TargetDN is the entry whose password was changed
	TargetDN string `json:"target_dn" yaml:"target_dn"`
	// Algorithm is the algorithm the new password was sent with
	Algorithm Algorithm `json:"algorithm" yaml:"algorithm"`
	// Success is true when the directory returned result code 0
	Success bool `json:"success" yaml:"success"`
	// ResultCode is the LDAP result code
	ResultCode int `json:"result_code" yaml:"result_code"`
	// ResultName is the textual name of ResultCode
	ResultName string `json:"result_name" yaml:"result_name"`
	// Diagnostic is the directory's diagnostic message, if any
	Diagnostic string `json:"diagnostic,omitempty" yaml:"diagnostic,omitempty"`
	// MatchedDN is the matched DN reported with a failure, if any
	MatchedDN string `json:"matched_dn,omitempty" yaml:"matched_dn,omitempty"`
	// GeneratedPassword is set when the server generated the password itself
	GeneratedPassword string `json:"generated_password,omitempty" yaml:"generated_password,omitempty"`
	// Referral is set when the server answered with a referral
	Referral string `json:"referral,omitempty" yaml:"referral,omitempty"`
	// NewPassword is the new password as entered (before any hashing)
	NewPassword string `json:"new_password" yaml:"new_password"`
}

// ModifyPassword sets the password of targetDN with the password-modify
// extended operation (RFC 3062). With AlgorithmSHA512 the value sent is a
// salted SHA-512 hash of newPassword; otherwise it is sent as-is. An empty
// newPassword is left out of the request so the directory generates one,
// returned in Result.GeneratedPassword.
//
// Parameters:
//   - ctx: Context checked before the request is issued
//   - targetDN: The distinguished name of the entry to update
//   - newPassword: The new password
//   - algorithm: How the new password is sent
//
// Returns:
//   - *Result: The directory's answer, also populated when the operation failed
//   - error: *PasswordChangeError if the directory rejected the operation,
//     ErrSessionReleased if the session scope has ended, or a context error
func (s *Session) ModifyPassword(ctx context.Context, targetDN, newPassword string, algorithm Algorithm) (*Result, error) {
	start := time.Now()

	if s.released {
		return nil, ErrSessionReleased
	}

	if err := ctx.Err(); err != nil {
		return nil, operationCancelledError("password_modify", maskSensitiveData(targetDN), s.server, err)
	}

	var value string
	if newPassword != "" {
		var err error
		value, err = HashPassword(algorithm, newPassword)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("password_modify_attempt",
		slog.String("operation", "PasswordModify"),
		slog.String("dn_masked", maskSensitiveData(targetDN)),
		slog.String("algorithm", algorithm.String()))

	result := &Result{
		TargetDN:    targetDN,
		Algorithm:   algorithm,
		NewPassword: newPassword,
	}

	req := ldap.NewPasswordModifyRequest(targetDN, "", value)
	res, err := s.conn.PasswordModify(req)
	if err != nil {
		fillFailure(result, err)

		s.logger.Warn("password_modify_failed",
			slog.String("operation", "PasswordModify"),
			slog.String("dn_masked", maskSensitiveData(targetDN)),
			slog.Int("result_code", result.ResultCode),
			slog.String("diagnostic", result.Diagnostic),
			slog.Duration("duration", time.Since(start)))

		ldapErr := WrapLDAPError("PasswordModify", s.server, err)
		var enhanced *LDAPError
		if errors.As(ldapErr, &enhanced) {
			enhanced.WithDN(targetDN).WithContext("algorithm", algorithm.String())
		}
		return result, &PasswordChangeError{Result: result, Err: ldapErr}
	}

	result.Success = true
	result.ResultCode = ldap.LDAPResultSuccess
	result.ResultName = resultCodeName(ldap.LDAPResultSuccess)
	if res != nil {
		result.GeneratedPassword = res.GeneratedPassword
		result.Referral = res.Referral
	}

	s.logger.Info("password_modify_successful",
		slog.String("operation", "PasswordModify"),
		slog.String("dn_masked", maskSensitiveData(targetDN)),
		slog.Bool("server_generated", result.GeneratedPassword != ""),
		slog.Duration("duration", time.Since(start)))

	return result, nil
}

// fillFailure copies the directory's answer from err into result.
func fillFailure(result *Result, err error) {
	result.Success = false

	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		result.ResultCode = int(ldapErr.ResultCode)
		result.ResultName = resultCodeName(ldapErr.ResultCode)
		result.MatchedDN = ldapErr.MatchedDN
		if ldapErr.Err != nil {
			result.Diagnostic = ldapErr.Err.Error()
		}
		return
	}

	result.ResultCode = int(ldap.LDAPResultOther)
	result.ResultName = resultCodeName(ldap.LDAPResultOther)
	result.Diagnostic = err.Error()
}
