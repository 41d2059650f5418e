// Package ldappasswd changes the password of an LDAP directory entry with the
// password-modify extended operation (RFC 3062).
//
// The package is a thin layer over go-ldap/ldap. It covers:
//   - Opening one connection, optionally upgraded with StartTLS
//   - Authenticating with a simple bind
//   - Issuing the password-modify extended operation, optionally with a
//     client-side salted SHA-512 hash of the new password
//   - Releasing the connection on every exit path
//
// # Basic Usage
//
//	cfg := &ldappasswd.Config{
//		Host:      "ldap.example.com",
//		Port:      1389,
//		DN:        "uid=alice,dc=example,dc=com",
//		StartTLS:  true,
//		Algorithm: ldappasswd.AlgorithmSHA512,
//	}
//
//	client, err := ldappasswd.New(cfg, ldappasswd.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	err = client.WithSession(ctx, cfg.EffectiveBindDN(), "oldpw", func(s *ldappasswd.Session) error {
//		result, err := s.ModifyPassword(ctx, cfg.DN, "newpw", cfg.Algorithm)
//		if err != nil {
//			return err
//		}
//		fmt.Println(result)
//		return nil
//	})
//
// The connection behind a Session is unbound when the function passed to
// WithSession returns, whether it returned an error, panicked or succeeded.
//
// # Error Handling
//
// Failures are reported with typed errors:
//   - ConfigError: invalid or missing configuration
//   - BindError: the directory rejected the bind; carries the result code and
//     the directory's diagnostic message
//   - PasswordChangeError: the extended operation failed; carries the Result
//
// Use errors.As to inspect them, or the sentinel errors (ErrInvalidCredentials,
// ErrConnectionFailed, ...) with errors.Is.
package ldappasswd
