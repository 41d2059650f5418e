package ldappasswd

import (
	"crypto/tls"

	"github.com/go-ldap/ldap/v3"
)

// Conn is the subset of *ldap.Conn used by a Session.
// Tests substitute a fake implementation through a custom Dialer.
type Conn interface {
	// StartTLS upgrades the plaintext connection before authentication
	StartTLS(config *tls.Config) error
	// Bind performs a simple bind
	Bind(username, password string) error
	// PasswordModify issues the RFC 3062 password-modify extended operation
	PasswordModify(passwordModifyRequest *ldap.PasswordModifyRequest) (*ldap.PasswordModifyResult, error)
	// Unbind sends an unbind request and closes the connection
	Unbind() error
	// Close closes the connection without an unbind request
	Close() error
}

// Dialer opens connections to an LDAP server.
type Dialer interface {
	DialURL(addr string, opts ...ldap.DialOpt) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(addr string, opts ...ldap.DialOpt) (Conn, error)

// DialURL implements Dialer.
func (f DialerFunc) DialURL(addr string, opts ...ldap.DialOpt) (Conn, error) {
	return f(addr, opts...)
}

// defaultDialer dials with go-ldap.
type defaultDialer struct{}

func (defaultDialer) DialURL(addr string, opts ...ldap.DialOpt) (Conn, error) {
	conn, err := ldap.DialURL(addr, opts...)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

var (
	_ Conn   = (*ldap.Conn)(nil)
	_ Dialer = defaultDialer{}
)
