// Package testutil provides an in-memory LDAP connection for tests.
package testutil

import (
	"crypto/tls"
	"errors"
	"fmt"
	"sync"

	"github.com/go-ldap/ldap/v3"

	ldappasswd "github.com/netresearch/ldap-passwd"
)

// MockLDAPConn is a mock implementation of ldappasswd.Conn backed by a map of
// DN to password. Every call is recorded.
type MockLDAPConn struct {
	mu sync.Mutex

	// Configuration
	StartTLSFunc       func(config *tls.Config) error
	BindFunc           func(username, password string) error
	PasswordModifyFunc func(req *ldap.PasswordModifyRequest) (*ldap.PasswordModifyResult, error)
	UnbindFunc         func() error
	CloseFunc          func() error

	// State tracking
	Ops                 []string
	StartTLSCalls       []*tls.Config
	BindCalls           []BindCall
	PasswordModifyCalls []*ldap.PasswordModifyRequest
	UnbindCalls         int
	CloseCalls          int
	Closed              bool
	releases            int

	// Users maps DN to the stored password value.
	Users map[string]string
}

// BindCall records a bind operation
type BindCall struct {
	Username string
	Password string
	Error    error
}

// NewMockLDAPConn creates a new mock LDAP connection with default behavior
func NewMockLDAPConn() *MockLDAPConn {
	mock := &MockLDAPConn{
		Users: make(map[string]string),
	}
	mock.setupDefaultFunctions()
	return mock
}

// setupDefaultFunctions sets up default function implementations
func (m *MockLDAPConn) setupDefaultFunctions() {
	m.StartTLSFunc = func(*tls.Config) error {
		return nil
	}

	// Simple authentication against Users
	m.BindFunc = func(username, password string) error {
		if password == "" {
			return ldap.NewError(ldap.ErrorEmptyPassword, errors.New("ldap: empty password not allowed by the client"))
		}
		stored, ok := m.Users[username]
		if !ok || stored != password {
			return ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))
		}
		return nil
	}

	m.PasswordModifyFunc = func(req *ldap.PasswordModifyRequest) (*ldap.PasswordModifyResult, error) {
		if _, ok := m.Users[req.UserIdentity]; !ok {
			return nil, ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("no such object: %s", req.UserIdentity))
		}
		if req.NewPassword == "" {
			generated := "generated-secret"
			m.Users[req.UserIdentity] = generated
			return &ldap.PasswordModifyResult{GeneratedPassword: generated}, nil
		}
		m.Users[req.UserIdentity] = req.NewPassword
		return &ldap.PasswordModifyResult{}, nil
	}

	m.UnbindFunc = func() error {
		return nil
	}

	m.CloseFunc = func() error {
		return nil
	}
}

// AddUser stores a user with its password.
func (m *MockLDAPConn) AddUser(dn, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Users[dn] = password
}

// Password returns the stored password value for dn.
func (m *MockLDAPConn) Password(dn string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Users[dn]
}

func (m *MockLDAPConn) record(op string) error {
	m.Ops = append(m.Ops, op)
	if m.Closed {
		return ldap.NewError(ldap.ErrorNetwork, errors.New("ldap: connection closed"))
	}
	return nil
}

// StartTLS mocks the StartTLS extended operation
func (m *MockLDAPConn) StartTLS(config *tls.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("StartTLS"); err != nil {
		return err
	}
	m.StartTLSCalls = append(m.StartTLSCalls, config)
	return m.StartTLSFunc(config)
}

// Bind mocks the LDAP bind operation
func (m *MockLDAPConn) Bind(username, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Bind"); err != nil {
		return err
	}
	err := m.BindFunc(username, password)
	m.BindCalls = append(m.BindCalls, BindCall{Username: username, Password: password, Error: err})
	return err
}

// PasswordModify mocks the password-modify extended operation
func (m *MockLDAPConn) PasswordModify(req *ldap.PasswordModifyRequest) (*ldap.PasswordModifyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("PasswordModify"); err != nil {
		return nil, err
	}
	m.PasswordModifyCalls = append(m.PasswordModifyCalls, req)
	return m.PasswordModifyFunc(req)
}

// Unbind mocks the unbind operation; on success the connection is closed.
func (m *MockLDAPConn) Unbind() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ops = append(m.Ops, "Unbind")
	m.UnbindCalls++
	if m.Closed {
		return ldap.ErrConnUnbound
	}
	if err := m.UnbindFunc(); err != nil {
		return err
	}
	m.Closed = true
	m.releases++
	return nil
}

// Close mocks connection closing
func (m *MockLDAPConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ops = append(m.Ops, "Close")
	m.CloseCalls++
	m.Closed = true
	m.releases++
	return m.CloseFunc()
}

// Releases returns how many times the connection was released, counting a
// successful unbind or an explicit close.
func (m *MockLDAPConn) Releases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases
}

// MockDialer hands out a MockLDAPConn and records the dialed addresses.
type MockDialer struct {
	mu sync.Mutex

	Conn  *MockLDAPConn
	Err   error
	Addrs []string
}

// NewMockDialer creates a dialer returning conn.
func NewMockDialer(conn *MockLDAPConn) *MockDialer {
	return &MockDialer{Conn: conn}
}

// DialURL implements ldappasswd.Dialer.
func (d *MockDialer) DialURL(addr string, _ ...ldap.DialOpt) (ldappasswd.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Addrs = append(d.Addrs, addr)
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Conn, nil
}

var _ ldappasswd.Dialer = (*MockDialer)(nil)
