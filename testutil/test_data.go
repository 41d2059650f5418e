package testutil

// Standard fixtures used across tests.
const (
	AliceDN       = "uid=alice,dc=example,dc=com"
	AlicePassword = "oldpw"
	AdminDN       = "cn=admin,dc=example,dc=com"
	AdminPassword = "admin123"
)

// SetupTestUsers populates mock with the standard users.
func SetupTestUsers(mock *MockLDAPConn) {
	mock.Users = make(map[string]string)
	mock.AddUser(AliceDN, AlicePassword)
	mock.AddUser(AdminDN, AdminPassword)
}

// NewTestConn returns a mock connection with the standard users and a
// dialer that returns it.
func NewTestConn() (*MockLDAPConn, *MockDialer) {
	conn := NewMockLDAPConn()
	SetupTestUsers(conn)
	return conn, NewMockDialer(conn)
}
