//go:build integration

package testutil

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/openldap"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Directory layout of the test container.
const (
	ContainerBaseDN    = "dc=example,dc=org"
	ContainerAdminDN   = "cn=admin," + ContainerBaseDN
	ContainerAdminPass = "admin123"
	ContainerPeopleOU  = "ou=people," + ContainerBaseDN
)

// TestContainer wraps an OpenLDAP container seeded with test users.
type TestContainer struct {
	Container *openldap.OpenLDAPContainer
	Host      string
	Port      int
	ctx       context.Context
}

// SetupTestContainer starts OpenLDAP and creates the people OU. The
// container is terminated when the test ends.
func SetupTestContainer(t *testing.T) *TestContainer {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "osixia/openldap:1.5.0",
		ExposedPorts: []string{"389/tcp"},
		Env: map[string]string{
			"LDAP_ORGANISATION":    "Example Org",
			"LDAP_DOMAIN":          "example.org",
			"LDAP_ADMIN_PASSWORD":  ContainerAdminPass,
			"LDAP_CONFIG_PASSWORD": "config123",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("slapd starting").WithStartupTimeout(120*time.Second).WithPollInterval(2*time.Second),
			wait.ForListeningPort("389/tcp").WithStartupTimeout(120*time.Second).WithPollInterval(2*time.Second),
		),
	}

	genericContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	tc := &TestContainer{
		Container: &openldap.OpenLDAPContainer{Container: genericContainer},
		ctx:       ctx,
	}
	t.Cleanup(func() { tc.Close(t) })

	tc.Host, err = genericContainer.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := genericContainer.MappedPort(ctx, "389/tcp")
	require.NoError(t, err)
	tc.Port, err = strconv.Atoi(mappedPort.Port())
	require.NoError(t, err)

	conn := tc.adminConn(t)
	defer conn.Close()

	addReq := ldap.NewAddRequest(ContainerPeopleOU, nil)
	addReq.Attribute("objectClass", []string{"organizationalUnit"})
	addReq.Attribute("ou", []string{"people"})
	if err := conn.Add(addReq); err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultEntryAlreadyExists) {
		require.NoError(t, err, "failed to create people OU")
	}

	return tc
}

// URL returns the ldap:// URL of the container.
func (tc *TestContainer) URL() string {
	return fmt.Sprintf("ldap://%s:%d", tc.Host, tc.Port)
}

// adminConn connects and binds as the directory admin, retrying while
// slapd finishes starting.
func (tc *TestContainer) adminConn(t *testing.T) *ldap.Conn {
	t.Helper()

	var conn *ldap.Conn
	var err error
	for i := 0; i < 5; i++ {
		conn, err = ldap.DialURL(tc.URL())
		if err == nil {
			err = conn.Bind(ContainerAdminDN, ContainerAdminPass)
			if err == nil {
				return conn
			}
			_ = conn.Close()
		}
		t.Logf("Connection attempt %d failed: %v, retrying...", i+1, err)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	require.NoError(t, err, "failed to bind as admin after 5 attempts")
	return nil
}

// AddUser creates an inetOrgPerson under the people OU and returns its DN.
func (tc *TestContainer) AddUser(t *testing.T, uid, password string) string {
	t.Helper()

	conn := tc.adminConn(t)
	defer conn.Close()

	dn := fmt.Sprintf("uid=%s,%s", uid, ContainerPeopleOU)
	addReq := ldap.NewAddRequest(dn, nil)
	addReq.Attribute("objectClass", []string{"inetOrgPerson"})
	addReq.Attribute("uid", []string{uid})
	addReq.Attribute("cn", []string{uid})
	addReq.Attribute("sn", []string{strings.ToUpper(uid[:1]) + uid[1:]})
	addReq.Attribute("userPassword", []string{password})
	require.NoError(t, conn.Add(addReq), "failed to create user %s", uid)

	return dn
}

// CanBind reports whether dn can bind with password.
func (tc *TestContainer) CanBind(t *testing.T, dn, password string) bool {
	t.Helper()

	conn, err := ldap.DialURL(tc.URL())
	require.NoError(t, err)
	defer conn.Close()

	return conn.Bind(dn, password) == nil
}

// Close terminates the container.
func (tc *TestContainer) Close(t *testing.T) {
	if err := tc.Container.Terminate(tc.ctx); err != nil {
		t.Logf("Warning: Failed to terminate container: %v", err)
	}
}
