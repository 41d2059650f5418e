//go:build integration

package ldappasswd_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ldappasswd "github.com/netresearch/ldap-passwd"
	"github.com/netresearch/ldap-passwd/testutil"
)

func containerConfig(tc *testutil.TestContainer, dn string) *ldappasswd.Config {
	cfg := ldappasswd.DefaultConfig()
	cfg.Host = tc.Host
	cfg.Port = tc.Port
	cfg.DN = dn
	return cfg
}

func TestIntegration_ChangeOwnPassword(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := testutil.SetupTestContainer(t)
	dn := tc.AddUser(t, "alice", "oldpw")

	client, err := ldappasswd.New(containerConfig(tc, dn))
	require.NoError(t, err)

	var result *ldappasswd.Result
	err = client.WithSession(context.Background(), dn, "oldpw", func(s *ldappasswd.Session) error {
		var err error
		result, err = s.ModifyPassword(context.Background(), dn, "newpw", ldappasswd.AlgorithmCleartext)
		return err
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	assert.True(t, tc.CanBind(t, dn, "newpw"))
	assert.False(t, tc.CanBind(t, dn, "oldpw"))
}

func TestIntegration_AdminResetsPassword(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := testutil.SetupTestContainer(t)
	dn := tc.AddUser(t, "bob", "bobpw")

	cfg := containerConfig(tc, dn)
	cfg.BindDN = testutil.ContainerAdminDN
	client, err := ldappasswd.New(cfg)
	require.NoError(t, err)

	err = client.WithSession(context.Background(), cfg.EffectiveBindDN(), testutil.ContainerAdminPass, func(s *ldappasswd.Session) error {
		_, err := s.ModifyPassword(context.Background(), dn, "reset-pw", ldappasswd.AlgorithmCleartext)
		return err
	})
	require.NoError(t, err)
	assert.True(t, tc.CanBind(t, dn, "reset-pw"))
}

func TestIntegration_BindFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := testutil.SetupTestContainer(t)
	dn := tc.AddUser(t, "carol", "carolpw")

	client, err := ldappasswd.New(containerConfig(tc, dn))
	require.NoError(t, err)

	err = client.WithSession(context.Background(), dn, "wrong", func(*ldappasswd.Session) error {
		t.Fatal("session must not be handed out after a failed bind")
		return nil
	})

	var bindErr *ldappasswd.BindError
	require.ErrorAs(t, err, &bindErr)
	assert.True(t, ldappasswd.IsInvalidCredentialsError(err))
	assert.True(t, tc.CanBind(t, dn, "carolpw"))
}
