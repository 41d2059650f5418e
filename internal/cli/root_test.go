package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	ldappasswd "github.com/netresearch/ldap-passwd"
	"github.com/netresearch/ldap-passwd/testutil"
)

type harness struct {
	app    *App
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	conn   *testutil.MockLDAPConn
	dialer *testutil.MockDialer
}

func newHarness(stdin string) *harness {
	conn, dialer := testutil.NewTestConn()
	h := &harness{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		conn:   conn,
		dialer: dialer,
	}
	h.app = &App{
		In:            strings.NewReader(stdin),
		Out:           h.stdout,
		Err:           h.stderr,
		ClientOptions: []ldappasswd.Option{ldappasswd.WithDialer(dialer)},
	}
	return h
}

func (h *harness) run(args ...string) int {
	return Execute(context.Background(), h.app, args)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExecute_ChangePassword(t *testing.T) {
	h := newHarness("oldpw\nnewpw\n")

	code := h.run(testutil.AliceDN)

	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Equal(t, "Result for password change: true\n"+
		`LDAP result: {result: 0, description: "Success", message: "", dn: "", referral: ""}`+"\n"+
		"new password: >>newpw<<\n", h.stdout.String())

	assert.Contains(t, h.stderr.String(), "Current Password: ")
	assert.Contains(t, h.stderr.String(), "New Password: ")
	assert.Equal(t, []string{"ldap://localhost:1389"}, h.dialer.Addrs)
	assert.Equal(t, "newpw", h.conn.Password(testutil.AliceDN))
	assert.Equal(t, 1, h.conn.Releases())
}

func TestExecute_TestBind(t *testing.T) {
	h := newHarness("oldpw\n")

	code := h.run("-t", testutil.AliceDN)

	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Equal(t, "BIND for DN 'uid=alice,dc=example,dc=com' was successful.\n", h.stdout.String())
	assert.NotContains(t, h.stderr.String(), "New Password")
	assert.Empty(t, h.conn.PasswordModifyCalls)
	assert.Equal(t, testutil.AlicePassword, h.conn.Password(testutil.AliceDN))
}

func TestExecute_BindFailure(t *testing.T) {
	h := newHarness("wrong\nnewpw\n")

	code := h.run(testutil.AliceDN)

	assert.Equal(t, ExitFailure, code)
	assert.Empty(t, h.stdout.String())
	assert.Contains(t, h.stderr.String(), "Error BINDing to LDAP directory:")
	assert.Contains(t, h.stderr.String(), "invalid credentials")
	assert.Empty(t, h.conn.PasswordModifyCalls)
	assert.Equal(t, 1, h.conn.Releases())
}

func TestExecute_TestBindFailure(t *testing.T) {
	h := newHarness("wrong\n")

	code := h.run("--test-bind", testutil.AliceDN)

	assert.Equal(t, ExitFailure, code)
	assert.NotContains(t, h.stdout.String(), "was successful")
	assert.Contains(t, h.stderr.String(), "Error BINDing to LDAP directory:")
}

func TestExecute_ConnectionFailure(t *testing.T) {
	h := newHarness("oldpw\nnewpw\n")
	h.dialer.Err = errors.New("dial tcp 127.0.0.1:1389: connect: connection refused")

	code := h.run(testutil.AliceDN)

	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, h.stderr.String(), "Error: ")
	assert.Contains(t, h.stderr.String(), "connection refused")
}

func TestExecute_ChangeRejected(t *testing.T) {
	h := newHarness("oldpw\nx\n")
	h.conn.PasswordModifyFunc = func(*ldap.PasswordModifyRequest) (*ldap.PasswordModifyResult, error) {
		return nil, ldap.NewError(ldap.LDAPResultConstraintViolation, errors.New("password fails quality checking policy"))
	}

	code := h.run(testutil.AliceDN)

	assert.Equal(t, ExitOK, code)
	out := h.stdout.String()
	assert.Contains(t, out, "Result for password change: false\n")
	assert.Contains(t, out, `{result: 19, description: "Constraint Violation", message: "password fails quality checking policy"`)
	assert.Contains(t, out, "new password: >>x<<\n")
}

func TestExecute_SHA512(t *testing.T) {
	h := newHarness("oldpw\nnewpw\n")

	code := h.run("-a", "sha512", testutil.AliceDN)

	require.Equal(t, ExitOK, code, h.stderr.String())
	stored := h.conn.Password(testutil.AliceDN)
	assert.True(t, strings.HasPrefix(stored, ldappasswd.SSHA512Prefix))
	assert.True(t, ldappasswd.VerifySSHA512(stored, "newpw"))
	assert.Contains(t, h.stdout.String(), "new password: >>newpw<<")
}

func TestExecute_BindDNAndStartTLS(t *testing.T) {
	h := newHarness("admin123\nnewpw\n")

	code := h.run("--host", "127.0.0.1", "-P", "10389", "--start-tls", "-b", testutil.AdminDN, testutil.AliceDN)

	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Equal(t, []string{"ldap://127.0.0.1:10389"}, h.dialer.Addrs)
	assert.Equal(t, []string{"StartTLS", "Bind", "PasswordModify", "Unbind"}, h.conn.Ops)
	require.Len(t, h.conn.BindCalls, 1)
	assert.Equal(t, testutil.AdminDN, h.conn.BindCalls[0].Username)
	assert.Equal(t, "newpw", h.conn.Password(testutil.AliceDN))
}

func TestExecute_PasswdFile(t *testing.T) {
	passwdFile := writeFile(t, "bind.pw", "oldpw\n")
	h := newHarness("newpw\n")

	code := h.run("-p", passwdFile, testutil.AliceDN)

	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.NotContains(t, h.stderr.String(), "Current Password")
	require.Len(t, h.conn.BindCalls, 1)
	assert.Equal(t, "oldpw", h.conn.BindCalls[0].Password)
}

func TestExecute_PasswdFileTestBind(t *testing.T) {
	passwdFile := writeFile(t, "bind.pw", "  oldpw  \n")
	h := newHarness("")

	code := h.run("-t", "-p", passwdFile, testutil.AliceDN)

	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Empty(t, h.stderr.String())
	assert.Contains(t, h.stdout.String(), "was successful")
}

func TestExecute_NoPasswordInput(t *testing.T) {
	h := newHarness("")

	code := h.run(testutil.AliceDN)

	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, h.stderr.String(), "no password entered")
	assert.Empty(t, h.dialer.Addrs)
}

func TestExecute_EmptyNewPassword(t *testing.T) {
	for _, alg := range []string{"cleartext", "sha512"} {
		t.Run(alg, func(t *testing.T) {
			h := newHarness("oldpw\n\n")

			code := h.run("-a", alg, testutil.AliceDN)

			require.Equal(t, ExitOK, code, h.stderr.String())
			require.Len(t, h.conn.PasswordModifyCalls, 1)
			assert.Empty(t, h.conn.PasswordModifyCalls[0].NewPassword)
			assert.Contains(t, h.stdout.String(), "Result for password change: true\n")
			assert.Contains(t, h.stdout.String(), "generated password: >>generated-secret<<\n")
			assert.Equal(t, "generated-secret", h.conn.Password(testutil.AliceDN))
		})
	}
}

func TestExecute_NewPasswordSentAsEntered(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"combining sequence", "e\u0301xtra"},
		{"no-break space", "a\u00a0b"},
		{"inner tab", "pass\tword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness("oldpw\n" + tt.password + "\n")

			code := h.run(testutil.AliceDN)

			require.Equal(t, ExitOK, code, h.stderr.String())
			assert.Equal(t, []byte(tt.password), []byte(h.conn.Password(testutil.AliceDN)))
		})
	}
}

func TestExecute_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing dn", nil, `"dn"`},
		{"too many args", []string{testutil.AliceDN, testutil.AdminDN}, "expected one DN"},
		{"invalid algorithm", []string{"-a", "md5", testutil.AliceDN}, `invalid choice "md5"`},
		{"invalid port", []string{"-P", "0", testutil.AliceDN}, `"port"`},
		{"port not a number", []string{"-P", "abc", testutil.AliceDN}, "invalid argument"},
		{"unknown flag", []string{"--frobnicate", testutil.AliceDN}, "unknown flag"},
		{"invalid dn", []string{"not a dn"}, `"dn"`},
		{"invalid output", []string{"-o", "xml", testutil.AliceDN}, "invalid output format"},
		{"invalid log level", []string{"--log-level", "loud", testutil.AliceDN}, "invalid log level"},
		{"missing passwd file", []string{"-p", "/nonexistent/ldap-passwd", testutil.AliceDN}, `"passwd-file"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness("oldpw\nnewpw\n")

			code := h.run(tt.args...)

			assert.Equal(t, ExitUsage, code)
			assert.Contains(t, h.stderr.String(), "usage error:")
			assert.Contains(t, h.stderr.String(), tt.want)
			assert.Contains(t, h.stderr.String(), "Run 'ldap-passwd --help' for usage.")
			assert.Empty(t, h.dialer.Addrs)
		})
	}
}

func TestExecute_JSONOutput(t *testing.T) {
	h := newHarness("oldpw\nnewpw\n")

	code := h.run("-o", "json", testutil.AliceDN)
	require.Equal(t, ExitOK, code, h.stderr.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &got))
	assert.Equal(t, testutil.AliceDN, got["target_dn"])
	assert.Equal(t, "cleartext", got["algorithm"])
	assert.Equal(t, true, got["success"])
	assert.Equal(t, float64(0), got["result_code"])
	assert.Equal(t, "Success", got["result_name"])
	assert.Equal(t, "newpw", got["new_password"])
}

func TestExecute_YAMLTestBind(t *testing.T) {
	h := newHarness("oldpw\n")

	code := h.run("-t", "-o", "yaml", testutil.AliceDN)
	require.Equal(t, ExitOK, code, h.stderr.String())

	var got bindReport
	require.NoError(t, yaml.Unmarshal(h.stdout.Bytes(), &got))
	assert.Equal(t, bindReport{BindDN: testutil.AliceDN, Server: "ldap://localhost:1389", Success: true}, got)
}

func TestExecute_TableOutput(t *testing.T) {
	h := newHarness("oldpw\nnewpw\n")

	code := h.run("-o", "table", testutil.AliceDN)
	require.Equal(t, ExitOK, code, h.stderr.String())

	out := h.stdout.String()
	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, "target_dn")
	assert.Contains(t, out, testutil.AliceDN)
	assert.Contains(t, out, "new_password")
}

func TestExecute_Environment(t *testing.T) {
	t.Setenv("LDAP_PASSWD_HOST", "ldap.example.com")
	t.Setenv("LDAP_PASSWD_PORT", "389")
	t.Setenv("LDAP_PASSWD_BIND_DN", testutil.AdminDN)
	t.Setenv("LDAP_PASSWD_DN", testutil.AliceDN)
	t.Setenv("LDAP_PASSWD_TEST_BIND", "true")

	h := newHarness("admin123\n")

	code := h.run()

	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Equal(t, []string{"ldap://ldap.example.com:389"}, h.dialer.Addrs)
	assert.Equal(t, "BIND for DN 'cn=admin,dc=example,dc=com' was successful.\n", h.stdout.String())
}

func TestExecute_DisplaySettingsFromEnvironment(t *testing.T) {
	t.Setenv("LDAP_PASSWD_OUTPUT", "json")
	t.Setenv("LDAP_PASSWD_VERBOSE", "true")
	t.Setenv("LDAP_PASSWD_LOG_FORMAT", "json")

	h := newHarness("oldpw\n")

	code := h.run("-t", testutil.AliceDN)

	require.Equal(t, ExitOK, code, h.stderr.String())
	var got map[string]any
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &got))
	assert.Equal(t, true, got["success"])
	assert.Contains(t, h.stderr.String(), `"msg":"ldap_bind_successful"`)
}

func TestExecute_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("LDAP_PASSWD_HOST", "ldap.example.com")

	h := newHarness("oldpw\n")

	code := h.run("-t", "--host", "ldap.internal", testutil.AliceDN)

	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Equal(t, []string{"ldap://ldap.internal:1389"}, h.dialer.Addrs)
}

func TestExecute_ConfigFile(t *testing.T) {
	configFile := writeFile(t, "ldap-passwd.yaml", strings.Join([]string{
		"host: ldap.example.com",
		"port: 636",
		"algorithm: sha512",
		"bind-dn: " + testutil.AdminDN,
		"",
	}, "\n"))

	h := newHarness("admin123\nnewpw\n")

	code := h.run("--config", configFile, "-P", "10389", testutil.AliceDN)

	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Equal(t, []string{"ldap://ldap.example.com:10389"}, h.dialer.Addrs)
	assert.Equal(t, testutil.AdminDN, h.conn.BindCalls[0].Username)
	assert.True(t, ldappasswd.VerifySSHA512(h.conn.Password(testutil.AliceDN), "newpw"))
}

func TestExecute_MissingConfigFile(t *testing.T) {
	h := newHarness("")

	code := h.run("--config", filepath.Join(t.TempDir(), "missing.yaml"), testutil.AliceDN)

	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, h.stderr.String(), "cannot read config file")
}

func TestExecute_VerboseLogging(t *testing.T) {
	h := newHarness("oldpw\n")

	code := h.run("-v", "--log-format", "json", "-t", testutil.AliceDN)

	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Contains(t, h.stderr.String(), `"msg":"ldap_bind_attempt"`)
	assert.Contains(t, h.stderr.String(), `"msg":"ldap_bind_successful"`)
	assert.NotContains(t, h.stderr.String(), "oldpw")
}

func TestExecute_Version(t *testing.T) {
	h := newHarness("")

	code := h.run("version")

	assert.Equal(t, ExitOK, code)
	assert.Contains(t, h.stdout.String(), "ldap-passwd dev")
}

func TestExecute_ScriptedPrompter(t *testing.T) {
	h := newHarness("")
	prompter := &scriptedPrompter{answers: map[string]string{
		currentPasswordLabel: "oldpw",
		newPasswordLabel:     " newpw ",
	}}
	h.app.Prompter = prompter

	code := h.run(testutil.AliceDN)

	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Equal(t, []string{currentPasswordLabel, newPasswordLabel}, prompter.asked)
	assert.Equal(t, "newpw", h.conn.Password(testutil.AliceDN))
}

type scriptedPrompter struct {
	answers map[string]string
	asked   []string
}

func (p *scriptedPrompter) Password(label string) (string, error) {
	p.asked = append(p.asked, label)
	return strings.TrimSpace(p.answers[label]), nil
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   int
		output string
	}{
		{"nil", nil, ExitOK, ""},
		{"config error", ldappasswd.NewConfigError("dn", "required"), ExitUsage, "usage error:"},
		{"bind error", &ldappasswd.BindError{DN: testutil.AliceDN, Server: "ldap://localhost:1389", Diagnostic: "invalid credentials"}, ExitFailure, "Error BINDing to LDAP directory:"},
		{"other error", errors.New("boom"), ExitFailure, "Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.Equal(t, tt.want, exitCode(&buf, tt.err))
			assert.Contains(t, buf.String(), tt.output)
		})
	}
}
