package cli

import (
	"fmt"
	"strconv"

	ldappasswd "github.com/netresearch/ldap-passwd"
	"github.com/netresearch/ldap-passwd/internal/output"
)

// bindReport is printed after a successful --test-bind.
type bindReport struct {
	BindDN  string `json:"bind_dn" yaml:"bind_dn"`
	Server  string `json:"server" yaml:"server"`
	Success bool   `json:"success" yaml:"success"`
}

// Lines implements output.TextRenderer.
func (r bindReport) Lines() []string {
	return []string{fmt.Sprintf("BIND for DN '%s' was successful.", r.BindDN)}
}

// Headers implements output.TableRenderer.
func (r bindReport) Headers() []string {
	return r.pairs().Headers()
}

// Rows implements output.TableRenderer.
func (r bindReport) Rows() [][]string {
	return r.pairs().Rows()
}

func (r bindReport) pairs() output.KeyValues {
	return output.KeyValues{
		{"bind_dn", r.BindDN},
		{"server", r.Server},
		{"success", strconv.FormatBool(r.Success)},
	}
}

// changeReport is printed after the password-modify operation, whether the
// directory accepted it or not.
type changeReport struct {
	ldappasswd.Result `yaml:",inline"`
}

// Lines implements output.TextRenderer.
func (r changeReport) Lines() []string {
	lines := []string{
		fmt.Sprintf("Result for password change: %t", r.Success),
		fmt.Sprintf("LDAP result: {result: %d, description: %q, message: %q, dn: %q, referral: %q}",
			r.ResultCode, r.ResultName, r.Diagnostic, r.MatchedDN, r.Referral),
	}
	if r.GeneratedPassword != "" {
		lines = append(lines, fmt.Sprintf("generated password: >>%s<<", r.GeneratedPassword))
	}
	lines = append(lines, fmt.Sprintf("new password: >>%s<<", r.NewPassword))
	return lines
}

// Headers implements output.TableRenderer.
func (r changeReport) Headers() []string {
	return r.pairs().Headers()
}

// Rows implements output.TableRenderer.
func (r changeReport) Rows() [][]string {
	return r.pairs().Rows()
}

func (r changeReport) pairs() output.KeyValues {
	kv := output.KeyValues{
		{"target_dn", r.TargetDN},
		{"algorithm", r.Algorithm.String()},
		{"success", strconv.FormatBool(r.Success)},
		{"result_code", strconv.Itoa(r.ResultCode)},
		{"result_name", r.ResultName},
		{"diagnostic", r.Diagnostic},
		{"matched_dn", r.MatchedDN},
		{"referral", r.Referral},
	}
	if r.GeneratedPassword != "" {
		kv = append(kv, [2]string{"generated_password", r.GeneratedPassword})
	}
	return append(kv, [2]string{"new_password", r.NewPassword})
}
