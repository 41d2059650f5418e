package ldappasswd

import (
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Credentials holds the bind password and the new password for one run.
// Values are kept as byte slices so Zeroize can overwrite them.
type Credentials struct {
	current []byte
	next    []byte
}

// NewCredentials stores the current (bind) password and the new password
// exactly as given.
func NewCredentials(current, next string) *Credentials {
	return &Credentials{
		current: []byte(current),
		next:    []byte(next),
	}
}

// Current returns the bind password.
func (c *Credentials) Current() string {
	return string(c.current)
}

// New returns the new password.
func (c *Credentials) New() string {
	return string(c.next)
}

// SetNew replaces the new password, zeroing the previous value.
func (c *Credentials) SetNew(password string) {
	clear(c.next)
	c.next = []byte(password)
}

// Zeroize overwrites both passwords in memory.
func (c *Credentials) Zeroize() {
	clear(c.current)
	clear(c.next)
	c.current = nil
	c.next = nil
}

// ReadPasswordFile returns the contents of path with leading and trailing
// whitespace removed.
func ReadPasswordFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ConfigError{Field: "passwd-file", Value: path, Message: "cannot read password file", Err: err}
	}
	defer clear(data)

	return strings.TrimSpace(string(data)), nil
}

// PrepareNewPassword checks that a new password is valid UTF-8 and returns
// it unchanged, so the stored value matches what is typed at the next bind.
// An empty password is allowed; the directory then generates one.
func PrepareNewPassword(password string) (string, error) {
	if _, _, err := transform.String(encoding.UTF8Validator, password); err != nil {
		return "", &ConfigError{
			Field:   "new-password",
			Message: "new password is not valid UTF-8",
			Err:     err,
		}
	}
	return password, nil
}

// maskSensitiveData masks sensitive information for logging
func maskSensitiveData(data string) string {
	if len(data) <= 4 {
		return "***"
	}

	// Show first 2 and last 2 characters, mask the middle
	visible := 2
	if len(data) < 6 {
		visible = 1
	}

	prefix := data[:visible]
	suffix := data[len(data)-visible:]
	masked := strings.Repeat("*", len(data)-2*visible)

	return prefix + masked + suffix
}
