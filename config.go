package ldappasswd

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-playground/validator/v10"
)

// Default connection settings.
const (
	DefaultHost = "localhost"
	DefaultPort = 1389

	// MaxDNLength defines the maximum length for Distinguished Names
	MaxDNLength = 8000
)

// Algorithm selects how the new password is handed to the directory.
type Algorithm string

const (
	// AlgorithmCleartext sends the new password as entered; the directory's
	// own policy decides how it is stored.
	AlgorithmCleartext Algorithm = "cleartext"
	// AlgorithmSHA512 sends an RFC 2307 {SSHA512} value computed on the client.
	AlgorithmSHA512 Algorithm = "sha512"
)

// Algorithms lists the accepted algorithm names in display order.
var Algorithms = []Algorithm{AlgorithmCleartext, AlgorithmSHA512}

// String returns the algorithm name.
func (a Algorithm) String() string {
	return string(a)
}

// ParseAlgorithm parses an algorithm name. The empty string selects cleartext.
func ParseAlgorithm(s string) (Algorithm, error) {
	name := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if name == "" {
		return AlgorithmCleartext, nil
	}
	for _, a := range Algorithms {
		if a == name {
			return a, nil
		}
	}
	return "", validationError("algorithm", s, invalidAlgorithmMessage(s))
}

func invalidAlgorithmMessage(value string) string {
	names := make([]string, len(Algorithms))
	for i, a := range Algorithms {
		names[i] = a.String()
	}
	return fmt.Sprintf("invalid choice %q (choose from %s)", value, strings.Join(names, ", "))
}

// Config describes one password change (or bind test). It is treated as
// immutable once Validate has succeeded.
type Config struct {
	// Host is the LDAP server host name or address
	Host string `mapstructure:"host" validate:"required"`
	// Port is the LDAP server port
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
	// DN is the distinguished name of the entry whose password is changed
	DN string `mapstructure:"dn" validate:"required"`
	// BindDN is the DN to bind as; empty means DN
	BindDN string `mapstructure:"bind-dn"`
	// StartTLS upgrades the connection with StartTLS before binding
	StartTLS bool `mapstructure:"start-tls"`
	// PasswdFile holds the bind password; empty means prompt for it
	PasswdFile string `mapstructure:"passwd-file" validate:"omitempty,file"`
	// TestBind stops after a successful bind without changing the password
	TestBind bool `mapstructure:"test-bind"`
	// Algorithm selects how the new password is sent
	Algorithm Algorithm `mapstructure:"algorithm" validate:"required,oneof=cleartext sha512"`

	// TLSCAFile is a PEM bundle trusted for StartTLS in addition to the system pool
	TLSCAFile string `mapstructure:"tls-ca-file" validate:"omitempty,file"`
	// TLSInsecureSkipVerify disables certificate verification for StartTLS
	TLSInsecureSkipVerify bool `mapstructure:"tls-insecure-skip-verify"`
}

// DefaultConfig returns a Config with the default host, port and algorithm.
func DefaultConfig() *Config {
	return &Config{
		Host:      DefaultHost,
		Port:      DefaultPort,
		Algorithm: AlgorithmCleartext,
	}
}

// EffectiveBindDN returns BindDN, or DN when no separate bind DN was given.
func (c *Config) EffectiveBindDN() string {
	if c.BindDN != "" {
		return c.BindDN
	}
	return c.DN
}

// URL returns the ldap:// URL for Host and Port.
func (c *Config) URL() string {
	u := url.URL{
		Scheme: "ldap",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
	}
	return u.String()
}

// TLSConfig builds the client TLS configuration used for StartTLS.
func (c *Config) TLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		ServerName:         c.Host,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.TLSInsecureSkipVerify, //nolint:gosec // opt-in flag
	}

	if c.TLSCAFile == "" {
		return tlsConfig, nil
	}

	pem, err := os.ReadFile(c.TLSCAFile)
	if err != nil {
		return nil, &ConfigError{Field: "tls-ca-file", Value: c.TLSCAFile, Message: "cannot read CA bundle", Err: err}
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, validationError("tls-ca-file", c.TLSCAFile, "no PEM certificates found")
	}
	tlsConfig.RootCAs = pool

	return tlsConfig, nil
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their flag names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks the configuration and returns a *ConfigError describing
// the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DN) == "" {
		return validationError("dn", c.DN, "the DN of the entry to update is required")
	}

	if err := configValidator.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			return fieldError(validationErrs[0])
		}
		return &ConfigError{Message: "invalid configuration", Err: err}
	}

	if _, err := ValidateDN(c.DN); err != nil {
		return &ConfigError{Field: "dn", Value: c.DN, Message: err.Error(), Err: err}
	}
	if c.BindDN != "" {
		if _, err := ValidateDN(c.BindDN); err != nil {
			return &ConfigError{Field: "bind-dn", Value: c.BindDN, Message: err.Error(), Err: err}
		}
	}

	return nil
}

func fieldError(fe validator.FieldError) *ConfigError {
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "value is required"
	case "oneof":
		msg = invalidAlgorithmMessage(fmt.Sprint(fe.Value()))
	case "min", "max":
		msg = "must be between 1 and 65535"
	case "file":
		msg = "must be a readable file"
	default:
		msg = fmt.Sprintf("failed %q validation", fe.Tag())
	}
	return validationError(fe.Field(), fe.Value(), msg)
}

// ValidateDN checks that dn is a syntactically valid Distinguished Name and
// returns it trimmed.
func ValidateDN(dn string) (string, error) {
	normalized := strings.TrimSpace(dn)
	if normalized == "" {
		return "", fmt.Errorf("%w: DN cannot be empty", ErrInvalidDN)
	}

	if len(normalized) > MaxDNLength {
		return "", fmt.Errorf("%w: DN too long: %d characters (max %d)", ErrInvalidDN, len(normalized), MaxDNLength)
	}

	if _, err := ldap.ParseDN(normalized); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidDN, err)
	}

	return normalized, nil
}
