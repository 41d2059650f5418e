package ldappasswd

import (
	"crypto/tls"
	"log/slog"

	"github.com/go-ldap/ldap/v3"
)

// Option represents a functional option for configuring a Client.
type Option func(*Client)

// WithLogger sets the structured logger for LDAP operations.
// If not provided, log output is discarded.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	client, err := New(cfg, WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTLS overrides the TLS configuration used for StartTLS.
// Without it the configuration is derived from Config.TLSConfig.
//
// Example:
//
//	tlsConfig := &tls.Config{
//	    ServerName: "ldap.example.com",
//	    MinVersion: tls.VersionTLS12,
//	}
//	client, err := New(cfg, WithTLS(tlsConfig))
func WithTLS(tlsConfig *tls.Config) Option {
	return func(c *Client) {
		if tlsConfig != nil {
			c.tlsConfig = tlsConfig
		}
	}
}

// WithDialer replaces the function used to open connections.
func WithDialer(dialer Dialer) Option {
	return func(c *Client) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

// WithDialOptions appends go-ldap dial options such as ldap.DialWithDialer.
func WithDialOptions(dialOpts ...ldap.DialOpt) Option {
	return func(c *Client) {
		c.dialOpts = append(c.dialOpts, dialOpts...)
	}
}
