package ldappasswd

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Client opens authenticated sessions against one LDAP server.
type Client struct {
	config    *Config
	logger    *slog.Logger
	dialer    Dialer
	dialOpts  []ldap.DialOpt
	tlsConfig *tls.Config
}

// New creates a Client for the given configuration. The configuration is
// validated; no connection is opened until WithSession is called.
func New(config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := &Client{
		config: config,
		logger: slog.New(slog.DiscardHandler),
		dialer: defaultDialer{},
	}

	for _, opt := range opts {
		opt(client)
	}

	if config.StartTLS && client.tlsConfig == nil {
		tlsConfig, err := config.TLSConfig()
		if err != nil {
			return nil, err
		}
		client.tlsConfig = tlsConfig
	}

	return client, nil
}

// Config returns the client's configuration.
func (c *Client) Config() *Config {
	return c.config
}

// WithSession connects, optionally negotiates StartTLS, binds as bindDN and
// runs fn with the resulting Session. The connection is released when fn
// returns or panics; it is also released when the bind itself fails, in
// which case fn is not called and a *BindError is returned.
//
// Parameters:
//   - ctx: Context checked between the blocking connect, StartTLS and bind steps
//   - bindDN: The distinguished name to bind as
//   - password: The bind password
//   - fn: The single operation to run on the authenticated session
//
// Returns:
//   - error: a connection error, a *BindError, or whatever fn returned
func (c *Client) WithSession(ctx context.Context, bindDN, password string, fn func(*Session) error) error {
	session, err := c.open(ctx, bindDN, password)
	if err != nil {
		return err
	}
	defer func() { _ = session.release() }()

	return fn(session)
}

// open dials the server and binds. On any failure after the dial the
// connection is released before returning.
func (c *Client) open(ctx context.Context, bindDN, password string) (*Session, error) {
	start := time.Now()
	server := c.config.URL()

	if err := ctx.Err(); err != nil {
		return nil, operationCancelledError("connect", server, server, err)
	}

	c.logger.Debug("ldap_connection_establishing",
		slog.String("server", server),
		slog.Bool("start_tls", c.config.StartTLS))

	conn, err := c.dialer.DialURL(server, c.dialOpts...)
	if err != nil {
		c.logger.Error("ldap_connection_dial_failed",
			slog.String("server", server),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return nil, connectionError(server, err)
	}

	session := &Session{
		conn:   conn,
		server: server,
		bindDN: bindDN,
		logger: c.logger,
	}

	if c.config.StartTLS {
		if err := ctx.Err(); err != nil {
			_ = session.release()
			return nil, operationCancelledError("StartTLS", server, server, err)
		}

		if err := conn.StartTLS(c.tlsConfig); err != nil {
			c.logger.Error("ldap_start_tls_failed",
				slog.String("server", server),
				slog.String("error", err.Error()),
				slog.Duration("duration", time.Since(start)))
			_ = session.release()
			return nil, startTLSError(server, err)
		}

		c.logger.Debug("ldap_tls_established",
			slog.String("server", server))
	}

	if err := ctx.Err(); err != nil {
		_ = session.release()
		return nil, operationCancelledError("bind", maskSensitiveData(bindDN), server, err)
	}

	c.logger.Debug("ldap_bind_attempt",
		slog.String("server", server),
		slog.String("bind_dn_masked", maskSensitiveData(bindDN)))

	if err := conn.Bind(bindDN, password); err != nil {
		bindErr := newBindError(server, bindDN, err)
		c.logger.Warn("ldap_bind_failed",
			slog.String("server", server),
			slog.String("bind_dn_masked", maskSensitiveData(bindDN)),
			slog.Int("result_code", bindErr.Code),
			slog.String("diagnostic", bindErr.Diagnostic),
			slog.Duration("duration", time.Since(start)))
		_ = session.release()
		return nil, bindErr
	}

	c.logger.Info("ldap_bind_successful",
		slog.String("server", server),
		slog.String("bind_dn_masked", maskSensitiveData(bindDN)),
		slog.Duration("duration", time.Since(start)))

	return session, nil
}
