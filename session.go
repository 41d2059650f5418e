package ldappasswd

import (
	"fmt"
	"log/slog"
)

// Session is an authenticated connection owned by a single WithSession
// scope. It must not be retained after that scope returns.
type Session struct {
	conn     Conn
	server   string
	bindDN   string
	logger   *slog.Logger
	released bool
}

// BindDN returns the DN the session is authenticated as.
func (s *Session) BindDN() string {
	return s.bindDN
}

// Server returns the URL of the server the session is connected to.
func (s *Session) Server() string {
	return s.server
}

// release unbinds the connection. If the unbind request cannot be sent the
// connection is closed instead. Only the first call has any effect.
func (s *Session) release() error {
	if s.released {
		return nil
	}
	s.released = true

	if err := s.conn.Unbind(); err != nil {
		s.logger.Debug("ldap_unbind_failed",
			slog.String("server", s.server),
			slog.String("error", err.Error()))

		if closeErr := s.conn.Close(); closeErr != nil {
			s.logger.Warn("ldap_connection_close_failed",
				slog.String("server", s.server),
				slog.String("error", closeErr.Error()))
			return fmt.Errorf("failed to close connection to %s: %w", s.server, closeErr)
		}
	}

	s.logger.Debug("ldap_connection_released",
		slog.String("server", s.server))

	return nil
}
