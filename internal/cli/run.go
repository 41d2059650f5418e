package cli

import (
	"context"
	"errors"
	"log/slog"

	ldappasswd "github.com/netresearch/ldap-passwd"
	"github.com/netresearch/ldap-passwd/internal/output"
	"github.com/netresearch/ldap-passwd/internal/prompt"
)

// Prompt labels.
const (
	currentPasswordLabel = "Current Password: "
	newPasswordLabel     = "New Password: "
)

// runner executes one bind test or password change.
type runner struct {
	config        *ldappasswd.Config
	prompter      prompt.Prompter
	printer       *output.Printer
	logger        *slog.Logger
	clientOptions []ldappasswd.Option
}

// run connects, binds and either reports the bind or changes the password.
// A rejected password change is reported and does not make run fail; a
// rejected bind does.
func (r *runner) run(ctx context.Context) error {
	cfg := r.config

	opts := append([]ldappasswd.Option{ldappasswd.WithLogger(r.logger)}, r.clientOptions...)
	client, err := ldappasswd.New(cfg, opts...)
	if err != nil {
		return err
	}

	creds, err := r.credentials()
	if err != nil {
		return err
	}
	defer creds.Zeroize()

	bindDN := cfg.EffectiveBindDN()

	return client.WithSession(ctx, bindDN, creds.Current(), func(s *ldappasswd.Session) error {
		if cfg.TestBind {
			return r.printer.Print(bindReport{
				BindDN:  bindDN,
				Server:  s.Server(),
				Success: true,
			})
		}

		result, err := s.ModifyPassword(ctx, cfg.DN, creds.New(), cfg.Algorithm)
		if err != nil {
			var changeErr *ldappasswd.PasswordChangeError
			if !errors.As(err, &changeErr) {
				return err
			}
		}

		return r.printer.Print(changeReport{Result: *result})
	})
}

// credentials collects the bind password from the password file or a
// prompt, and the new password from a prompt unless only binding. Both
// sources trim surrounding whitespace; an empty new password asks the
// directory to generate one.
func (r *runner) credentials() (*ldappasswd.Credentials, error) {
	cfg := r.config

	var current string
	var err error
	if cfg.PasswdFile != "" {
		current, err = ldappasswd.ReadPasswordFile(cfg.PasswdFile)
	} else {
		current, err = r.prompter.Password(currentPasswordLabel)
	}
	if err != nil {
		return nil, err
	}

	creds := ldappasswd.NewCredentials(current, "")
	if cfg.TestBind {
		return creds, nil
	}

	next, err := r.prompter.Password(newPasswordLabel)
	if err != nil {
		creds.Zeroize()
		return nil, err
	}

	prepared, err := ldappasswd.PrepareNewPassword(next)
	if err != nil {
		creds.Zeroize()
		return nil, err
	}
	creds.SetNew(prepared)

	r.logger.Debug("credentials_collected",
		slog.Bool("from_passwd_file", cfg.PasswdFile != ""),
		slog.Bool("server_generated", prepared == ""))

	return creds, nil
}
