// Package cli implements the ldap-passwd command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	ldappasswd "github.com/netresearch/ldap-passwd"
	"github.com/netresearch/ldap-passwd/internal/output"
	"github.com/netresearch/ldap-passwd/internal/prompt"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// EnvPrefix prefixes the environment variables that mirror the flags,
// e.g. LDAP_PASSWD_HOST or LDAP_PASSWD_BIND_DN.
const EnvPrefix = "LDAP_PASSWD"

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// App holds the streams and collaborators of one invocation.
type App struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Prompter overrides the password prompt; nil reads from In.
	Prompter prompt.Prompter
	// ClientOptions are appended when the LDAP client is created.
	ClientOptions []ldappasswd.Option
}

// DefaultApp returns an App wired to the process's standard streams.
func DefaultApp() *App {
	return &App{
		In:  os.Stdin,
		Out: os.Stdout,
		Err: os.Stderr,
	}
}

// NewRootCommand builds the ldap-passwd command.
func NewRootCommand(app *App) *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "ldap-passwd [flags] DN",
		Short: "Change LDAP password",
		Long: `ldap-passwd changes the password of an LDAP entry.

It binds to the directory (as DN, or as --bind-dn) and issues the
password-modify extended operation (RFC 3062) for DN. With --test-bind it
only checks that the bind succeeds.

Every flag can also be set through an environment variable prefixed with
LDAP_PASSWD_, for example LDAP_PASSWD_HOST or LDAP_PASSWD_LOG_LEVEL, or as a
key in the YAML file given by --config.`,
		Example: `  ldap-passwd uid=alice,dc=example,dc=com
  ldap-passwd --start-tls -a sha512 -b cn=admin,dc=example,dc=com uid=alice,dc=example,dc=com
  ldap-passwd -t -p ~/.ldap-bind uid=alice,dc=example,dc=com`,
		Args:          dnArg,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, app, configFile, args)
		},
	}

	cmd.SetIn(app.In)
	cmd.SetOut(app.Out)
	cmd.SetErr(app.Err)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ldappasswd.ConfigError{Message: err.Error(), Err: err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "YAML file with default flag values")
	registerDisplayFlags(pf)

	registerFlags(cmd.Flags())

	cmd.AddCommand(newVersionCommand())
	cmd.CompletionOptions.DisableDefaultCmd = true

	return cmd
}

// registerFlags defines the flags that map onto ldappasswd.Config.
func registerFlags(flags *pflag.FlagSet) {
	flags.String("host", ldappasswd.DefaultHost, "LDAP host")
	flags.IntP("port", "P", ldappasswd.DefaultPort, "LDAP port")
	flags.Bool("start-tls", false, "Use StartTLS over LDAP before BIND.")
	flags.StringP("bind-dn", "b", "", "The DN of the entry to BIND as (default: DN).")
	flags.StringP("passwd-file", "p", "", "File containing the BIND password.")
	flags.BoolP("test-bind", "t", false, "Test BIND only-- don't change password.")
	flags.StringP("algorithm", "a", string(ldappasswd.AlgorithmCleartext), "Hashing algorithm to use (cleartext|sha512).")
	flags.String("tls-ca-file", "", "PEM file with CA certificates trusted for StartTLS")
	flags.Bool("tls-insecure-skip-verify", false, "Skip certificate verification for StartTLS")
}

// registerDisplayFlags defines the output and logging flags.
func registerDisplayFlags(flags *pflag.FlagSet) {
	flags.StringP("output", "o", "text", "Output format (text|table|json|yaml)")
	flags.String("log-level", "warn", "Log level (debug|info|warn|error)")
	flags.String("log-format", "text", "Log format (text|json)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
}

// dnArg accepts at most one positional DN. A missing DN may still come from
// the environment or the config file, so it is checked during validation.
func dnArg(_ *cobra.Command, args []string) error {
	if len(args) > 1 {
		return ldappasswd.NewConfigError("dn", fmt.Sprintf("expected one DN, got %d arguments", len(args)))
	}
	return nil
}

func runRoot(cmd *cobra.Command, app *App, configFile string, args []string) error {
	v, err := newViper(cmd.Flags(), configFile)
	if err != nil {
		return err
	}

	display := loadDisplaySettings(v)
	logger, err := newLogger(app.Err, display.logLevel, display.logFormat)
	if err != nil {
		return ldappasswd.NewConfigError("log", err.Error())
	}

	format, err := output.ParseFormat(display.output)
	if err != nil {
		return ldappasswd.NewConfigError("output", err.Error())
	}

	cfg, err := loadConfig(v, args)
	if err != nil {
		return err
	}

	prompter := app.Prompter
	if prompter == nil {
		prompter = prompt.New(app.In, app.Err)
	}

	r := &runner{
		config:        cfg,
		prompter:      prompter,
		printer:       output.NewPrinter(app.Out, format),
		logger:        logger,
		clientOptions: app.ClientOptions,
	}
	return r.run(cmd.Context())
}

// Execute runs the command with args and returns the process exit code.
// Errors are written to app.Err.
func Execute(ctx context.Context, app *App, args []string) int {
	cmd := NewRootCommand(app)
	// cobra falls back to os.Args when args is nil.
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	return exitCode(app.Err, cmd.ExecuteContext(ctx))
}

func exitCode(w io.Writer, err error) int {
	if err == nil {
		return ExitOK
	}

	var configErr *ldappasswd.ConfigError
	if errors.As(err, &configErr) {
		_, _ = fmt.Fprintf(w, "usage error: %v\nRun 'ldap-passwd --help' for usage.\n", err)
		return ExitUsage
	}

	var bindErr *ldappasswd.BindError
	if errors.As(err, &bindErr) {
		_, _ = fmt.Fprintf(w, "Error BINDing to LDAP directory: %v\n", bindErr)
		return ExitFailure
	}

	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return ExitFailure
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("ldap-passwd %s (commit %s, built %s)\n", Version, Commit, Date)
		},
	}
}
