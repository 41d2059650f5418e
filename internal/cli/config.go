package cli

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	ldappasswd "github.com/netresearch/ldap-passwd"
)

// newViper layers flags, LDAP_PASSWD_* environment variables and the
// optional config file. A changed flag wins over the environment, which
// wins over the file. An empty configFile falls back to LDAP_PASSWD_CONFIG.
func newViper(flags *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, &ldappasswd.ConfigError{Message: "failed to bind flags", Err: err}
	}

	if configFile == "" {
		configFile = v.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, &ldappasswd.ConfigError{Field: "config", Value: configFile, Message: "cannot read config file", Err: err}
		}
	}

	return v, nil
}

// loadConfig unmarshals the layered settings into a validated Config.
func loadConfig(v *viper.Viper, args []string) (*ldappasswd.Config, error) {
	cfg := ldappasswd.DefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(algorithmDecodeHook())); err != nil {
		var configErr *ldappasswd.ConfigError
		if errors.As(err, &configErr) {
			return nil, configErr
		}
		return nil, &ldappasswd.ConfigError{Message: fmt.Sprintf("invalid configuration: %v", err), Err: err}
	}

	// The DN is positional; LDAP_PASSWD_DN or a dn key in the file stand in
	// when it is omitted.
	if len(args) > 0 {
		cfg.DN = args[0]
	} else {
		cfg.DN = v.GetString("dn")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// displaySettings controls output and logging for one invocation.
type displaySettings struct {
	output    string
	logLevel  string
	logFormat string
}

// loadDisplaySettings reads the output and logging flags from v, so they
// can be set through the environment or the config file like the others.
func loadDisplaySettings(v *viper.Viper) displaySettings {
	s := displaySettings{
		output:    v.GetString("output"),
		logLevel:  v.GetString("log-level"),
		logFormat: v.GetString("log-format"),
	}
	if v.GetBool("verbose") {
		s.logLevel = "debug"
	}
	return s
}

// algorithmDecodeHook converts strings to ldappasswd.Algorithm, accepting
// any case and rejecting unknown names with a *ldappasswd.ConfigError.
func algorithmDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(ldappasswd.Algorithm("")) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return ldappasswd.ParseAlgorithm(v)
		case ldappasswd.Algorithm:
			return ldappasswd.ParseAlgorithm(string(v))
		default:
			return data, nil
		}
	}
}
