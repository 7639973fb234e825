// Package cli contains the ospolicy command-line front end. It resolves
// configuration and credentials, builds an authenticated client and
// dispatches to the policy subcommands.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/objstore-policy-mgmt/internal/admin"
	"github.com/objstore-policy-mgmt/internal/audit"
	"github.com/objstore-policy-mgmt/internal/config"
	"github.com/objstore-policy-mgmt/internal/creds"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// usageError marks missing required parameters, reported with exit code 2
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

type globalOpts struct {
	baseURI        string
	domainName     string
	tenancyName    string
	username       string
	credsFilepath  string
	configFilepath string
	logFilepath    string
}

var opts globalOpts

var rootCmd = &cobra.Command{
	Use:           "ospolicy",
	Short:         "Object store policy management utility",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.baseURI, "base-uri", "b", "", "URI to object store domain")
	pf.StringVarP(&opts.domainName, "domain-name", "d", "", "domain name")
	pf.StringVarP(&opts.tenancyName, "tenancy-name", "t", "", "tenancy name")
	pf.StringVarP(&opts.username, "username", "u", "",
		"username for access to the object store API; alternatively set --creds-filepath")
	pf.StringVarP(&opts.credsFilepath, "creds-filepath", "c", "",
		`path to JSON file containing "username" and "passwd"`)
	pf.StringVarP(&opts.configFilepath, "config-filepath", "f", "",
		`path to YAML file containing "base_uri", "domain_name" and "tenancy_name"`)
	pf.StringVarP(&opts.logFilepath, "log-filepath", "l", "", "write logging output to a log file")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(etcCmd)
	rootCmd.AddCommand(newBucketCmd())
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var uerr *usageError
		if stderrors.As(err, &uerr) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

// newLogger builds the diagnostic logger: quiet on stderr by default, info
// level to a file when --log-filepath is given.
func newLogger() (*logrus.Logger, error) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	if opts.logFilepath != "" {
		file, err := os.OpenFile(opts.logFilepath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		log.SetOutput(file)
		log.SetLevel(logrus.InfoLevel)
	}
	return log, nil
}

// resolveSettings merges flag values with the optional settings file. Values
// from the settings file take precedence when present.
func resolveSettings() (*config.Settings, error) {
	settings := &config.Settings{
		BaseURI:     opts.baseURI,
		DomainName:  opts.domainName,
		TenancyName: opts.tenancyName,
	}

	if opts.configFilepath != "" {
		loaded, err := config.LoadSettings(opts.configFilepath)
		if err != nil {
			return nil, err
		}
		if loaded.BaseURI != "" {
			settings.BaseURI = loaded.BaseURI
		}
		if loaded.DomainName != "" {
			settings.DomainName = loaded.DomainName
		}
		if loaded.TenancyName != "" {
			settings.TenancyName = loaded.TenancyName
		}
		settings.Timeout = loaded.Timeout
		settings.S3 = loaded.S3
		settings.Audit = loaded.Audit
	}

	return settings, nil
}

// resolveCredentials builds the credential-provider chain: an explicit
// credentials file or the --username flag, falling back to an interactive
// password prompt.
func resolveCredentials() (string, string, error) {
	var chain creds.Chain
	switch {
	case opts.credsFilepath != "":
		chain = creds.Chain{creds.File(opts.credsFilepath), creds.Prompt{}}
	case opts.username != "":
		chain = creds.Chain{creds.Static{Username: opts.username}, creds.Prompt{}}
	default:
		return "", "", &usageError{msg: "no username set"}
	}
	return chain.Credentials()
}

// newAdminClient resolves settings and credentials and authenticates a client
func newAdminClient(ctx context.Context) (*admin.Client, *config.Settings, error) {
	settings, err := resolveSettings()
	if err != nil {
		return nil, nil, err
	}

	if settings.BaseURI == "" {
		return nil, nil, &usageError{msg: "no base URI set"}
	}
	if settings.DomainName == "" {
		return nil, nil, &usageError{msg: "no domain name set"}
	}
	if settings.TenancyName == "" {
		return nil, nil, &usageError{msg: "no tenancy name set"}
	}

	username, passwd, err := resolveCredentials()
	if err != nil {
		return nil, nil, err
	}

	log, err := newLogger()
	if err != nil {
		return nil, nil, err
	}

	auditLogger, err := audit.NewLogger(&settings.Audit)
	if err != nil {
		return nil, nil, err
	}

	clientOpts := []admin.Option{
		admin.WithLogger(log),
		admin.WithAuditLogger(auditLogger),
	}
	if settings.Timeout > 0 {
		clientOpts = append(clientOpts, admin.WithTimeout(settings.Timeout))
	}

	client, err := admin.New(ctx, settings.BaseURI, username, passwd, clientOpts...)
	if err != nil {
		return nil, nil, err
	}
	return client, settings, nil
}
