package configs

import (
	"github.com/nats-io/nats.go"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// AddNATSFlags adds NATS flags to the given FlagSet
func AddNATSFlags(flags *pflag.FlagSet) {
	flags.String("nats-url", "nats://127.0.0.1:4222", "NATS server connection url")
	viperBindFlag("nats.url", flags.Lookup("nats-url"))
	flags.String("nats-creds-file", "", "Path to the file containing the NATS credentials file")
	viperBindFlag("nats.creds-file", flags.Lookup("nats-creds-file"))
	flags.String("nats-subject-prefix", "correlator.events", "prefix for NATS subjects")
	viperBindFlag("nats.subject-prefix", flags.Lookup("nats-subject-prefix"))
}

// NATSConfig holds the configuration for NATS
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	CredsFile     string `mapstructure:"creds-file"`
	SubjectPrefix string `mapstructure:"subject-prefix"`
}

// ToNATSConnection creates a NATS connection based on a config. Credentials
// are optional so a local unauthenticated server works out of the box.
func (c *NATSConfig) ToNATSConnection(name string, opts ...Opt) (*nats.Conn, error) {
	if c.URL == "" {
		return nil, ErrMissingNATSURL
	}

	o := newOptionals()

	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger

	natsopts := []nats.Option{
		nats.Name(name),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			if sub != nil {
				logger.Error("nats async error", zap.String("subject", sub.Subject), zap.Error(err))
				return
			}

			logger.Error("nats async error", zap.Error(err))
		}),
	}

	if c.CredsFile != "" {
		natsopts = append(natsopts, nats.UserCredentials(c.CredsFile))
	}

	return nats.Connect(c.URL, natsopts...)
}

// Validate validates the NATS configuration.
func (c *NATSConfig) Validate() error {
	if c.URL == "" {
		return ErrMissingNATSURL
	}

	return nil
}
