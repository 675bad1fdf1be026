package configs

import (
	"github.com/nats-io/nats.go"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// viperBindFlag provides a wrapper around the viper bindings that handles error checks
func viperBindFlag(name string, flag *pflag.Flag) {
	err := viper.BindPFlag(name, flag)
	if err != nil {
		panic(err)
	}
}

// Configs holds the configuration for the application.
type Configs struct {
	NATS        NATSConfig        `mapstructure:"nats"`
	Correlation CorrelationConfig `mapstructure:"correlation"`
}

// AddFlags adds all the flags for the configuration.
func AddFlags(flags *pflag.FlagSet) {
	AddNATSFlags(flags)
	AddCorrelationFlags(flags)
}

// Validate validates all the configs
func (cfg *Configs) Validate() error {
	if err := cfg.NATS.Validate(); err != nil {
		return err
	}

	return cfg.Correlation.Validate()
}

type optionals struct {
	logger *zap.Logger
}

func newOptionals() *optionals {
	return &optionals{logger: zap.NewNop()}
}

// Opt is a functional option type for configuring optional parameters.
type Opt func(*optionals)

// WithLogger sets the logger in the options.
func WithLogger(l *zap.Logger) Opt {
	return func(o *optionals) {
		o.logger = l
	}
}

// NATSConn is a shorthand that creates a NATS connection based on all the
// configs available
func (cfg *Configs) NATSConn(name string, opts ...Opt) (*nats.Conn, error) {
	return cfg.NATS.ToNATSConnection(name, opts...)
}
