package configs

import (
	"github.com/spf13/pflag"

	"github.com/metal-toolbox/correlator/pkg/correlation"
)

// AddCorrelationFlags adds correlation flags to the given FlagSet
func AddCorrelationFlags(flags *pflag.FlagSet) {
	flags.String("correlation-header", correlation.DefaultHeaderName, "header name carrying the correlation id")
	viperBindFlag("correlation.header", flags.Lookup("correlation-header"))
	flags.StringSlice("correlation-additional-headers", nil, "additional header names to capture and propagate")
	viperBindFlag("correlation.additional-headers", flags.Lookup("correlation-additional-headers"))
	flags.Bool("correlation-auto-generate", true, "generate a correlation id when the inbound request has none")
	viperBindFlag("correlation.auto-generate", flags.Lookup("correlation-auto-generate"))
	flags.Bool("correlation-response-header", true, "mirror the correlation id onto HTTP responses")
	viperBindFlag("correlation.response-header", flags.Lookup("correlation-response-header"))
	flags.Bool("correlation-additional-response-headers", false, "mirror captured additional headers onto HTTP responses")
	viperBindFlag("correlation.additional-response-headers", flags.Lookup("correlation-additional-response-headers"))
	flags.Bool("correlation-log-execution", true, "log unit-of-work execution at the boundaries")
	viperBindFlag("correlation.log-execution", flags.Lookup("correlation-log-execution"))
}

// CorrelationConfig holds the configuration for correlation propagation
type CorrelationConfig struct {
	Header                    string   `mapstructure:"header"`
	AdditionalHeaders         []string `mapstructure:"additional-headers"`
	AutoGenerate              bool     `mapstructure:"auto-generate"`
	ResponseHeader            bool     `mapstructure:"response-header"`
	AdditionalResponseHeaders bool     `mapstructure:"additional-response-headers"`
	LogExecution              bool     `mapstructure:"log-execution"`
}

// ToCorrelationConfig builds the immutable library config from this config
func (c *CorrelationConfig) ToCorrelationConfig() correlation.Config {
	return correlation.NewConfig(
		correlation.WithHeaderName(c.Header),
		correlation.WithAdditionalHeaders(c.AdditionalHeaders...),
		correlation.WithAutoGenerate(c.AutoGenerate),
		correlation.WithResponseHeader(c.ResponseHeader),
		correlation.WithAdditionalResponseHeaders(c.AdditionalResponseHeaders),
		correlation.WithExecutionLogging(c.LogExecution),
	)
}

// Validate validates the correlation configuration.
func (c *CorrelationConfig) Validate() error {
	if c.Header == "" {
		return ErrMissingCorrelationHeader
	}

	return nil
}
