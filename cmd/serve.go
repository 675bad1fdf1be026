package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/metal-toolbox/correlator/internal/api"
	"github.com/metal-toolbox/correlator/internal/eventbus"
	"github.com/metal-toolbox/correlator/pkg/configs"
	"github.com/metal-toolbox/correlator/pkg/correlation"
)

// serveCmd invokes the correlator api
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "starts the correlator api server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return startAPI(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "0.0.0.0:3001", "address to listen on")
	viperBindFlag("api.listen", serveCmd.Flags().Lookup("listen"))

	serveCmd.Flags().String("downstream-url", "", "downstream url pinged by the readiness check")
	viperBindFlag("api.downstream-url", serveCmd.Flags().Lookup("downstream-url"))

	serveCmd.Flags().Bool("events-enabled", true, "enable the NATS event bus")
	viperBindFlag("api.events-enabled", serveCmd.Flags().Lookup("events-enabled"))
}

func startAPI(_ context.Context) error {
	if viper.GetBool("tracing.enabled") {
		initTracer()
	}

	correlationConfig := appConfig.Correlation.ToCorrelationConfig()

	logger.Infow("correlation config",
		"header", correlationConfig.HeaderName(),
		"additional-headers", correlationConfig.AdditionalHeaders(),
		"auto-generate", correlationConfig.AutoGenerate(),
		"response-header", correlationConfig.AddToResponse(),
	)

	conf := &api.Conf{
		Debug:         viper.GetBool("logging.debug"),
		Listen:        viper.GetString("api.listen"),
		Logger:        logger.Desugar(),
		Correlation:   correlationConfig,
		DownstreamURL: viper.GetString("api.downstream-url"),
	}

	apiServer := &api.Server{
		Conf: conf,
	}

	if viper.GetBool("api.events-enabled") {
		logger.Debugw("initializing nats connection",
			"nats.url", appConfig.NATS.URL,
			"nats.subject-prefix", appConfig.NATS.SubjectPrefix,
		)

		nc, err := appConfig.NATSConn(appName, configs.WithLogger(logger.Desugar()))
		if err != nil {
			return err
		}

		defer nc.Close()

		apiServer.EventBus = eventbus.NewClient(
			eventbus.WithLogger(logger.Desugar()),
			eventbus.WithNATSConn(nc),
			eventbus.WithNATSPrefix(appConfig.NATS.SubjectPrefix),
			eventbus.WithExtractor(correlation.NewExtractor(correlationConfig)),
		)
	}

	logger.Debug("building api server and router")

	return apiServer.Run()
}
