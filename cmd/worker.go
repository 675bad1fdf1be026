package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/metal-toolbox/correlator/internal/eventbus"
	"github.com/metal-toolbox/correlator/pkg/client"
	"github.com/metal-toolbox/correlator/pkg/configs"
	"github.com/metal-toolbox/correlator/pkg/correlation"
	events "github.com/metal-toolbox/correlator/pkg/events/v1alpha1"
)

// workerCmd runs the correlator background worker
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "starts the correlator event worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return startWorker(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().Duration("tick-interval", 30*time.Second, "interval between scheduled tick events")
	viperBindFlag("worker.tick-interval", workerCmd.Flags().Lookup("tick-interval"))

	workerCmd.Flags().String("api-url", "", "url of a correlator api to call on each tick")
	viperBindFlag("worker.api-url", workerCmd.Flags().Lookup("api-url"))
}

func startWorker(ctx context.Context) error {
	if viper.GetBool("tracing.enabled") {
		initTracer()
	}

	correlationConfig := appConfig.Correlation.ToCorrelationConfig()
	extractor := correlation.NewExtractor(correlationConfig)
	elogger := correlation.NewLogger(logger.Desugar())

	logger.Debugw("initializing nats connection",
		"nats.url", appConfig.NATS.URL,
		"nats.subject-prefix", appConfig.NATS.SubjectPrefix,
	)

	nc, err := appConfig.NATSConn(appName+"-worker", configs.WithLogger(logger.Desugar()))
	if err != nil {
		return err
	}

	defer nc.Close()

	bus := eventbus.NewClient(
		eventbus.WithLogger(logger.Desugar()),
		eventbus.WithNATSConn(nc),
		eventbus.WithNATSPrefix(appConfig.NATS.SubjectPrefix),
		eventbus.WithExtractor(extractor),
	)
	defer bus.Shutdown() //nolint:errcheck

	var correlatorClient *client.Client

	if u := viper.GetString("worker.api-url"); u != "" {
		correlatorClient, err = client.NewClient(
			client.WithURL(u),
			client.WithLogger(logger.Desugar()),
			client.WithCorrelationConfig(correlationConfig),
		)
		if err != nil {
			return err
		}
	}

	sub, err := bus.Subscribe(events.CorrelatorNotificationsEventSubject, func(ctx context.Context, event *events.Event) error {
		elogger.Info(ctx, "received notification event",
			zap.String("event.action", event.Action),
			zap.String("event.actor-id", event.ActorID),
		)

		return nil
	})
	if err != nil {
		return err
	}

	defer sub.Unsubscribe() //nolint:errcheck

	interval := viper.GetDuration("worker.tick-interval")

	logger.Infow("starting tick loop", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT)
	signal.Notify(sig, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			tick(ctx, bus, correlatorClient, extractor, elogger, interval)
		case s := <-sig:
			logger.Debugw("received shutdown signal", "signal", s)
			logger.Info("bye")

			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// tick establishes a fresh correlation scope and fans the resulting id out
// over the event bus and, when configured, a correlator api call.
func tick(ctx context.Context, bus *eventbus.Client, correlatorClient *client.Client, extractor *correlation.Extractor, elogger *correlation.Logger, interval time.Duration) {
	source := correlation.TimerSource{Schedule: interval.String()}

	tickCtx, id := source.Correlate(ctx, extractor)

	elogger.Debug(tickCtx, "tick started")

	scope := correlation.Capture(tickCtx)

	if err := scope.Run(ctx, func(ctx context.Context) error {
		return bus.Publish(ctx, events.CorrelatorTicksEventSubject, &events.Event{
			Version: events.Version,
			Action:  events.CorrelatorEventTick,
			ActorID: id,
		})
	}); err != nil {
		elogger.Error(tickCtx, "failed to publish tick event", zap.Error(err))
	}

	if correlatorClient != nil {
		whoami, err := correlatorClient.Whoami(tickCtx)
		if err != nil {
			elogger.Error(tickCtx, "failed calling correlator api", zap.Error(err))
			return
		}

		elogger.Info(tickCtx, "correlator api observed tick",
			zap.String("observed-id", whoami.CorrelationID),
			zap.String("observed-source", whoami.Source),
		)
	}

	elogger.Debug(tickCtx, "tick completed")
}
