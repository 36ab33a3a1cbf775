package main

import (
	"fmt"

	"funds-transfer/pkg/config"
	"funds-transfer/pkg/logging"
	"funds-transfer/pkg/metrics"
	"funds-transfer/pkg/notify"
	"funds-transfer/pkg/notify/postgres"
	"funds-transfer/pkg/notify/rabbitmq"
	"funds-transfer/pkg/notify/redis"
	"funds-transfer/pkg/resilience"

	"go.uber.org/zap"
)

// buildSink opens every configured sink, wraps each in a circuit breaker and
// fans out to all of them. Sinks opened before a failure are closed again.
func buildSink(cfg config.NotifyConfig, logger *logging.Logger, collector metrics.Collector) (notify.Sink, error) {
	breaker := resilience.DefaultConfig().
		WithTimeout(cfg.DeliveryTimeout).
		WithCircuitBreakerTimeout(cfg.BreakerTimeout).
		WithReadyToTrip(resilience.ConsecutiveFailures(cfg.BreakerFailures))

	var sinks []notify.Sink
	closeAll := func() {
		for _, s := range sinks {
			s.Close()
		}
	}

	for _, name := range cfg.Sinks {
		sink, err := openSink(name, cfg, logger)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("open %s sink: %w", name, err)
		}
		logger.Info("notification sink ready", zap.String("sink", sink.Name()))
		sinks = append(sinks, resilience.NewSinkWithMetrics(sink, breaker, collector))
	}

	switch len(sinks) {
	case 0:
		return notify.NewLogSink(logger), nil
	case 1:
		return sinks[0], nil
	default:
		return notify.NewFanoutSink(sinks...), nil
	}
}

func openSink(name string, cfg config.NotifyConfig, logger *logging.Logger) (notify.Sink, error) {
	switch name {
	case config.SinkLog:
		return notify.NewLogSink(logger), nil

	case config.SinkWebhook:
		return notify.NewWebhookSink(notify.WebhookConfig{
			URL:     cfg.WebhookURL,
			Timeout: cfg.DeliveryTimeout,
		})

	case config.SinkRedis:
		rc := redis.DefaultConfig()
		rc.Addr = cfg.RedisAddr
		rc.ClusterAddrs = cfg.RedisClusterAddrs
		rc.Password = cfg.RedisPassword
		rc.Channel = cfg.RedisChannel
		return redis.NewPublishSink(rc)

	case config.SinkPostgres:
		pc := postgres.DefaultConfig()
		pc.DSN = cfg.PostgresDSN
		return postgres.NewAuditSink(pc)

	case config.SinkRabbitMQ:
		mc := rabbitmq.DefaultConfig()
		mc.URL = cfg.RabbitMQURL
		mc.Exchange = cfg.RabbitMQExchange
		return rabbitmq.NewPublisher(mc)

	default:
		return nil, fmt.Errorf("unknown sink %q", name)
	}
}
