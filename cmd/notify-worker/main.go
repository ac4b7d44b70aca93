// Command notify-worker delivers order e-mails queued on Kafka over SMTP.
package main

import (
	"context"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xenking/orderflow/internal/notify"
)

type config struct {
	Notify notify.Config
}

func loadConfig() (*config, error) {
	_ = godotenv.Load()

	var cfg config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:          "ORDERFLOW",
		AllowUnknownEnvs:   true,
		AllowUnknownFields: true,
		AllowUnknownFlags:  true,
		Files:              []string{"config.yaml", "/etc/orderflow/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if len(cfg.Notify.Kafka.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	return &cfg, nil
}

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		mailer, err := notify.NewMailer(cfg.Notify.SMTP)
		if err != nil {
			return errors.Wrap(err, "create mailer")
		}

		consumer := notify.NewKafkaConsumer(cfg.Notify.Kafka, mailer, lg.Named("consumer"))
		defer func() {
			if err := consumer.Close(); err != nil {
				lg.Warn("Close consumer", zap.Error(err))
			}
		}()

		lg.Info("Starting notify worker",
			zap.Strings("brokers", cfg.Notify.Kafka.Brokers),
			zap.String("topic", cfg.Notify.Kafka.Topic),
			zap.String("group", cfg.Notify.Kafka.GroupID),
		)
		return consumer.Run(ctx)
	})
}
