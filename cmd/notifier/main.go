package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/travel-storefront/internal/adapters/rabbit"
	"github.com/robertarktes/travel-storefront/internal/config"
	"github.com/robertarktes/travel-storefront/internal/domain"
	"github.com/robertarktes/travel-storefront/internal/notify"
	"github.com/robertarktes/travel-storefront/internal/observability"
)

const queueName = "storefront.notifications"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "storefront-notifier")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger(observability.LoggerOptions{Level: cfg.LogLevel, File: cfg.LogFile})

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, queueName, domain.EventBookingConfirmed, domain.EventContactReceived)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to consume %s: %v", queueName, err)
	}

	mailer := notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	notifier := notify.NewNotifier(mailer, cfg.MailFrom, cfg.SupportEmail, logger)

	logger.WithField("queue", queueName).Info("Notifier started")
	go notifier.Run(ctx, deliveries)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown notifier")
}
