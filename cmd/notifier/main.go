package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ditechted/healthlink/internal/config"
	"github.com/ditechted/healthlink/internal/log"
	"github.com/ditechted/healthlink/internal/mail"
	"github.com/ditechted/healthlink/internal/queue"
)

// The notifier drains user.* events off the topic exchange and turns them
// into transactional email.
func main() {
	cfg := config.Load()

	logger, err := log.Init(cfg.Prod)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.Rabbit.URL == "" {
		logger.Fatal("RABBIT_URL is required for the notifier")
	}

	consumer, err := queue.NewConsumer(cfg.Rabbit.URL, cfg.Rabbit.Exchange, cfg.Rabbit.Queue, cfg.Rabbit.BindKey)
	if err != nil {
		logger.Fatal("rabbit connect", zap.Error(err))
	}
	defer consumer.Close()

	sender := mail.NewSender(cfg.SMTP)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("notifier consuming",
		zap.String("exchange", cfg.Rabbit.Exchange),
		zap.String("queue", cfg.Rabbit.Queue),
		zap.Int("workers", cfg.Rabbit.Concurrency))

	err = consumer.Consume(ctx, cfg.Rabbit.Concurrency, func(d queue.Delivery) error {
		if err := dispatch(sender, d); err != nil {
			logger.Error("dispatch failed", zap.String("key", d.Key), zap.Error(err))
			return err
		}
		logger.Info("notification sent", zap.String("key", d.Key))
		return nil
	})
	if err != nil {
		logger.Fatal("consume", zap.Error(err))
	}
}

func dispatch(sender *mail.Sender, d queue.Delivery) error {
	switch d.Key {
	case queue.KeyUserRegistered:
		var ev queue.UserRegistered
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			return err
		}
		return sender.SendVerification(ev.Email, ev.VerificationCode)

	case queue.KeyUserVerified:
		var ev queue.UserVerified
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			return err
		}
		return sender.SendWelcome(ev.Email, ev.FirstName)

	case queue.KeyPasswordResetReq:
		var ev queue.PasswordResetRequested
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			return err
		}
		return sender.SendPasswordReset(ev.Email, ev.ResetURL)

	case queue.KeyPasswordResetDone:
		var ev queue.PasswordResetDone
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			return err
		}
		return sender.SendPasswordResetSuccess(ev.Email)

	default:
		// unknown key on our binding; ack and move on
		return nil
	}
}
