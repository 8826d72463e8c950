package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/appointment-scheduler/internal/config"
	"github.com/wolfman30/appointment-scheduler/internal/events"
	"github.com/wolfman30/appointment-scheduler/internal/notify"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

// BuildEmailSender picks the booking email transport from EMAIL_PROVIDER.
// Misconfigured providers fall back to the stub so delivery never blocks.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.EmailProvider)) {
	case "sendgrid":
		if cfg.SendGridAPIKey != "" && cfg.EmailFrom != "" {
			logger.Info("sendgrid email sender initialized")
			return notify.NewSendGridSender(notify.SendGridConfig{
				APIKey:    cfg.SendGridAPIKey,
				FromEmail: cfg.EmailFrom,
				FromName:  cfg.EmailFromName,
			}, logger)
		}
		logger.Warn("sendgrid selected but SENDGRID_API_KEY or EMAIL_FROM not set; using stub")
	case "ses":
		if awsCfg != nil && cfg.EmailFrom != "" {
			logger.Info("ses email sender initialized", "region", cfg.AWSRegion)
			return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
				FromEmail: cfg.EmailFrom,
				FromName:  cfg.EmailFromName,
			}, logger)
		}
		logger.Warn("ses selected but AWS config or EMAIL_FROM missing; using stub")
	}
	return notify.NewStubEmailSender(logger)
}

// BuildEventHandler assembles the outbox delivery chain: booking emails
// always, plus the SQS fan-out when a queue is configured.
func BuildEventHandler(queue events.SQSAPI, queueURL string, email notify.EmailSender, parties notify.PartyLookup, logger *logging.Logger) events.DeliveryHandler {
	handlers := []events.DeliveryHandler{notify.NewBookingNotifier(email, parties, logger)}
	if queue != nil && strings.TrimSpace(queueURL) != "" {
		handlers = append(handlers, events.NewSQSHandler(queue, queueURL))
	}
	return events.NewFanOut(handlers...)
}
