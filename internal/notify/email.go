package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

// EmailSender delivers one message.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one booking email. EventID and EventType identify the
// outbox entry that produced it, so a redelivered event can be traced to the
// message it duplicated.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string

	BookingID string
	EventID   string
	EventType string
}

const defaultFromName = "Appointments"

func senderName(name string) string {
	if name == "" {
		return defaultFromName
	}
	return name
}

// fromHeader renders "Name <address>".
func fromHeader(name, address string) string {
	return fmt.Sprintf("%s <%s>", senderName(name), address)
}

// StubEmailSender logs instead of sending. It keeps what it would have sent.
type StubEmailSender struct {
	logger *logging.Logger

	mu   sync.Mutex
	sent []EmailMessage
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("stub email sender: would send email",
		"to", msg.To, "subject", msg.Subject, "booking_id", msg.BookingID, "event_type", msg.EventType)
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

// Sent returns a copy of the recorded messages.
func (s *StubEmailSender) Sent() []EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EmailMessage(nil), s.sent...)
}
