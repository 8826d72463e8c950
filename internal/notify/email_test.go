package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSendGridSender(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{FromEmail: "desk@example.com"}, nil), "no API key")

	sender := NewSendGridSender(SendGridConfig{APIKey: "SG.key", FromEmail: "desk@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, defaultFromName, sender.fromName)

	sender = NewSendGridSender(SendGridConfig{APIKey: "SG.key", FromEmail: "desk@example.com", FromName: "Front Desk"}, nil)
	assert.Equal(t, "Front Desk", sender.fromName)
}

func TestSendGridMessageCarriesBookingTags(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "SG.key", FromEmail: "desk@example.com"}, nil)

	m := sender.buildMessage(EmailMessage{
		To: "pat@example.com", Subject: "Booked", Body: "See you",
		BookingID: "bk-1", EventID: "ev-1", EventType: "booking.created.v1",
	})

	assert.Equal(t, []string{"booking", "booking.created.v1"}, m.Categories)
	assert.Equal(t, "bk-1", m.CustomArgs["booking_id"])
	assert.Equal(t, "ev-1", m.CustomArgs["event_id"])
	require.Len(t, m.Content, 2)
	assert.Equal(t, "See you", m.Content[1].Value, "html falls back to the text body")
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	err := (&SendGridSender{}).Send(context.Background(), EmailMessage{To: "pat@example.com"})
	assert.Error(t, err)
}

func TestStubEmailSender_RecordsMessages(t *testing.T) {
	sender := NewStubEmailSender(nil)

	require.NoError(t, sender.Send(context.Background(), EmailMessage{To: "pat@example.com", Subject: "Test Subject"}))
	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Test Subject", sent[0].Subject)
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "desk@example.com"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To: "pat@example.com", Subject: "Booked", Body: "See you", HTML: "<p>See you</p>",
		BookingID: "bk 1", EventType: "booking.created.v1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Appointments <desk@example.com>", aws.ToString(client.input.FromEmailAddress))
	assert.NotNil(t, client.input.Content.Simple.Body.Html)
	assert.NotNil(t, client.input.Content.Simple.Body.Text)

	tags := map[string]string{}
	for _, tag := range client.input.EmailTags {
		tags[aws.ToString(tag.Name)] = aws.ToString(tag.Value)
	}
	assert.Equal(t, map[string]string{"booking_id": "bk_1", "event_type": "booking.created.v1"}, tags)

	client.err = errors.New("throttled")
	assert.Error(t, sender.Send(context.Background(), EmailMessage{To: "pat@example.com"}))
}

func TestNewSESSender_NilClient(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{}, nil))
}
