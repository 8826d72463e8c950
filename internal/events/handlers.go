package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
)

// SQSAPI is the slice of the SQS client used to publish events.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSHandler publishes outbox entries to a queue for downstream consumers.
type SQSHandler struct {
	client   SQSAPI
	queueURL string
}

func NewSQSHandler(client SQSAPI, queueURL string) *SQSHandler {
	if client == nil {
		panic("events: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("events: SQS queueURL cannot be empty")
	}
	return &SQSHandler{client: client, queueURL: queueURL}
}

func (h *SQSHandler) Handle(ctx context.Context, entry OutboxEntry) error {
	_, err := h.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(h.queueURL),
		MessageBody: aws.String(string(entry.Payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type":   {DataType: aws.String("String"), StringValue: aws.String(entry.Type)},
			"event_id":     {DataType: aws.String("String"), StringValue: aws.String(entry.ID.String())},
			"aggregate_id": {DataType: aws.String("String"), StringValue: aws.String(entry.AggregateID)},
		},
	})
	if err != nil {
		return fmt.Errorf("events: failed to send SQS message: %w", err)
	}
	return nil
}

// FanOut runs every handler and joins their errors. A failed entry stays
// pending, and on the next pass only the handlers that have not yet succeeded
// for it run again. Progress is kept in process, so a restart between passes
// can repeat a delivery.
type FanOut struct {
	handlers []DeliveryHandler

	mu        sync.Mutex
	delivered map[uuid.UUID]map[int]struct{}
}

func NewFanOut(handlers ...DeliveryHandler) *FanOut {
	out := &FanOut{delivered: make(map[uuid.UUID]map[int]struct{})}
	for _, h := range handlers {
		if h != nil {
			out.handlers = append(out.handlers, h)
		}
	}
	return out
}

// Len reports how many handlers receive each entry.
func (f *FanOut) Len() int { return len(f.handlers) }

func (f *FanOut) Handle(ctx context.Context, entry OutboxEntry) error {
	var errs []error
	for i, h := range f.handlers {
		if f.done(entry.ID, i) {
			continue
		}
		if err := h.Handle(ctx, entry); err != nil {
			errs = append(errs, err)
			continue
		}
		f.mark(entry.ID, i)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	f.mu.Lock()
	delete(f.delivered, entry.ID)
	f.mu.Unlock()
	return nil
}

func (f *FanOut) done(id uuid.UUID, handler int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.delivered[id][handler]
	return ok
}

func (f *FanOut) mark(id uuid.UUID, handler int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delivered[id] == nil {
		f.delivered[id] = make(map[int]struct{})
	}
	f.delivered[id][handler] = struct{}{}
}

// HandlerFunc adapts a function to DeliveryHandler.
type HandlerFunc func(ctx context.Context, entry OutboxEntry) error

func (fn HandlerFunc) Handle(ctx context.Context, entry OutboxEntry) error { return fn(ctx, entry) }
