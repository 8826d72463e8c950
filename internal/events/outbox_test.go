package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/appointment-scheduler/internal/observability/metrics"
)

func TestOutboxStoreFlow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewOutboxStore(mock)

	mock.ExpectExec("INSERT INTO outbox").WithArgs(pgxmock.AnyArg(), "bk-1", TypeBookingCreated, pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if _, err := store.Insert(context.Background(), "bk-1", TypeBookingCreated, BookingEventV1{BookingID: "bk-1"}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	now := time.Now().UTC()
	id := uuid.New()
	rows := pgxmock.NewRows([]string{"id", "aggregate_id", "type", "payload", "created_at"}).AddRow(id, "bk-1", TypeBookingCreated, []byte(`{"booking_id":"bk-1"}`), now)
	mock.ExpectQuery("SELECT id").WithArgs(int32(10)).WillReturnRows(rows)

	entries, err := store.FetchPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch pending failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id || entries[0].AggregateID != "bk-1" {
		t.Fatalf("unexpected entries: %#v", entries)
	}

	mock.ExpectExec("UPDATE outbox").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.MarkDelivered(context.Background(), id)
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if !ok {
		t.Fatal("expected mark delivered to report success")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDelivererKeepsFailedEntriesPending(t *testing.T) {
	ctx := context.Background()
	outbox := NewMemoryOutbox()
	okID, _ := outbox.Insert(ctx, "bk-1", TypeBookingCreated, map[string]string{"booking_id": "bk-1"})
	badID, _ := outbox.Insert(ctx, "bk-2", TypeBookingDeleted, map[string]string{"booking_id": "bk-2"})

	var seen []string
	handler := HandlerFunc(func(ctx context.Context, entry OutboxEntry) error {
		seen = append(seen, entry.AggregateID)
		if entry.ID == badID {
			return errors.New("downstream unavailable")
		}
		return nil
	})

	NewDeliverer(outbox, handler, nil).WithBatchSize(10).Drain(ctx)

	if len(seen) != 2 {
		t.Fatalf("expected both entries handled, got %v", seen)
	}
	pending, _ := outbox.FetchPending(ctx, 10)
	if len(pending) != 1 || pending[0].ID != badID {
		t.Fatalf("expected only the failed entry to remain, got %#v", pending)
	}
	if ok, _ := outbox.MarkDelivered(ctx, okID); ok {
		t.Fatal("delivered entry should not be marked twice")
	}
}

func TestDelivererStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	outbox := NewMemoryOutbox()
	delivered := make(chan struct{}, 1)
	_, _ = outbox.Insert(ctx, "bk-1", TypeBookingCreated, struct{}{})

	d := NewDeliverer(outbox, HandlerFunc(func(ctx context.Context, entry OutboxEntry) error {
		select {
		case delivered <- struct{}{}:
		default:
		}
		return nil
	}), nil).WithInterval(5 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("entry was not delivered")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliverer did not stop")
	}
}

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSHandlerPublishesPayload(t *testing.T) {
	client := &fakeSQS{}
	h := NewSQSHandler(client, "https://sqs.local/queue/bookings")
	payload, _ := json.Marshal(BookingEventV1{BookingID: "bk-1", Status: "pending"})

	entry := OutboxEntry{ID: uuid.New(), AggregateID: "bk-1", Type: TypeBookingCreated, Payload: payload}
	if err := h.Handle(context.Background(), entry); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(client.inputs) != 1 {
		t.Fatalf("expected 1 send, got %d", len(client.inputs))
	}
	in := client.inputs[0]
	if aws.ToString(in.MessageBody) != string(payload) {
		t.Fatalf("unexpected body %q", aws.ToString(in.MessageBody))
	}
	if got := aws.ToString(in.MessageAttributes["event_type"].StringValue); got != TypeBookingCreated {
		t.Fatalf("unexpected event_type attribute %q", got)
	}
}

func TestFanOutJoinsErrors(t *testing.T) {
	var calls int
	ok := HandlerFunc(func(context.Context, OutboxEntry) error { calls++; return nil })
	failing := &SQSHandler{client: &fakeSQS{err: errors.New("throttled")}, queueURL: "q"}

	fan := NewFanOut(ok, nil, failing)
	if fan.Len() != 2 {
		t.Fatalf("expected nil handlers to be dropped, got %d", fan.Len())
	}
	if err := fan.Handle(context.Background(), OutboxEntry{ID: uuid.New()}); err == nil {
		t.Fatal("expected joined error")
	}
	if calls != 1 {
		t.Fatalf("expected first handler to run once, got %d", calls)
	}
}

func TestFanOutRetryRunsOnlyFailedHandlers(t *testing.T) {
	ctx := context.Background()
	outbox := NewMemoryOutbox()
	if _, err := outbox.Insert(ctx, "bk-1", TypeBookingCreated, struct{}{}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var emails int
	notifier := HandlerFunc(func(context.Context, OutboxEntry) error { emails++; return nil })
	queue := &fakeSQS{err: errors.New("throttled")}
	d := NewDeliverer(outbox, NewFanOut(notifier, NewSQSHandler(queue, "q")), nil)

	d.Drain(ctx)
	d.Drain(ctx)
	if pending, _ := outbox.FetchPending(ctx, 10); len(pending) != 1 {
		t.Fatalf("expected entry to stay pending while the queue fails, got %d", len(pending))
	}

	queue.err = nil
	d.Drain(ctx)
	if pending, _ := outbox.FetchPending(ctx, 10); len(pending) != 0 {
		t.Fatalf("expected entry delivered, got %d pending", len(pending))
	}
	if emails != 1 {
		t.Fatalf("expected one notification across retries, got %d", emails)
	}
	if len(queue.inputs) != 3 {
		t.Fatalf("expected three queue attempts, got %d", len(queue.inputs))
	}
}

func TestDelivererWithMetrics(t *testing.T) {
	ctx := context.Background()
	outbox := NewMemoryOutbox()
	_, _ = outbox.Insert(ctx, "bk-1", TypeBookingStatusChanged, struct{}{})

	m := metrics.NewSchedulingMetrics(prometheus.NewRegistry())
	NewDeliverer(outbox, HandlerFunc(func(context.Context, OutboxEntry) error { return nil }), nil).WithMetrics(m).Drain(ctx)

	pending, _ := outbox.FetchPending(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected outbox drained, got %d pending", len(pending))
	}
}
