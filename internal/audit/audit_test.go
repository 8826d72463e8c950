package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_LogEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewService(db)

	tests := []struct {
		name  string
		event Event
	}{
		{
			name: "booking created",
			event: Event{
				Action:     ActionBookingCreated,
				BookingID:  "bk-1",
				ProviderID: "prov-1",
				ActorID:    "cust-1",
				ActorRole:  "customer",
				ToStatus:   "pending",
				ServiceIDs: []string{"svc-1", "svc-2"},
			},
		},
		{
			name: "status changed",
			event: Event{
				Action:     ActionStatusChanged,
				BookingID:  "bk-1",
				ProviderID: "prov-1",
				ActorID:    "prov-1",
				ActorRole:  "provider",
				FromStatus: "pending",
				ToStatus:   "confirmed",
			},
		},
		{
			name: "slot blocked",
			event: Event{
				Action:     ActionSlotBlocked,
				SlotID:     "slot-1",
				ProviderID: "prov-1",
				ActorID:    "prov-1",
				ActorRole:  "provider",
				Details:    json.RawMessage(`{"date":"2025-03-10","startTime":"12:00","endTime":"13:00"}`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectExec("INSERT INTO booking_audit_events").
				WillReturnResult(sqlmock.NewResult(1, 1))

			assert.NoError(t, service.LogEvent(context.Background(), tt.event))
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_QueryEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewService(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "action", "booking_id", "slot_id", "provider_id", "actor_id", "actor_role",
		"from_status", "to_status", "service_ids", "details", "created_at",
	}).AddRow(
		"evt-1", "booking.created", "bk-1", nil, "prov-1", "cust-1", "customer",
		nil, "pending", "{svc-1,svc-2}", []byte(`{}`), now,
	).AddRow(
		"evt-2", "booking.status_changed", "bk-1", nil, "prov-1", "prov-1", "provider",
		"pending", "confirmed", "{}", []byte(`{}`), now,
	)

	mock.ExpectQuery("SELECT (.+) FROM booking_audit_events").
		WithArgs("bk-1").
		WillReturnRows(rows)

	events, err := service.QueryEvents(context.Background(), Filter{BookingID: "bk-1", Limit: 50})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, ActionBookingCreated, events[0].Action)
	assert.Equal(t, []string{"svc-1", "svc-2"}, events[0].ServiceIDs)
	assert.Equal(t, "", events[0].FromStatus)
	assert.Equal(t, "confirmed", events[1].ToStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_QueryEventsRequiresScope(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewService(db).QueryEvents(context.Background(), Filter{})
	assert.Error(t, err)
}

func TestMemoryService_FiltersByBooking(t *testing.T) {
	m := NewMemoryService()
	ctx := context.Background()
	require.NoError(t, m.LogEvent(ctx, Event{Action: ActionBookingCreated, BookingID: "bk-1", ProviderID: "prov-1"}))
	require.NoError(t, m.LogEvent(ctx, Event{Action: ActionBookingCreated, BookingID: "bk-2", ProviderID: "prov-1"}))
	require.NoError(t, m.LogEvent(ctx, Event{Action: ActionStatusChanged, BookingID: "bk-1", ProviderID: "prov-1"}))

	events, err := m.QueryEvents(ctx, Filter{BookingID: "bk-1"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, ActionStatusChanged, events[1].Action)

	byProvider, err := m.QueryEvents(ctx, Filter{ProviderID: "prov-1", Action: ActionBookingCreated})
	require.NoError(t, err)
	assert.Len(t, byProvider, 2)

	_, err = m.QueryEvents(ctx, Filter{})
	assert.Error(t, err)
}
