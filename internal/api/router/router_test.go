package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/appointment-scheduler/internal/audit"
	"github.com/wolfman30/appointment-scheduler/internal/availability"
	"github.com/wolfman30/appointment-scheduler/internal/bookings"
	"github.com/wolfman30/appointment-scheduler/internal/calendar"
	"github.com/wolfman30/appointment-scheduler/internal/catalog"
	"github.com/wolfman30/appointment-scheduler/internal/chat"
	"github.com/wolfman30/appointment-scheduler/internal/directory"
	"github.com/wolfman30/appointment-scheduler/internal/events"
	httpmiddleware "github.com/wolfman30/appointment-scheduler/internal/http/middleware"
	"github.com/wolfman30/appointment-scheduler/internal/identity"
	"github.com/wolfman30/appointment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

const testSecret = "router-secret"

var (
	customer = identity.Actor{ID: "cust-1", Role: identity.RoleCustomer}
	provider = identity.Actor{ID: "prov-1", Role: identity.RoleProvider}
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.New("error")
	reg := prometheus.NewRegistry()
	m := metrics.NewSchedulingMetrics(reg)

	parties := directory.NewInMemoryRepository()
	services := catalog.NewInMemoryRepository()
	hours := calendar.NewMemoryStore()
	repo := bookings.NewInMemoryRepository()

	svc := bookings.NewService(repo, services, parties, hours, logger,
		bookings.WithAuditor(audit.NewMemoryService()),
		bookings.WithEvents(events.NewMemoryOutbox()),
		bookings.WithMetrics(m),
	)
	gen, err := scheduling.NewGenerator(30)
	if err != nil {
		t.Fatalf("generator: %v", err)
	}

	return New(&Config{
		Logger:              logger,
		BookingsHandler:     bookings.NewHandler(svc, logger),
		AvailabilityHandler: availability.NewHandler(availability.NewService(hours, repo, parties, gen, m, logger), logger),
		CalendarHandler:     calendar.NewHandler(hours, logger),
		CatalogHandler:      catalog.NewHandler(services, logger),
		DirectoryHandler:    directory.NewHandler(parties, logger),
		ChatHandler:         chat.NewHandler(svc, chat.NewMemoryTranscriptStore(100), 100, logger),
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		JWTSecret:           testSecret,
		RateLimitRPS:        1000,
		RateLimitBurst:      1000,
	})
}

func call(t *testing.T, h http.Handler, actor *identity.Actor, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := httpmiddleware.SignActorToken(testSecret, *actor, time.Minute)
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rr.Body.String())
	}
	return out
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rr := call(t, router, nil, http.MethodGet, "/health", nil)
	expectStatus(t, rr, http.StatusOK)
	if resp := decodeBody(t, rr); resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}

	expectStatus(t, call(t, router, nil, http.MethodGet, "/metrics", nil), http.StatusOK)
}

func TestRouterRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/bookings", "/providers/prov-1/availability?date=2025-03-10", "/parties/prov-1"} {
		expectStatus(t, call(t, router, nil, http.MethodGet, path, nil), http.StatusUnauthorized)
	}
}

func TestRouterProviderRoutesRejectCustomers(t *testing.T) {
	router := newTestRouter(t)

	expectStatus(t, call(t, router, &customer, http.MethodPut, "/providers/me/hours", map[string]any{}), http.StatusForbidden)
	expectStatus(t, call(t, router, &customer, http.MethodPost, "/providers/me/services", map[string]any{"name": "x", "price": 1, "duration": 10}), http.StatusForbidden)
	expectStatus(t, call(t, router, &customer, http.MethodPost, "/providers/me/blocks", map[string]any{}), http.StatusForbidden)
}

func TestRouterBookingFlow(t *testing.T) {
	router := newTestRouter(t)

	expectStatus(t, call(t, router, &provider, http.MethodPut, "/me", map[string]string{"name": "Dr. Grey", "email": "grey@example.com"}), http.StatusOK)
	expectStatus(t, call(t, router, &customer, http.MethodPut, "/me", map[string]string{"name": "Pat"}), http.StatusOK)

	expectStatus(t, call(t, router, &provider, http.MethodPut, "/providers/me/hours", map[string]any{
		"monday": map[string]any{"open": "10:00", "close": "12:00", "isOpen": true},
	}), http.StatusOK)
	expectStatus(t, call(t, router, &provider, http.MethodPut, "/providers/me/hours", map[string]any{
		"monday": map[string]any{"open": "12:00", "close": "10:00", "isOpen": true},
	}), http.StatusBadRequest)

	rr := call(t, router, &provider, http.MethodPost, "/providers/me/services", map[string]any{"name": "Consult", "price": 5000, "duration": 45})
	expectStatus(t, rr, http.StatusCreated)
	serviceID := decodeBody(t, rr)["id"].(string)

	rr = call(t, router, &customer, http.MethodGet, "/providers/prov-1/services", nil)
	expectStatus(t, rr, http.StatusOK)
	if got := decodeBody(t, rr)["services"].([]any); len(got) != 1 {
		t.Fatalf("expected one service, got %v", got)
	}

	rr = call(t, router, &customer, http.MethodPost, "/bookings", map[string]any{
		"providerId": "prov-1", "serviceIds": []string{serviceID}, "date": "2025-03-10", "startTime": "10:00",
	})
	expectStatus(t, rr, http.StatusCreated)
	booking := decodeBody(t, rr)
	bookingID := booking["id"].(string)
	if booking["endTime"] != "10:45" {
		t.Fatalf("expected 10:45 end, got %v", booking["endTime"])
	}

	rr = call(t, router, &customer, http.MethodPost, "/bookings", map[string]any{
		"providerId": "prov-1", "serviceIds": []string{serviceID}, "date": "2025-03-10", "startTime": "10:30",
	})
	expectStatus(t, rr, http.StatusConflict)

	rr = call(t, router, &customer, http.MethodGet, "/providers/prov-1/availability?date=2025-03-10", nil)
	expectStatus(t, rr, http.StatusOK)
	slots := decodeBody(t, rr)["slots"].([]any)
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots between 10:00 and 12:00, got %d", len(slots))
	}
	if first := slots[0].(map[string]any); first["isAvailable"] != false || first["bookingId"] != bookingID {
		t.Fatalf("expected first slot booked, got %v", first)
	}
	if last := slots[3].(map[string]any); last["isAvailable"] != true {
		t.Fatalf("expected 11:30 free, got %v", last)
	}

	expectStatus(t, call(t, router, &customer, http.MethodPatch, "/bookings/"+bookingID+"/status", map[string]string{"status": "confirmed"}), http.StatusForbidden)
	expectStatus(t, call(t, router, &provider, http.MethodPatch, "/bookings/"+bookingID+"/status", map[string]string{"status": "confirmed"}), http.StatusOK)
	expectStatus(t, call(t, router, &provider, http.MethodPatch, "/bookings/"+bookingID+"/payment", map[string]string{"method": "online", "status": "paid"}), http.StatusOK)

	rr = call(t, router, &customer, http.MethodGet, "/bookings/"+bookingID+"/chat/access", nil)
	expectStatus(t, rr, http.StatusOK)
	if _, ok := decodeBody(t, rr)["opensAt"]; !ok {
		t.Fatalf("expected opensAt in chat access response")
	}

	rr = call(t, router, &provider, http.MethodGet, "/bookings/"+bookingID+"/history", nil)
	expectStatus(t, rr, http.StatusOK)
	if got := decodeBody(t, rr)["events"].([]any); len(got) != 3 {
		t.Fatalf("expected 3 history events, got %d", len(got))
	}

	expectStatus(t, call(t, router, &customer, http.MethodGet, "/bookings/"+bookingID+"/chat/messages", nil), http.StatusOK)

	rr = call(t, router, &customer, http.MethodGet, "/bookings", nil)
	expectStatus(t, rr, http.StatusOK)
	if got := decodeBody(t, rr)["bookings"].([]any); len(got) != 1 {
		t.Fatalf("expected one booking, got %d", len(got))
	}

	expectStatus(t, call(t, router, &customer, http.MethodPatch, "/bookings/"+bookingID+"/status", map[string]string{"status": "cancelled"}), http.StatusOK)
	rr = call(t, router, &customer, http.MethodPost, "/bookings", map[string]any{
		"providerId": "prov-1", "serviceIds": []string{serviceID}, "date": "2025-03-10", "startTime": "10:30",
	})
	expectStatus(t, rr, http.StatusCreated)

	expectStatus(t, call(t, router, &customer, http.MethodGet, "/parties/prov-1", nil), http.StatusOK)
	expectStatus(t, call(t, router, &customer, http.MethodGet, "/parties/nobody", nil), http.StatusNotFound)
}

func TestRouterBlocks(t *testing.T) {
	router := newTestRouter(t)

	rr := call(t, router, &provider, http.MethodPost, "/providers/me/blocks", map[string]string{"date": "2025-03-10", "startTime": "13:00", "endTime": "14:00"})
	expectStatus(t, rr, http.StatusCreated)
	slotID := decodeBody(t, rr)["id"].(string)

	expectStatus(t, call(t, router, &provider, http.MethodDelete, "/providers/me/blocks/"+slotID, nil), http.StatusNoContent)
	expectStatus(t, call(t, router, &provider, http.MethodDelete, "/providers/me/blocks/"+slotID, nil), http.StatusNotFound)
}
