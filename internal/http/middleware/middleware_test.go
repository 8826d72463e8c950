package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/appointment-scheduler/internal/identity"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

func TestActorJWTRejects(t *testing.T) {
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, ActorClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "cust-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
		Role:             "customer",
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	admin, err := SignActorToken("secret", identity.Actor{ID: "root", Role: identity.Role("admin")}, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	wrongKey, err := SignActorToken("other", identity.Actor{ID: "cust-1", Role: identity.RoleCustomer}, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	cases := []struct {
		name   string
		secret string
		header string
	}{
		{"no secret configured", "", "Bearer " + wrongKey},
		{"missing header", "secret", ""},
		{"not bearer", "secret", "Basic abc"},
		{"wrong key", "secret", "Bearer " + wrongKey},
		{"expired", "secret", "Bearer " + expired},
		{"unknown role", "secret", "Bearer " + admin},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			ActorJWT(tc.secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			})).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestActorJWTPlacesActorOnContext(t *testing.T) {
	token, err := SignActorToken("secret", identity.Actor{ID: "prov-1", Role: identity.RoleProvider}, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	var got identity.Actor
	ActorJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := identity.ActorFromContext(r.Context())
		if !ok {
			t.Fatal("expected actor in context")
		}
		got = actor
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.ID != "prov-1" || !got.IsProvider() {
		t.Fatalf("unexpected actor %#v", got)
	}
}

func TestRateLimitPerClient(t *testing.T) {
	h := RateLimit(1, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-Ip", "10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-Ip", "10.0.0.2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other client should have its own bucket, got %d", rec.Code)
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	rl := &RateLimiter{clients: make(map[string]*client), limit: 1, burst: 1, idle: time.Minute}
	rl.Allow("a")
	rl.evictIdle(time.Now().Add(2 * time.Minute))
	if len(rl.clients) != 0 {
		t.Fatalf("expected idle client to be evicted, have %d", len(rl.clients))
	}
}

func TestRequestLoggerRecordsStatusAndActor(t *testing.T) {
	var buf bytes.Buffer
	logger := &logging.Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	h := chimw.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})))
	req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
	req = req.WithContext(identity.WithActor(req.Context(), identity.Actor{ID: "cust-1", Role: identity.RoleCustomer}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if line["level"] != "WARN" {
		t.Fatalf("expected WARN for 409, got %v", line["level"])
	}
	if line["status"] != float64(http.StatusConflict) || line["actor_id"] != "cust-1" {
		t.Fatalf("unexpected log line %v", line)
	}
	if line["request_id"] == nil {
		t.Fatalf("expected request id in %v", line)
	}
}
