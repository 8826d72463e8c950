package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/appointment-scheduler/internal/bookings"
	"github.com/wolfman30/appointment-scheduler/internal/identity"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

// AccessChecker evaluates the chat window of a booking for a caller.
type AccessChecker interface {
	ChatAccess(ctx context.Context, actor identity.Actor, bookingID string) (bookings.ChatAccess, error)
}

const (
	// maxMessageLength caps a single chat line.
	maxMessageLength = 2000

	defaultRecheckInterval = 30 * time.Second
)

// Handler relays messages between the two parties of a booking while the
// chat window is open.
type Handler struct {
	access     AccessChecker
	transcript TranscriptStore
	limit      int64
	recheck    time.Duration
	logger     *logging.Logger

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{} // bookingID -> connections
}

type client struct {
	conn  *websocket.Conn
	actor identity.Actor
	once  sync.Once
}

// shut tells the party the window has closed and drops the socket. The read
// loop then ends and the client leaves its room.
func (c *client) shut() {
	c.once.Do(func() {
		_ = websocket.JSON.Send(c.conn, OutboundMessage{Type: "closed", Text: "chat window has closed"})
		_ = c.conn.Close()
	})
}

// InboundMessage is what a party sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what a party receives.
type OutboundMessage struct {
	Type     string    `json:"type"` // "message", "history", "pong", "error", "closed"
	Message  *Message  `json:"message,omitempty"`
	Messages []Message `json:"messages,omitempty"`
	Text     string    `json:"text,omitempty"`
}

func NewHandler(access AccessChecker, transcript TranscriptStore, historyLimit int, logger *logging.Logger) *Handler {
	if access == nil {
		panic("chat: access checker required")
	}
	if transcript == nil {
		panic("chat: transcript store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		access:     access,
		transcript: transcript,
		limit:      int64(historyLimit),
		recheck:    defaultRecheckInterval,
		logger:     logger,
		rooms:      make(map[string]map[*client]struct{}),
	}
}

// WithRecheckInterval sets how often open sockets re-evaluate the window,
// so a party that only listens is dropped once it closes.
func (h *Handler) WithRecheckInterval(d time.Duration) *Handler {
	if d > 0 {
		h.recheck = d
	}
	return h
}

// HandleWebSocket handles GET /bookings/{bookingID}/chat/ws. The window and
// party checks run before the upgrade so rejected callers get a plain HTTP
// status.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	actor, bookingID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(r.Context(), conn, actor, bookingID)
	}).ServeHTTP(w, r)
}

// HandleTranscript handles GET /bookings/{bookingID}/chat/messages. Parties
// may read the thread outside the window.
func (h *Handler) HandleTranscript(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		jsonError(w, "missing caller identity", http.StatusUnauthorized)
		return
	}
	bookingID := chi.URLParam(r, "bookingID")
	if _, err := h.access.ChatAccess(r.Context(), actor, bookingID); err != nil {
		h.writeAccessError(w, err, bookingID)
		return
	}
	msgs, err := h.transcript.List(r.Context(), bookingID, h.limit)
	if err != nil {
		h.logger.Error("chat: failed to load transcript", "error", err, "booking_id", bookingID)
		jsonError(w, "failed to load transcript", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) (identity.Actor, string, bool) {
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		jsonError(w, "missing caller identity", http.StatusUnauthorized)
		return identity.Actor{}, "", false
	}
	bookingID := chi.URLParam(r, "bookingID")
	access, err := h.access.ChatAccess(r.Context(), actor, bookingID)
	if err != nil {
		h.writeAccessError(w, err, bookingID)
		return identity.Actor{}, "", false
	}
	if !access.Permitted {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":    "chat is not available for this booking right now",
			"opensAt":  access.OpensAt,
			"closesAt": access.ClosesAt,
		})
		return identity.Actor{}, "", false
	}
	return actor, bookingID, true
}

func (h *Handler) writeAccessError(w http.ResponseWriter, err error, bookingID string) {
	switch {
	case errors.Is(err, bookings.ErrNotFound):
		jsonError(w, "booking not found", http.StatusNotFound)
	case errors.Is(err, bookings.ErrForbidden):
		jsonError(w, err.Error(), http.StatusForbidden)
	default:
		h.logger.Error("chat: access check failed", "error", err, "booking_id", bookingID)
		jsonError(w, "failed to check chat access", http.StatusInternalServerError)
	}
}

func (h *Handler) serveWS(ctx context.Context, conn *websocket.Conn, actor identity.Actor, bookingID string) {
	c := &client{conn: conn, actor: actor}
	h.join(bookingID, c)
	defer h.leave(bookingID, c)

	history, err := h.transcript.List(ctx, bookingID, h.limit)
	if err != nil {
		h.logger.Warn("chat: failed to load history", "error", err, "booking_id", bookingID)
		history = []Message{}
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})

	h.logger.Info("chat: connection opened", "booking_id", bookingID, "actor_id", actor.ID)

	done := make(chan struct{})
	defer close(done)
	go h.watchWindow(ctx, c, bookingID, done)

	for {
		var in InboundMessage
		if err := websocket.JSON.Receive(conn, &in); err != nil {
			h.logger.Debug("chat: connection closed", "booking_id", bookingID, "actor_id", actor.ID, "error", err)
			return
		}

		switch in.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		case "message":
		default:
			continue
		}

		text := strings.TrimSpace(in.Text)
		if text == "" {
			continue
		}
		if len(text) > maxMessageLength {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "message is too long"})
			continue
		}

		// The window is re-evaluated per message; it may close mid-session.
		if !h.windowOpen(ctx, actor, bookingID) {
			c.shut()
			return
		}

		msg := Message{
			ID:         uuid.NewString(),
			BookingID:  bookingID,
			SenderID:   actor.ID,
			SenderRole: string(actor.Role),
			Text:       text,
			SentAt:     time.Now().UTC(),
		}
		if err := h.transcript.Append(ctx, bookingID, msg); err != nil {
			h.logger.Error("chat: failed to store message", "error", err, "booking_id", bookingID)
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "message could not be delivered"})
			continue
		}
		h.broadcast(ctx, bookingID, OutboundMessage{Type: "message", Message: &msg})
	}
}

func (h *Handler) windowOpen(ctx context.Context, actor identity.Actor, bookingID string) bool {
	access, err := h.access.ChatAccess(ctx, actor, bookingID)
	return err == nil && access.Permitted
}

func (h *Handler) watchWindow(ctx context.Context, c *client, bookingID string, done <-chan struct{}) {
	ticker := time.NewTicker(h.recheck)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !h.windowOpen(ctx, c.actor, bookingID) {
				h.logger.Debug("chat: window closed for listener", "booking_id", bookingID, "actor_id", c.actor.ID)
				c.shut()
				return
			}
		}
	}
}

func (h *Handler) join(bookingID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[bookingID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[bookingID] = room
	}
	room[c] = struct{}{}
}

func (h *Handler) leave(bookingID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[bookingID]
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, bookingID)
	}
}

// broadcast sends msg to every connection of the booking, the sender included.
// Recipients whose window has closed are dropped instead.
func (h *Handler) broadcast(ctx context.Context, bookingID string, msg OutboundMessage) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.rooms[bookingID]))
	for c := range h.rooms[bookingID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !h.windowOpen(ctx, c.actor, bookingID) {
			c.shut()
			continue
		}
		if err := websocket.JSON.Send(c.conn, msg); err != nil {
			h.logger.Debug("chat: send failed", "booking_id", bookingID, "actor_id", c.actor.ID, "error", err)
		}
	}
}

// Connections reports how many sockets are open for a booking.
func (h *Handler) Connections(bookingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[bookingID])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
