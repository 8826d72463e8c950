package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/appointment-scheduler/internal/availability"
	"github.com/wolfman30/appointment-scheduler/internal/bookings"
	"github.com/wolfman30/appointment-scheduler/internal/calendar"
	"github.com/wolfman30/appointment-scheduler/internal/catalog"
	"github.com/wolfman30/appointment-scheduler/internal/chat"
	"github.com/wolfman30/appointment-scheduler/internal/directory"
	httpmiddleware "github.com/wolfman30/appointment-scheduler/internal/http/middleware"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	BookingsHandler     *bookings.Handler
	AvailabilityHandler *availability.Handler
	CalendarHandler     *calendar.Handler
	CatalogHandler      *catalog.Handler
	DirectoryHandler    *directory.Handler
	ChatHandler         *chat.Handler
	MetricsHandler      http.Handler

	JWTSecret          string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.BookingsHandler == nil || cfg.AvailabilityHandler == nil || cfg.CalendarHandler == nil ||
		cfg.CatalogHandler == nil || cfg.DirectoryHandler == nil || cfg.ChatHandler == nil {
		panic("router: every domain handler is required")
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.RateLimitRPS > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.ActorJWT(cfg.JWTSecret))
		api.Use(httpmiddleware.RequestLogger(cfg.Logger))

		// The websocket upgrade must see the raw ResponseWriter, so it stays
		// outside the compressed group.
		api.Get("/bookings/{bookingID}/chat/ws", cfg.ChatHandler.HandleWebSocket)

		api.Group(func(r chi.Router) {
			r.Use(middleware.Compress(5))

			r.Put("/me", cfg.DirectoryHandler.PutMe)
			r.Get("/parties/{partyID}", cfg.DirectoryHandler.GetParty)

			r.Route("/providers/me", func(me chi.Router) {
				me.Use(requireProvider)
				me.Put("/hours", cfg.CalendarHandler.PutHours)
				me.Post("/services", cfg.CatalogHandler.Create)
				me.Delete("/services/{serviceID}", cfg.CatalogHandler.Deactivate)
				me.Post("/blocks", cfg.BookingsHandler.Block)
				me.Delete("/blocks/{slotID}", cfg.BookingsHandler.Unblock)
			})
			r.Route("/providers/{providerID}", func(p chi.Router) {
				p.Get("/availability", cfg.AvailabilityHandler.Get)
				p.Get("/hours", cfg.CalendarHandler.GetHours)
				p.Get("/services", cfg.CatalogHandler.List)
			})

			r.Route("/bookings", func(b chi.Router) {
				b.Post("/", cfg.BookingsHandler.Create)
				b.Get("/", cfg.BookingsHandler.List)
				b.Route("/{bookingID}", func(one chi.Router) {
					one.Get("/", cfg.BookingsHandler.Get)
					one.Delete("/", cfg.BookingsHandler.Delete)
					one.Patch("/status", cfg.BookingsHandler.UpdateStatus)
					one.Patch("/payment", cfg.BookingsHandler.UpdatePayment)
					one.Get("/history", cfg.BookingsHandler.History)
					one.Get("/chat/access", cfg.BookingsHandler.ChatAccess)
					one.Get("/chat/messages", cfg.ChatHandler.HandleTranscript)
				})
			})
		})
	})

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
