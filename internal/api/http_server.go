package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"hotelfront/internal/config"
	"hotelfront/internal/domain"
	"hotelfront/internal/guard"
	"hotelfront/internal/service"
	"hotelfront/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Services groups the view orchestration the handlers call into.
type Services struct {
	Auth      *service.AuthService
	Catalog   *service.CatalogService
	Checkout  *service.CheckoutService
	Admin     *service.AdminService
	Concierge *service.ConciergeService
}

// HTTPServer is the storefront: one session per browser cookie, JSON views, guarded routes.
type HTTPServer struct {
	cfg      config.ServerConfig
	sessions *session.Manager
	svc      Services
	throttle domain.LoginThrottle
	limiter  *rateLimiter
	logger   *zerolog.Logger
	server   *http.Server
}

func NewHTTPServer(cfg config.ServerConfig, sessions *session.Manager, svc Services, throttle domain.LoginThrottle, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = "hf_session"
	}
	srv := &HTTPServer{
		cfg:      cfg,
		sessions: sessions,
		svc:      svc,
		throttle: throttle,
		limiter:  newRateLimiter(cfg.RateLimit),
		logger:   logger,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID(s.logger))
	r.Use(loggingMiddleware)
	r.Use(rateLimitMiddleware(s.limiter))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Get("/", s.handleHome)
		r.Get("/login", s.handleLoginView)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Get("/register", s.handleRegisterView)
		r.Post("/register", s.handleRegister)
		r.Get("/rooms", s.handleRooms)
		r.Get("/rooms/{roomId}", s.handleRoom)
		r.Post("/rooms/{roomId}/book", s.handleBook)
		r.Get("/find-my-room", s.handleFindMyRoom)
		r.Get("/find-booking", s.handleFindBooking)
		r.Post("/chat", s.handleChat)

		r.Group(func(r chi.Router) {
			r.Use(guard.Middleware(sessionView, guard.RequireUser))
			r.Get("/profile", s.handleProfile)
			r.Delete("/profile/bookings/{id}", s.handleCancelOwnBooking)
			r.Get("/payment", s.handlePayment)
			r.Post("/payment/confirm", s.handleConfirmPayment)
			r.Get("/booking-success", s.handleBookingSuccess)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(guard.Middleware(sessionView, guard.RequireAdmin))
			r.Get("/", s.handleAdminHome)
			r.Get("/rooms", s.handleAdminRooms)
			r.Post("/rooms", s.handleAdminSaveRoom)
			r.Put("/rooms/{id}", s.handleAdminSaveRoom)
			r.Delete("/rooms/{id}", s.handleAdminDeleteRoom)
			r.Get("/bookings", s.handleAdminBookings)
			r.Get("/bookings/export", s.handleAdminExportBookings)
			r.Delete("/bookings/{id}", s.handleAdminCancelBooking)
			r.Get("/users", s.handleAdminUsers)
			r.Delete("/users/{id}", s.handleAdminDeleteUser)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, guard.HomePath, http.StatusFound)
	})
	return r
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("Storefront listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
