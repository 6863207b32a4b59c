package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"hotelfront/internal/guard"
	"hotelfront/internal/models"
	"hotelfront/internal/service"
	"hotelfront/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxFormBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, name+" must be a positive number")
		return 0, false
	}
	return id, true
}

// localPath keeps post-login redirects on this site.
func localPath(from string) string {
	if !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return guard.HomePath
	}
	return from
}

func sessionPayload(snap session.Snapshot) map[string]any {
	return map[string]any{
		"authenticated": snap.IsAuthenticated(),
		"admin":         snap.IsAdmin(),
		"loading":       snap.Loading(),
		"user":          snap.User,
	}
}

func (s *HTTPServer) handleHome(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	rooms, err := s.svc.Catalog.Featured(r.Context(), sess)
	if err != nil {
		// the home page still renders without featured rooms
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Featured rooms unavailable")
		rooms = []models.Room{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"view":     "home",
		"featured": rooms,
		"session":  sessionPayload(sess.Snapshot()),
	})
}

func (s *HTTPServer) handleLoginView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"view":    "login",
		"from":    localPath(r.URL.Query().Get("from")),
		"session": sessionPayload(sessionFrom(r).Snapshot()),
	})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.throttle != nil && s.cfg.LoginAttempts > 0 {
		allowed, err := s.throttle.CheckRateLimit(r.Context(), "login:"+clientIP(r), s.cfg.LoginAttempts, s.cfg.LoginWindow)
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Login throttle unavailable")
		} else if !allowed {
			writeError(w, http.StatusTooManyRequests, "Too many login attempts. Please wait and try again.")
			return
		}
	}

	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := s.svc.Auth.Login(r.Context(), sessionFrom(r), req)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	redirect(w, localPath(r.URL.Query().Get("from")), map[string]any{"session": sessionPayload(snap)})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Auth.Logout(r.Context(), sessionFrom(r)); err != nil {
		// in-memory state is already cleared
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Logout could not clear persisted credential")
	}
	redirect(w, guard.HomePath, nil)
}

func (s *HTTPServer) handleRegisterView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"view": "register"})
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := s.svc.Auth.Register(r.Context(), req)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	redirect(w, guard.LoginPath, map[string]any{"message": msg})
}

func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	q := r.URL.Query()
	checkIn, checkOut, roomType := q.Get("checkInDate"), q.Get("checkOutDate"), q.Get("roomType")

	rooms, err := s.svc.Catalog.Search(r.Context(), sess, checkIn, checkOut, roomType)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	types, err := s.svc.Catalog.RoomTypes(r.Context(), sess)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Room types unavailable")
		types = []string{}
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"view":      "rooms",
		"rooms":     rooms,
		"roomTypes": types,
		"filters": map[string]string{
			"checkInDate":  checkIn,
			"checkOutDate": checkOut,
			"roomType":     roomType,
		},
	})
}

func (s *HTTPServer) handleRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "roomId")
	if !ok {
		return
	}
	room, err := s.svc.Catalog.Room(r.Context(), sessionFrom(r), id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": "room", "room": room})
}

// handleBook starts checkout. Anonymous guests are sent to log in first and come back to the room.
func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "roomId")
	if !ok {
		return
	}
	sess := sessionFrom(r)
	snap := sess.Snapshot()
	if snap.Loading() {
		guard.WritePlaceholder(w)
		return
	}
	if !snap.IsAuthenticated() {
		redirect(w, guard.LoginRedirect("/rooms/"+strconv.FormatInt(id, 10)), nil)
		return
	}

	var req models.BookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	checkout, err := s.svc.Checkout.Begin(r.Context(), sess, id, req)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	redirect(w, "/payment", map[string]any{"checkout": checkout})
}

func (s *HTTPServer) handleFindMyRoom(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		matches := sess.Matches()
		if matches == nil {
			matches = []models.RoomMatch{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"view": "find-my-room", "matches": matches})
		return
	}

	matches, err := s.svc.Concierge.Recommend(r.Context(), sess, query)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if matches == nil {
		matches = []models.RoomMatch{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": "find-my-room", "query": query, "matches": matches})
}

func (s *HTTPServer) handleFindBooking(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		writeJSON(w, http.StatusOK, map[string]any{"view": "find-booking"})
		return
	}
	booking, err := s.svc.Checkout.FindBooking(r.Context(), sessionFrom(r), code)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": "find-booking", "booking": booking})
}

func (s *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reply, err := s.svc.Concierge.Chat(r.Context(), sessionFrom(r), req.Message)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *HTTPServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Auth.Profile(r.Context(), sessionFrom(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": "profile", "user": user})
}

func (s *HTTPServer) handleCancelOwnBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.Checkout.CancelOwnBooking(r.Context(), sessionFrom(r), id); err != nil {
		writeFailure(w, r, err)
		return
	}
	redirect(w, "/profile", map[string]any{"message": "Booking cancelled"})
}

// handlePayment creates a payment intent for the pending checkout. Without one the guest goes back to the catalog.
func (s *HTTPServer) handlePayment(w http.ResponseWriter, r *http.Request) {
	secret, checkout, err := s.svc.Checkout.PaymentIntent(r.Context(), sessionFrom(r))
	if errors.Is(err, service.ErrNoCheckout) {
		redirect(w, "/rooms", nil)
		return
	}
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"view":         "payment",
		"clientSecret": secret,
		"checkout":     checkout,
	})
}

func (s *HTTPServer) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	code, err := s.svc.Checkout.Confirm(r.Context(), sessionFrom(r))
	if errors.Is(err, service.ErrNoCheckout) {
		redirect(w, "/rooms", nil)
		return
	}
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	redirect(w, "/booking-success", map[string]any{"confirmationCode": code})
}

func (s *HTTPServer) handleBookingSuccess(w http.ResponseWriter, r *http.Request) {
	code := sessionFrom(r).Confirmation()
	if code == "" {
		redirect(w, guard.HomePath, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"view":             "booking-success",
		"message":          "Booking Successful!",
		"confirmationCode": code,
	})
}
