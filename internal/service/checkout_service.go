package service

import (
	"context"
	"errors"
	"strings"

	"hotelfront/internal/backend"
	"hotelfront/internal/domain"
	"hotelfront/internal/events"
	"hotelfront/internal/models"
	"hotelfront/internal/session"

	"github.com/rs/zerolog"
)

var (
	// ErrLoginRequired is returned when a booking is started without a resolved profile.
	ErrLoginRequired = errors.New("login required")
	// ErrNoCheckout is returned when payment is attempted without a pending checkout.
	ErrNoCheckout = errors.New("no booking in progress")
)

type CheckoutService struct {
	client   *backend.Client
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewCheckoutService(client *backend.Client, eventBus domain.EventPublisher, logger *zerolog.Logger) *CheckoutService {
	return &CheckoutService{client: client, eventBus: eventBus, logger: logger}
}

// Begin validates the stay form and stores the pending checkout on the session.
func (s *CheckoutService) Begin(ctx context.Context, sess *session.Store, roomID int64, req models.BookingRequest) (models.Checkout, error) {
	snap := sess.Snapshot()
	if !snap.IsAuthenticated() {
		return models.Checkout{}, ErrLoginRequired
	}
	if err := validateStruct(req); err != nil {
		return models.Checkout{}, err
	}

	room, err := sess.API().GetRoom(ctx, roomID)
	if err != nil {
		return models.Checkout{}, err
	}

	checkout := models.Checkout{
		RoomID:    room.ID,
		UserID:    snap.User.ID,
		RoomPrice: room.RoomPrice,
		Booking:   req,
	}
	sess.SetCheckout(checkout)
	return checkout, nil
}

// PaymentIntent requests a client secret for the pending checkout.
func (s *CheckoutService) PaymentIntent(ctx context.Context, sess *session.Store) (string, models.Checkout, error) {
	checkout, ok := sess.Checkout()
	if !ok {
		return "", models.Checkout{}, ErrNoCheckout
	}
	secret, err := sess.API().CreatePaymentIntent(ctx, checkout.RoomPrice)
	if err != nil {
		return "", checkout, err
	}
	return secret, checkout, nil
}

// Confirm books the pending checkout once payment succeeded and returns the confirmation code.
func (s *CheckoutService) Confirm(ctx context.Context, sess *session.Store) (string, error) {
	checkout, ok := sess.Checkout()
	if !ok {
		return "", ErrNoCheckout
	}

	resp, err := sess.API().BookRoom(ctx, checkout.RoomID, checkout.UserID, checkout.Booking)
	if err != nil {
		return "", err
	}

	sess.CompleteCheckout(resp.BookingConfirmationCode)
	s.logger.Info().
		Int64("room_id", checkout.RoomID).
		Int64("user_id", checkout.UserID).
		Str("confirmation_code", resp.BookingConfirmationCode).
		Msg("Booking confirmed")
	s.publishEvent(events.EventBookingCreated, events.BookingEventPayload{
		RoomID:           checkout.RoomID,
		UserID:           checkout.UserID,
		ConfirmationCode: resp.BookingConfirmationCode,
		CheckIn:          checkout.Booking.CheckInDate,
		CheckOut:         checkout.Booking.CheckOutDate,
		Amount:           checkout.RoomPrice,
	})
	return resp.BookingConfirmationCode, nil
}

// FindBooking looks a booking up by its confirmation code. No login is needed.
func (s *CheckoutService) FindBooking(ctx context.Context, sess *session.Store, code string) (*models.Booking, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, newValidationError("code", "confirmation code is required")
	}
	return clientFor(s.client, sess).BookingByCode(ctx, code)
}

// CancelOwnBooking cancels a booking from the profile page.
func (s *CheckoutService) CancelOwnBooking(ctx context.Context, sess *session.Store, bookingID int64) error {
	if _, err := sess.API().CancelBooking(ctx, bookingID); err != nil {
		return err
	}
	var userID int64
	if u := sess.Snapshot().User; u != nil {
		userID = u.ID
	}
	s.publishEvent(events.EventBookingCanceled, events.BookingEventPayload{BookingID: bookingID, UserID: userID, ChangedByID: userID})
	return nil
}

func (s *CheckoutService) publishEvent(eventType string, payload any) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("Failed to publish event")
	}
}
