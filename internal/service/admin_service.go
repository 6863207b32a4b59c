package service

import (
	"context"
	"fmt"
	"io"

	"hotelfront/internal/backend"
	"hotelfront/internal/domain"
	"hotelfront/internal/events"
	"hotelfront/internal/models"
	"hotelfront/internal/session"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// AdminService backs the management screens. Access control is the route guard's job;
// the backend enforces it again on every call.
type AdminService struct {
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewAdminService(eventBus domain.EventPublisher, logger *zerolog.Logger) *AdminService {
	return &AdminService{eventBus: eventBus, logger: logger}
}

func (s *AdminService) Rooms(ctx context.Context, sess *session.Store) ([]models.Room, error) {
	return sess.API().ListRooms(ctx)
}

// SaveRoom adds a room when roomID is 0 and updates it otherwise.
func (s *AdminService) SaveRoom(ctx context.Context, sess *session.Store, roomID int64, form models.RoomForm, photoName string, photo io.Reader) (*models.Room, error) {
	if err := validateStruct(form); err != nil {
		return nil, err
	}
	if roomID == 0 && photo == nil {
		return nil, newValidationError("photo", "photo is required")
	}

	body, err := backend.NewRoomForm(form, photoName, photo)
	if err != nil {
		return nil, fmt.Errorf("build room form: %w", err)
	}

	var resp *models.RoomResponse
	if roomID == 0 {
		resp, err = sess.API().AddRoom(ctx, body)
	} else {
		resp, err = sess.API().UpdateRoom(ctx, roomID, body)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("room_id", roomID).Str("room_type", form.RoomType).Msg("Room saved")
	return resp.Room, nil
}

func (s *AdminService) DeleteRoom(ctx context.Context, sess *session.Store, roomID int64) error {
	if _, err := sess.API().DeleteRoom(ctx, roomID); err != nil {
		return err
	}
	s.publishEvent(events.EventRoomDeleted, events.AdminEventPayload{TargetID: roomID, ChangedByID: actorID(sess)})
	return nil
}

func (s *AdminService) Bookings(ctx context.Context, sess *session.Store) ([]models.Booking, error) {
	return sess.API().ListBookings(ctx)
}

func (s *AdminService) CancelBooking(ctx context.Context, sess *session.Store, bookingID int64) error {
	if _, err := sess.API().CancelBooking(ctx, bookingID); err != nil {
		return err
	}
	s.publishEvent(events.EventBookingCanceled, events.BookingEventPayload{BookingID: bookingID, ChangedByID: actorID(sess)})
	return nil
}

func (s *AdminService) Users(ctx context.Context, sess *session.Store) ([]models.UserProfile, error) {
	return sess.API().ListUsers(ctx)
}

func (s *AdminService) DeleteUser(ctx context.Context, sess *session.Store, userID int64) error {
	if _, err := sess.API().DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.publishEvent(events.EventUserDeleted, events.AdminEventPayload{TargetID: userID, ChangedByID: actorID(sess)})
	return nil
}

const bookingsSheet = "Bookings"

var bookingColumns = []string{
	"Confirmation code", "Check-in", "Check-out", "Adults", "Children", "Guests",
	"Room", "Room type", "Guest", "Email", "Phone",
}

// ExportBookings writes every booking as an .xlsx workbook to w.
func (s *AdminService) ExportBookings(ctx context.Context, sess *session.Store, w io.Writer) (int, error) {
	bookings, err := sess.API().ListBookings(ctx)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", bookingsSheet); err != nil {
		return 0, fmt.Errorf("error renaming sheet: %w", err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, title := range bookingColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, title)
		_ = f.SetCellStyle(bookingsSheet, cell, cell, headerStyle)
	}

	for i, b := range bookings {
		row := i + 2
		values := []any{
			b.BookingConfirmationCode, b.CheckInDate, b.CheckOutDate,
			b.NumOfAdults, b.NumOfChildren, b.TotalNumOfGuest,
			"", "", "", "", "",
		}
		if b.Room != nil {
			values[6] = b.Room.ID
			values[7] = b.Room.RoomType
		}
		if b.User != nil {
			values[8] = b.User.Name
			values[9] = b.User.Email
			values[10] = b.User.PhoneNumber
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(bookingsSheet, cell, &values); err != nil {
			return 0, fmt.Errorf("error writing row %d: %w", row, err)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 22)
	_ = f.SetColWidth(bookingsSheet, "B", "C", 14)
	_ = f.SetColWidth(bookingsSheet, "H", "J", 24)
	_ = f.SetPanes(bookingsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("error writing workbook: %w", err)
	}
	s.logger.Info().Int("bookings", len(bookings)).Msg("Bookings exported")
	return len(bookings), nil
}

func actorID(sess *session.Store) int64 {
	if u := sess.Snapshot().User; u != nil {
		return u.ID
	}
	return 0
}

func (s *AdminService) publishEvent(eventType string, payload any) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("Failed to publish event")
	}
}
