package service

import (
	"context"
	"strings"

	"hotelfront/internal/backend"
	"hotelfront/internal/models"
	"hotelfront/internal/session"

	"github.com/rs/zerolog"
)

type CatalogService struct {
	client   *backend.Client
	featured int
	logger   *zerolog.Logger
}

func NewCatalogService(client *backend.Client, featured int, logger *zerolog.Logger) *CatalogService {
	if featured <= 0 {
		featured = models.DefaultFeaturedRooms
	}
	return &CatalogService{client: client, featured: featured, logger: logger}
}

// Featured returns the first rooms of the catalog for the home page.
func (s *CatalogService) Featured(ctx context.Context, sess *session.Store) ([]models.Room, error) {
	rooms, err := clientFor(s.client, sess).ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if len(rooms) > s.featured {
		rooms = rooms[:s.featured]
	}
	return rooms, nil
}

func (s *CatalogService) Rooms(ctx context.Context, sess *session.Store) ([]models.Room, error) {
	return clientFor(s.client, sess).ListRooms(ctx)
}

func (s *CatalogService) Room(ctx context.Context, sess *session.Store, roomID int64) (*models.Room, error) {
	if roomID <= 0 {
		return nil, newValidationError("roomId", "roomId must be a positive number")
	}
	return clientFor(s.client, sess).GetRoom(ctx, roomID)
}

// RoomTypes lists the distinct room types of the catalog in first-seen order.
func (s *CatalogService) RoomTypes(ctx context.Context, sess *session.Store) ([]string, error) {
	rooms, err := clientFor(s.client, sess).ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(rooms))
	var types []string
	for _, r := range rooms {
		if r.RoomType == "" {
			continue
		}
		if _, ok := seen[r.RoomType]; ok {
			continue
		}
		seen[r.RoomType] = struct{}{}
		types = append(types, r.RoomType)
	}
	return types, nil
}

// Search filters by stay dates and room type. With no criteria it lists all rooms.
// Dates must both be given, in YYYY-MM-DD form, check-out after check-in.
func (s *CatalogService) Search(ctx context.Context, sess *session.Store, checkIn, checkOut, roomType string) ([]models.Room, error) {
	checkIn, checkOut, roomType = strings.TrimSpace(checkIn), strings.TrimSpace(checkOut), strings.TrimSpace(roomType)
	api := clientFor(s.client, sess)

	if checkIn == "" && checkOut == "" && roomType == "" {
		return api.ListRooms(ctx)
	}
	if checkIn != "" || checkOut != "" {
		// guest counts do not matter for the search
		probe := models.BookingRequest{CheckInDate: checkIn, CheckOutDate: checkOut, NumOfAdults: 1}
		if err := validateStruct(probe); err != nil {
			return nil, err
		}
	}
	return api.AvailableRooms(ctx, checkIn, checkOut, roomType)
}
