package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"hotelfront/internal/models"
)

const (
	cacheKeyRooms    = "catalog:rooms:all"
	cacheKeyRoomByID = "catalog:room:%d"
)

func (c *Client) Register(ctx context.Context, in models.RegisterRequest) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/auth/register", Body: in, Endpoint: "auth.register"}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Login(ctx context.Context, in models.LoginRequest) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/auth/login", Body: in, Endpoint: "auth.login"}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProfile fetches the profile of the bearer of the current token.
func (c *Client) GetProfile(ctx context.Context) (*models.UserProfile, error) {
	var resp models.ProfileResponse
	const endpoint = "users.profile"
	if err := c.Do(ctx, Request{Path: "/users/get-logged-in-profile-info", Endpoint: endpoint}, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, &Error{Endpoint: endpoint, HTTPStatus: http.StatusOK, Message: "profile missing from response"}
	}
	return resp.User, nil
}

// UserBookings returns the user together with their bookings.
func (c *Client) UserBookings(ctx context.Context, userID int64) (*models.UserProfile, error) {
	var resp models.ProfileResponse
	path := fmt.Sprintf("/users/get-user-booking/%d", userID)
	if err := c.Do(ctx, Request{Path: path, Endpoint: "users.bookings"}, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return &models.UserProfile{ID: userID}, nil
	}
	return resp.User, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	var resp models.UserListResponse
	if err := c.Do(ctx, Request{Path: "/users/all", Endpoint: "users.all"}, &resp); err != nil {
		return nil, err
	}
	return resp.UserList, nil
}

func (c *Client) DeleteUser(ctx context.Context, userID int64) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	path := fmt.Sprintf("/users/delete/%d", userID)
	if err := c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Endpoint: "users.delete"}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]models.Room, error) {
	var resp models.RoomListResponse
	if c.readCache(ctx, cacheKeyRooms, &resp.RoomList) {
		return resp.RoomList, nil
	}
	if err := c.Do(ctx, Request{Path: "/rooms/all", Endpoint: "rooms.all"}, &resp); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKeyRooms, resp.RoomList)
	return resp.RoomList, nil
}

func (c *Client) GetRoom(ctx context.Context, roomID int64) (*models.Room, error) {
	const endpoint = "rooms.by_id"
	cacheKey := fmt.Sprintf(cacheKeyRoomByID, roomID)
	var room models.Room
	if c.readCache(ctx, cacheKey, &room) {
		return &room, nil
	}

	var resp models.RoomResponse
	path := fmt.Sprintf("/rooms/room-by-id/%d", roomID)
	if err := c.Do(ctx, Request{Path: path, Endpoint: endpoint}, &resp); err != nil {
		return nil, err
	}
	if resp.Room == nil {
		return nil, &Error{Endpoint: endpoint, HTTPStatus: http.StatusOK, StatusCode: http.StatusNotFound, Message: "Room not found"}
	}
	c.writeCache(ctx, cacheKey, resp.Room)
	return resp.Room, nil
}

// AvailableRooms searches by stay dates and room type. Empty arguments are left out of the query.
func (c *Client) AvailableRooms(ctx context.Context, checkIn, checkOut, roomType string) ([]models.Room, error) {
	q := url.Values{}
	if checkIn != "" {
		q.Set("checkInDate", checkIn)
	}
	if checkOut != "" {
		q.Set("checkOutDate", checkOut)
	}
	if roomType != "" {
		q.Set("roomType", roomType)
	}
	var resp models.RoomListResponse
	req := Request{Path: "/rooms/available-rooms-by-date-and-type", Query: q, Endpoint: "rooms.available_by_date"}
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.RoomList, nil
}

func (c *Client) AllAvailableRooms(ctx context.Context) ([]models.Room, error) {
	var resp models.RoomListResponse
	if err := c.Do(ctx, Request{Path: "/rooms/all-available-rooms", Endpoint: "rooms.all_available"}, &resp); err != nil {
		return nil, err
	}
	return resp.RoomList, nil
}

func (c *Client) AddRoom(ctx context.Context, body *MultipartBody) (*models.RoomResponse, error) {
	var resp models.RoomResponse
	req := Request{Method: http.MethodPost, Path: "/rooms/add", Multipart: body, Endpoint: "rooms.add"}
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	c.invalidateCache(ctx, cacheKeyRooms)
	return &resp, nil
}

func (c *Client) UpdateRoom(ctx context.Context, roomID int64, body *MultipartBody) (*models.RoomResponse, error) {
	var resp models.RoomResponse
	path := fmt.Sprintf("/rooms/update/%d", roomID)
	req := Request{Method: http.MethodPut, Path: path, Multipart: body, Endpoint: "rooms.update"}
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	c.invalidateCache(ctx, cacheKeyRooms, fmt.Sprintf(cacheKeyRoomByID, roomID))
	return &resp, nil
}

func (c *Client) DeleteRoom(ctx context.Context, roomID int64) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	path := fmt.Sprintf("/rooms/delete/%d", roomID)
	if err := c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Endpoint: "rooms.delete"}, &resp); err != nil {
		return nil, err
	}
	c.invalidateCache(ctx, cacheKeyRooms, fmt.Sprintf(cacheKeyRoomByID, roomID))
	return &resp, nil
}

func (c *Client) BookRoom(ctx context.Context, roomID, userID int64, in models.BookingRequest) (*models.BookRoomResponse, error) {
	var resp models.BookRoomResponse
	path := fmt.Sprintf("/bookings/book-room/%d/%d", roomID, userID)
	req := Request{Method: http.MethodPost, Path: path, Body: in, Endpoint: "bookings.book"}
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListBookings(ctx context.Context) ([]models.Booking, error) {
	var resp models.BookingListResponse
	if err := c.Do(ctx, Request{Path: "/bookings/all", Endpoint: "bookings.all"}, &resp); err != nil {
		return nil, err
	}
	return resp.BookingList, nil
}

func (c *Client) CancelBooking(ctx context.Context, bookingID int64) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	path := fmt.Sprintf("/bookings/cancel/%d", bookingID)
	if err := c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Endpoint: "bookings.cancel"}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) BookingByCode(ctx context.Context, code string) (*models.Booking, error) {
	const endpoint = "bookings.by_code"
	var resp models.BookingResponse
	path := "/bookings/get-by-confirmation-code/" + url.PathEscape(code)
	if err := c.Do(ctx, Request{Path: path, Endpoint: endpoint}, &resp); err != nil {
		return nil, err
	}
	if resp.Booking == nil {
		return nil, &Error{Endpoint: endpoint, HTTPStatus: http.StatusOK, StatusCode: http.StatusNotFound, Message: "Booking not found"}
	}
	return resp.Booking, nil
}

// Chat returns the assistant reply carried in the message field.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var resp models.MessageResponse
	req := Request{Method: http.MethodPost, Path: "/ai/chat", Body: models.ChatRequest{Message: message}, Endpoint: "ai.chat"}
	if err := c.Do(ctx, req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// RecommendRooms returns the raw message of the recommend endpoint, a JSON document
// holding the recommendations.
func (c *Client) RecommendRooms(ctx context.Context, query string) (string, error) {
	var resp models.MessageResponse
	req := Request{Method: http.MethodPost, Path: "/ai/recommend-rooms", Body: models.RecommendRequest{Query: query}, Endpoint: "ai.recommend"}
	if err := c.Do(ctx, req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) CreatePaymentIntent(ctx context.Context, amount float64) (string, error) {
	const endpoint = "payments.intent"
	var resp models.PaymentIntentResponse
	req := Request{Method: http.MethodPost, URL: c.paymentsURL, Body: models.PaymentIntentRequest{Amount: amount}, Endpoint: endpoint}
	if err := c.Do(ctx, req, &resp); err != nil {
		return "", err
	}
	if resp.ClientSecret == "" {
		return "", &Error{Endpoint: endpoint, HTTPStatus: http.StatusOK, Message: "payment could not be initialised"}
	}
	return resp.ClientSecret, nil
}
