package service

import (
	"context"
	"errors"

	"hotelfront/internal/backend"
	"hotelfront/internal/models"
	"hotelfront/internal/session"

	"github.com/rs/zerolog"
)

// ErrLoginFailed matches a login the backend answered without a token and role.
var ErrLoginFailed = errors.New("login failed")

// LoginError carries the backend message of a refused login.
type LoginError struct {
	Message string
}

func (e *LoginError) Error() string {
	if e.Message == "" {
		return "Login failed"
	}
	return e.Message
}

func (e *LoginError) Is(target error) bool {
	return target == ErrLoginFailed
}

type AuthService struct {
	client *backend.Client
	logger *zerolog.Logger
}

func NewAuthService(client *backend.Client, logger *zerolog.Logger) *AuthService {
	return &AuthService{client: client, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	if err := validateStruct(req); err != nil {
		return "", err
	}
	if _, err := s.client.Register(ctx, req); err != nil {
		return "", err
	}
	s.logger.Info().Str("email", req.Email).Msg("User registered")
	return "Registration successful! Please login.", nil
}

// Login authenticates against the backend and hands the credential to the session.
func (s *AuthService) Login(ctx context.Context, sess *session.Store, req models.LoginRequest) (session.Snapshot, error) {
	if err := validateStruct(req); err != nil {
		return session.Snapshot{}, err
	}

	resp, err := clientFor(s.client, sess).Login(ctx, req)
	if err != nil {
		return session.Snapshot{}, err
	}
	if resp.Token == "" || resp.Role == "" {
		return session.Snapshot{}, &LoginError{Message: resp.Message}
	}

	if err := sess.Login(ctx, resp.Token, resp.Role); err != nil {
		return sess.Snapshot(), err
	}
	return sess.Snapshot(), nil
}

func (s *AuthService) Logout(ctx context.Context, sess *session.Store) error {
	return sess.Logout(ctx)
}

// Profile refreshes the session profile and attaches the user's bookings.
func (s *AuthService) Profile(ctx context.Context, sess *session.Store) (*models.UserProfile, error) {
	profile, err := sess.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	withBookings, err := sess.API().UserBookings(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	out := *profile
	out.Bookings = withBookings.Bookings
	return &out, nil
}
