package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"hotelfront/internal/backend"
	"hotelfront/internal/latest"
	"hotelfront/internal/models"
	"hotelfront/internal/session"

	"github.com/rs/zerolog"
)

// ErrStaleSearch is returned for a recommendation search overtaken by a newer one of the same session.
var ErrStaleSearch = errors.New("search superseded by a newer one")

type ConciergeService struct {
	client   *backend.Client
	searches *latest.Tracker
	logger   *zerolog.Logger
}

func NewConciergeService(client *backend.Client, searches *latest.Tracker, logger *zerolog.Logger) *ConciergeService {
	if searches == nil {
		searches = latest.NewTracker()
	}
	return &ConciergeService{client: client, searches: searches, logger: logger}
}

// Chat relays a message to the assistant. An empty reply becomes a fixed apology.
func (s *ConciergeService) Chat(ctx context.Context, sess *session.Store, message string) (string, error) {
	req := models.ChatRequest{Message: strings.TrimSpace(message)}
	if err := validateStruct(req); err != nil {
		return "", err
	}
	reply, err := clientFor(s.client, sess).Chat(ctx, req.Message)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return models.DefaultChatFallback, nil
	}
	return reply, nil
}

// Recommend asks for room recommendations and joins them with the catalog, keeping
// the backend order and dropping ids the catalog does not know. Only the newest
// search of a session is stored on it; older ones fail with ErrStaleSearch.
func (s *ConciergeService) Recommend(ctx context.Context, sess *session.Store, query string) ([]models.RoomMatch, error) {
	req := models.RecommendRequest{Query: strings.TrimSpace(query)}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var ticket latest.Ticket
	if sess != nil {
		ticket = s.searches.Begin(sess.ID())
	}
	api := clientFor(s.client, sess)

	raw, err := api.RecommendRooms(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	recs, err := DecodeRecommendations(raw)
	if err != nil {
		return nil, err
	}

	var matches []models.RoomMatch
	if len(recs) > 0 {
		rooms, err := api.ListRooms(ctx)
		if err != nil {
			return nil, err
		}
		matches = JoinRecommendations(recs, rooms)
	}

	if sess != nil {
		if !ticket.Current() {
			s.logger.Debug().Str("session_id", sess.ID()).Msg("Dropping superseded recommendation result")
			return nil, ErrStaleSearch
		}
		sess.SetMatches(matches)
	}
	return matches, nil
}

// DecodeRecommendations parses the JSON document the recommend endpoint carries in its message.
func DecodeRecommendations(message string) ([]models.Recommendation, error) {
	if strings.TrimSpace(message) == "" {
		return nil, nil
	}
	var list models.RecommendationList
	if err := json.Unmarshal([]byte(message), &list); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	return list.Recommendations, nil
}

// JoinRecommendations keeps recommendation order and drops unknown room ids.
func JoinRecommendations(recs []models.Recommendation, rooms []models.Room) []models.RoomMatch {
	byID := make(map[int64]models.Room, len(rooms))
	for _, r := range rooms {
		byID[r.ID] = r
	}
	matches := make([]models.RoomMatch, 0, len(recs))
	for _, rec := range recs {
		room, ok := byID[rec.RoomID]
		if !ok {
			continue
		}
		matches = append(matches, models.RoomMatch{Room: room, Reason: rec.Reason, Score: rec.MatchScore})
	}
	return matches
}
