package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"hotelfront/internal/backend"
	"hotelfront/internal/config"
	"hotelfront/internal/events"
	"hotelfront/internal/latest"
	"hotelfront/internal/repository"
	"hotelfront/internal/service"
	"hotelfront/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	cookieName   = "hf_test"
	profileUser  = `{"statusCode":200,"user":{"id":7,"name":"Ann","email":"a@b.com","phoneNumber":"123","role":"USER"}}`
	profileAdmin = `{"statusCode":200,"user":{"id":1,"name":"Root","email":"r@b.com","role":"ADMIN"}}`
	roomList     = `{"statusCode":200,"roomList":[{"id":1,"roomType":"Single","roomPrice":80},{"id":3,"roomType":"Suite","roomPrice":300}]}`
)

// fakeBackend serves canned handlers per "METHOD /path".
type fakeBackend struct {
	srv *httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	f := &fakeBackend{routes: map[string]http.HandlerFunc{}, hits: map[string]int{}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		f.mu.Lock()
		f.hits[key]++
		h, ok := f.routes[key]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"statusCode":404,"message":"Not found"}`)
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeBackend) json(route, body string) {
	f.handle(route, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	})
}

func (f *fakeBackend) handle(route string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = h
}

func (f *fakeBackend) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	creds   *repository.MemoryCredentialStore
	bus     *events.EventBus
}

func newTestServer(t *testing.T, baseURL string) *testServer {
	t.Helper()
	logger := zerolog.New(io.Discard)
	client := backend.NewClient(baseURL, backend.WithTimeout(2*time.Second))
	creds := repository.NewMemoryCredentialStore(0)
	bus := events.NewEventBus()

	searches := latest.NewTracker()
	sessions := session.NewManager(creds, client, time.Hour, &logger, session.WithEvents(bus))
	sessions.OnEvict(searches.Forget)
	svc := Services{
		Auth:      service.NewAuthService(client, &logger),
		Catalog:   service.NewCatalogService(client, 2, &logger),
		Checkout:  service.NewCheckoutService(client, bus, &logger),
		Admin:     service.NewAdminService(bus, &logger),
		Concierge: service.NewConciergeService(client, searches, &logger),
	}
	cfg := config.ServerConfig{
		SessionCookie: cookieName,
		LoginAttempts: 3,
		LoginWindow:   time.Minute,
	}
	srv := NewHTTPServer(cfg, sessions, svc, creds, &logger)
	return &testServer{t: t, handler: srv.Handler(), creds: creds, bus: bus}
}

// do sends a request, carrying the session cookie when sid is set.
func (s *testServer) do(method, path, sid string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: sid})
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// login signs in through the handler and returns the session cookie value.
func (s *testServer) login(f *fakeBackend, role, profile string) string {
	s.t.Helper()
	f.json("POST /auth/login", `{"statusCode":200,"token":"tok","role":"`+role+`"}`)
	f.json("GET /users/get-logged-in-profile-info", profile)

	rec := s.do(http.MethodPost, "/login", "", map[string]string{"email": "a@b.com", "password": "pw"})
	require.Equal(s.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	sid := sessionCookie(rec)
	require.NotEmpty(s.t, sid)
	return sid
}

func sessionCookie(rec *httptest.ResponseRecorder) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c.Value
		}
	}
	return ""
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
