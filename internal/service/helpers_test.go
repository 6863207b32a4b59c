package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"hotelfront/internal/backend"
	"hotelfront/internal/events"
	"hotelfront/internal/models"
	"hotelfront/internal/repository"
	"hotelfront/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves canned JSON per "METHOD /path" and records requests.
type fakeBackend struct {
	srv *httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []*http.Request
	bodies   []string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	f := &fakeBackend{routes: map[string]http.HandlerFunc{}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, r)
		f.bodies = append(f.bodies, string(body))
		h, ok := f.routes[r.Method+" "+r.URL.Path]
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
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func (f *fakeBackend) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Method == method && r.URL.Path == path {
			n++
		}
	}
	return n
}

func (f *fakeBackend) lastBody() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bodies) == 0 {
		return ""
	}
	return f.bodies[len(f.bodies)-1]
}

func (f *fakeBackend) lastRequest() *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeBackend) client() *backend.Client {
	return backend.NewClient(f.srv.URL)
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

const (
	profileUser  = `{"statusCode":200,"user":{"id":7,"name":"Ann","email":"a@b.com","phoneNumber":"123","role":"USER"}}`
	profileAdmin = `{"statusCode":200,"user":{"id":1,"name":"Root","email":"r@b.com","role":"ADMIN"}}`
	roomList     = `{"statusCode":200,"roomList":[
		{"id":1,"roomType":"Single","roomPrice":80},
		{"id":2,"roomType":"Double","roomPrice":120},
		{"id":3,"roomType":"Suite","roomPrice":300},
		{"id":4,"roomType":"Double","roomPrice":130}]}`
)

// loggedIn returns a session authenticated with the given profile payload.
func loggedIn(t *testing.T, f *fakeBackend, profile string) *session.Store {
	t.Helper()
	f.json("GET /users/get-logged-in-profile-info", profile)
	sess := session.NewStore("sid", repository.NewMemoryCredentialStore(0), f.client())
	require.NoError(t, sess.Login(context.Background(), "tok", models.RoleUser))
	return sess
}

func anonymous(f *fakeBackend) *session.Store {
	return session.NewStore("anon", repository.NewMemoryCredentialStore(0), f.client())
}

type recordedEvents struct {
	mu     sync.Mutex
	events []*events.Event
}

func recordEvents(bus *events.EventBus, types ...string) *recordedEvents {
	rec := &recordedEvents{}
	bus.Subscribe(func(e *events.Event) error {
		rec.mu.Lock()
		rec.events = append(rec.events, e)
		rec.mu.Unlock()
		return nil
	}, types...)
	return rec
}

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
