package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"hotelfront/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestDo_AuthorizationHeader(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"statusCode":200}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	t.Run("NoTokenSource", func(t *testing.T) {
		require.NoError(t, c.Do(ctx, Request{Path: "/rooms/all"}, nil))
		assert.Equal(t, "", got.Load())
	})

	t.Run("EmptyToken", func(t *testing.T) {
		require.NoError(t, c.WithTokenSource(StaticToken("")).Do(ctx, Request{Path: "/rooms/all"}, nil))
		assert.Equal(t, "", got.Load())
	})

	t.Run("Token", func(t *testing.T) {
		require.NoError(t, c.WithTokenSource(StaticToken("t1")).Do(ctx, Request{Path: "/rooms/all"}, nil))
		assert.Equal(t, "Bearer t1", got.Load())
	})

	t.Run("CopyDoesNotLeak", func(t *testing.T) {
		_ = c.WithTokenSource(StaticToken("t2"))
		require.NoError(t, c.Do(ctx, Request{Path: "/rooms/all"}, nil))
		assert.Equal(t, "", got.Load())
	})
}

func TestDo_JSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "a@b.com", in.Email)

		_, _ = io.WriteString(w, `{"statusCode":200,"token":"t1","role":"USER"}`)
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL+"/").Login(context.Background(), models.LoginRequest{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "t1", resp.Token)
	assert.Equal(t, models.RoleUser, resp.Role)
}

func TestDo_MultipartPassThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary="))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Suite", r.FormValue("roomType"))
		assert.Equal(t, "120.5", r.FormValue("roomPrice"))
		assert.Equal(t, "Sea view", r.FormValue("roomDescription"))

		f, hdr, err := r.FormFile("photo")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "suite.jpg", hdr.Filename)
		assert.Equal(t, "jpegbytes", string(data))

		_, _ = io.WriteString(w, `{"statusCode":200,"room":{"id":9,"roomType":"Suite"}}`)
	}))
	defer srv.Close()

	body, err := NewRoomForm(models.RoomForm{RoomType: "Suite", RoomPrice: 120.5, RoomDescription: "Sea view"}, "suite.jpg", strings.NewReader("jpegbytes"))
	require.NoError(t, err)

	resp, err := NewClient(srv.URL).WithTokenSource(StaticToken("admin")).AddRoom(context.Background(), body)
	require.NoError(t, err)
	require.NotNil(t, resp.Room)
	assert.Equal(t, int64(9), resp.Room.ID)
}

func TestDo_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantStatus int
	}{
		{"EmbeddedStatusWithMessage", http.StatusOK, `{"statusCode":404,"message":"Booking not found"}`, "Booking not found", 404},
		{"EmbeddedStatusFallback", http.StatusOK, `{"statusCode":500}`, "API Error", 500},
		{"EmbeddedBeatsHTTP", http.StatusBadRequest, `{"statusCode":400,"message":"Invalid dates"}`, "Invalid dates", 400},
		{"HTTPStatusWithMessage", http.StatusUnauthorized, `{"message":"Unauthorized"}`, "Unauthorized", 401},
		{"HTTPStatusFallback", http.StatusInternalServerError, `{}`, "HTTP error! status: 500", 500},
		{"HTTPStatusNonJSON", http.StatusBadGateway, `<html>bad gateway</html>`, "HTTP error! status: 502", 502},
		{"HTTPStatusEmptyBody", http.StatusForbidden, ``, "HTTP error! status: 403", 403},
		{"MalformedSuccess", http.StatusOK, `{"statusCode":`, "invalid response from server", 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(jsonHandler(tt.status, tt.body))
			defer srv.Close()

			err := NewClient(srv.URL).Do(context.Background(), Request{Path: "/x", Endpoint: "test"}, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRequestFailed))
			assert.Equal(t, tt.wantMsg, err.Error())

			be, ok := AsError(err)
			require.True(t, ok)
			assert.False(t, be.Transport())
			assert.Equal(t, tt.wantStatus, be.Status())
		})
	}
}

func TestDo_ZeroStatusCodeIsSuccess(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(http.StatusOK, `{"statusCode":0,"message":"fine"}`))
	defer srv.Close()

	var out models.MessageResponse
	require.NoError(t, NewClient(srv.URL).Do(context.Background(), Request{Path: "/x"}, &out))
	assert.Equal(t, "fine", out.Message)
}

func TestDo_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(http.StatusOK, `{}`))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, WithTimeout(time.Second)).ListRooms(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequestFailed))

	be, ok := AsError(err)
	require.True(t, ok)
	assert.True(t, be.Transport())
	assert.Equal(t, 0, be.Status())
}

func TestAvailableRooms_OmitsEmptyParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2024-05-01", q.Get("checkInDate"))
		assert.Equal(t, "2024-05-03", q.Get("checkOutDate"))
		_, hasType := q["roomType"]
		assert.False(t, hasType)
		_, _ = io.WriteString(w, `{"statusCode":200,"roomList":[{"id":1,"roomType":"Single","roomPrice":80}]}`)
	}))
	defer srv.Close()

	rooms, err := NewClient(srv.URL).AvailableRooms(context.Background(), "2024-05-01", "2024-05-03", "")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "Single", rooms[0].RoomType)
}

func TestBookingByCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bookings/get-by-confirmation-code/ABC123456", r.URL.Path)
		_, _ = io.WriteString(w, `{"statusCode":200,"booking":{"id":3,"bookingConfirmationCode":"ABC123456","room":{"id":1}}}`)
	}))
	defer srv.Close()

	b, err := NewClient(srv.URL).BookingByCode(context.Background(), "ABC123456")
	require.NoError(t, err)
	assert.Equal(t, "ABC123456", b.BookingConfirmationCode)
	require.NotNil(t, b.Room)
}

func TestCreatePaymentIntent(t *testing.T) {
	t.Run("DefaultURL", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/payments/create-payment-intent", r.URL.Path)
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			var in models.PaymentIntentRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, 150.0, in.Amount)
			_, _ = io.WriteString(w, `{"clientSecret":"pi_secret"}`)
		}))
		defer srv.Close()

		secret, err := NewClient(srv.URL).WithTokenSource(StaticToken("tok")).CreatePaymentIntent(context.Background(), 150)
		require.NoError(t, err)
		assert.Equal(t, "pi_secret", secret)
	})

	t.Run("ExplicitURL", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/intents", r.URL.Path)
			_, _ = io.WriteString(w, `{"clientSecret":"s"}`)
		}))
		defer srv.Close()

		secret, err := NewClient("http://127.0.0.1:1", WithPaymentsURL(srv.URL+"/intents")).CreatePaymentIntent(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "s", secret)
	})
}

func TestGetProfile_MissingUser(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(http.StatusOK, `{"statusCode":200}`))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetProfile(context.Background())
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestCatalogCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/rooms/all":
			hits.Add(1)
			_, _ = io.WriteString(w, `{"statusCode":200,"roomList":[{"id":1},{"id":2}]}`)
		case r.URL.Path == "/rooms/delete/2":
			_, _ = io.WriteString(w, `{"statusCode":200,"message":"deleted"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.UseRedisCache(rdb, time.Minute)
	ctx := context.Background()

	rooms, err := c.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	rooms, err = c.WithTokenSource(StaticToken("x")).ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
	assert.Equal(t, int32(1), hits.Load())

	_, err = c.DeleteRoom(ctx, 2)
	require.NoError(t, err)
	assert.False(t, mr.Exists(cacheKeyRooms))

	_, err = c.ListRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}
