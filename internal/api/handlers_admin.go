package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hotelfront/internal/models"

	"github.com/go-chi/chi/v5"
)

const (
	maxUploadBytes = 10 << 20
	xlsxMIME       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *HTTPServer) handleAdminHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"view":     "admin",
		"sections": []string{"/admin/rooms", "/admin/bookings", "/admin/users"},
	})
}

func (s *HTTPServer) handleAdminRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.svc.Admin.Rooms(r.Context(), sessionFrom(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": "admin-rooms", "rooms": rooms})
}

// handleAdminSaveRoom serves both add (POST /admin/rooms) and edit (PUT /admin/rooms/{id}).
func (s *HTTPServer) handleAdminSaveRoom(w http.ResponseWriter, r *http.Request) {
	var roomID int64
	if chi.URLParam(r, "id") != "" {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		roomID = id
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	form := models.RoomForm{
		RoomType:        strings.TrimSpace(r.FormValue("roomType")),
		RoomDescription: strings.TrimSpace(r.FormValue("roomDescription")),
	}
	if raw := strings.TrimSpace(r.FormValue("roomPrice")); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "roomPrice must be a number",
				"fields": map[string]string{"roomPrice": "must be a number"},
			})
			return
		}
		form.RoomPrice = price
	}

	var (
		photo     io.Reader
		photoName string
	)
	if file, header, err := r.FormFile("photo"); err == nil {
		defer file.Close()
		photo, photoName = file, header.Filename
	} else if !errors.Is(err, http.ErrMissingFile) {
		writeError(w, http.StatusBadRequest, "invalid photo upload")
		return
	}

	room, err := s.svc.Admin.SaveRoom(r.Context(), sessionFrom(r), roomID, form, photoName, photo)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	message := "Room added successfully."
	if roomID != 0 {
		message = "Room updated successfully."
	}
	redirect(w, "/admin/rooms", map[string]any{"message": message, "room": room})
}

func (s *HTTPServer) handleAdminDeleteRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.Admin.DeleteRoom(r.Context(), sessionFrom(r), id); err != nil {
		writeFailure(w, r, err)
		return
	}
	redirect(w, "/admin/rooms", map[string]any{"message": "Room deleted successfully."})
}

func (s *HTTPServer) handleAdminBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.Admin.Bookings(r.Context(), sessionFrom(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": "admin-bookings", "bookings": bookings})
}

// handleAdminExportBookings buffers the workbook so a failure can still be reported as JSON.
func (s *HTTPServer) handleAdminExportBookings(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := s.svc.Admin.ExportBookings(r.Context(), sessionFrom(r), &buf); err != nil {
		writeFailure(w, r, err)
		return
	}
	name := fmt.Sprintf("bookings-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleAdminCancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.Admin.CancelBooking(r.Context(), sessionFrom(r), id); err != nil {
		writeFailure(w, r, err)
		return
	}
	redirect(w, "/admin/bookings", map[string]any{"message": "Booking cancelled."})
}

func (s *HTTPServer) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Admin.Users(r.Context(), sessionFrom(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if users == nil {
		users = []models.UserProfile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": "admin-users", "users": users})
}

func (s *HTTPServer) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.Admin.DeleteUser(r.Context(), sessionFrom(r), id); err != nil {
		writeFailure(w, r, err)
		return
	}
	redirect(w, "/admin/users", map[string]any{"message": "User deleted."})
}
