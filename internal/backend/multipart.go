package backend

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"

	"hotelfront/internal/models"
)

// NewRoomForm encodes a room form for /rooms/add and /rooms/update. The photo part
// is omitted when photo is nil.
func NewRoomForm(form models.RoomForm, photoName string, photo io.Reader) (*MultipartBody, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"roomType", form.RoomType},
		{"roomPrice", strconv.FormatFloat(form.RoomPrice, 'f', -1, 64)},
		{"roomDescription", form.RoomDescription},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	if photo != nil {
		if photoName == "" {
			photoName = "photo"
		}
		part, err := w.CreateFormFile("photo", photoName)
		if err != nil {
			return nil, fmt.Errorf("create photo part: %w", err)
		}
		if _, err := io.Copy(part, photo); err != nil {
			return nil, fmt.Errorf("copy photo: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}
	return &MultipartBody{ContentType: w.FormDataContentType(), Reader: &buf}, nil
}
