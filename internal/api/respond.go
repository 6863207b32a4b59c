package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"hotelfront/internal/backend"
	"hotelfront/internal/guard"
	"hotelfront/internal/service"
	"hotelfront/internal/session"

	"github.com/rs/zerolog"
)

const genericFailure = "Something went wrong. Please try again."

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// redirect answers a form submission with 303 and the next location in the body as well.
func redirect(w http.ResponseWriter, location string, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["redirect"] = location
	w.Header().Set("Location", location)
	writeJSON(w, http.StatusSeeOther, payload)
}

// writeFailure maps service and backend errors to an inline error response.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": verr.Error(), "fields": verr.Fields})
		return
	}

	switch {
	case errors.Is(err, service.ErrLoginFailed):
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case errors.Is(err, session.ErrResolutionFailed):
		writeError(w, http.StatusUnauthorized, "Could not load your profile. Please log in again.")
		return
	case errors.Is(err, session.ErrNotLoggedIn), errors.Is(err, service.ErrLoginRequired):
		redirect(w, guard.LoginRedirect(r.URL.RequestURI()), nil)
		return
	case errors.Is(err, service.ErrStaleSearch), errors.Is(err, session.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	if be, ok := backend.AsError(err); ok {
		switch {
		case be.Transport():
			writeError(w, http.StatusBadGateway, genericFailure)
		case be.Status() == http.StatusNotFound:
			writeError(w, http.StatusNotFound, be.Message)
		case be.Status() == http.StatusBadRequest, be.Status() == http.StatusUnauthorized, be.Status() == http.StatusForbidden:
			writeError(w, be.Status(), be.Message)
		default:
			writeError(w, http.StatusBadGateway, be.Message)
		}
		return
	}

	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	writeError(w, http.StatusInternalServerError, genericFailure)
}
