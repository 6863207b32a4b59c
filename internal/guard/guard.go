// Package guard decides whether a protected view may render for the current session.
package guard

import (
	"encoding/json"
	"net/http"
	"net/url"

	"hotelfront/internal/metrics"
)

type Policy int

const (
	// RequireUser admits any authenticated session.
	RequireUser Policy = iota
	// RequireAdmin admits authenticated sessions whose profile role is ADMIN.
	RequireAdmin
)

type Decision int

const (
	Render Decision = iota
	Placeholder
	RedirectLogin
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case Placeholder:
		return "placeholder"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	default:
		return "unknown"
	}
}

// View is the part of the session the guard looks at.
type View struct {
	Loading         bool
	IsAuthenticated bool
	IsAdmin         bool
}

// Evaluate applies policy to the session view. Loading is checked first, so an
// unresolved session never redirects.
func Evaluate(v View, policy Policy) Decision {
	switch {
	case v.Loading:
		return Placeholder
	case !v.IsAuthenticated:
		return RedirectLogin
	case policy == RequireAdmin && !v.IsAdmin:
		return RedirectHome
	default:
		return Render
	}
}

// Lookup reads the session view of a request.
type Lookup func(r *http.Request) View

const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Middleware evaluates the policy on every request.
func Middleware(lookup Lookup, policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := Evaluate(lookup(r), policy)
			metrics.IncGuard(decision.String())

			switch decision {
			case Render:
				next.ServeHTTP(w, r)
			case Placeholder:
				WritePlaceholder(w)
			case RedirectLogin:
				http.Redirect(w, r, LoginRedirect(r.URL.RequestURI()), http.StatusFound)
			default:
				http.Redirect(w, r, HomePath, http.StatusFound)
			}
		})
	}
}

// LoginRedirect returns the login location that brings the user back to from.
func LoginRedirect(from string) string {
	if from == "" || from == LoginPath {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{"from": {from}}.Encode()
}

// WritePlaceholder answers while the session is still resolving.
func WritePlaceholder(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"view": "loading"})
}
