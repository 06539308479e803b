package api

import (
	"errors"
	"net/http"

	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/mcdev12/timekeeper/go/internal/sessions"
	"github.com/mcdev12/timekeeper/go/internal/users"
	"github.com/rs/zerolog"
)

// SignUp creates an account from a form post and logs the new user in.
//
// POST /signup
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	user, err := h.users.SignUp(r.Context(), users.SignUpRequest{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	})
	switch {
	case errors.Is(err, users.ErrInvalidInput):
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	case errors.Is(err, users.ErrUserExists):
		http.Error(w, "A user with this name already exists", http.StatusBadRequest)
		return
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to sign up")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.startSession(w, r, user)
}

// Login checks the form credentials and sets the session cookie. Failed
// attempts go back to the start page with authError set.
//
// POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/?authError=true", http.StatusFound)
		return
	}

	user, err := h.users.Authenticate(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, users.ErrInvalidCredentials) {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to authenticate")
		}
		http.Redirect(w, r, "/?authError=true", http.StatusFound)
		return
	}

	h.startSession(w, r, user)
}

// Logout ends the session behind the cookie, if any.
//
// GET|POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessions.CookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.End(r.Context(), cookie.Value); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to end session")
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sessions.CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, "/?authError=false", http.StatusFound)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user *models.User) {
	session, err := h.sessions.Start(r.Context(), user.ID)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int64("user_id", user.ID).Msg("failed to start session")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	cookie := &http.Cookie{
		Name:     sessions.CookieName,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if !session.ExpiresAt.IsZero() {
		cookie.Expires = session.ExpiresAt
	}
	http.SetCookie(w, cookie)
	http.Redirect(w, r, "/", http.StatusFound)
}
