package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"draftdesk/internal/domain"
	"draftdesk/internal/middleware"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Login verifies the operator's credentials and sets the session cookie.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "username and password required")
		return
	}

	admin, err := a.Admins.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
			return
		}
		a.Logger.Error().Err(err).Msg("login lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		a.Logger.Warn().Str("username", username).Msg("login rejected")
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    admin.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(a.SessionTTL / time.Second),
	})

	event := a.Logger.Info().Str("username", username)
	if a.GeoIP != nil {
		if country, err := a.GeoIP.CountryCode(clientIP(r)); err == nil && country != "" {
			event = event.Str("country", country)
		}
	}
	event.Msg("login")

	a.json(w, http.StatusOK, sessionDTO{ID: admin.ID, Username: admin.Username, Role: string(admin.Role)})
}

// Logout clears the session cookie.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	a.json(w, http.StatusOK, map[string]bool{"ok": true})
}

// Session returns the current operator, resolved from the session cookie.
func (a *App) Session(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookie)
	if err != nil || cookie.Value == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "no active session")
		return
	}
	admin, err := a.Admins.GetByID(r.Context(), cookie.Value)
	if err != nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "no active session")
		return
	}
	a.json(w, http.StatusOK, sessionDTO{ID: admin.ID, Username: admin.Username, Role: string(admin.Role)})
}

func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		if i := strings.IndexByte(xf, ','); i > 0 {
			return strings.TrimSpace(xf[:i])
		}
		return strings.TrimSpace(xf)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}
