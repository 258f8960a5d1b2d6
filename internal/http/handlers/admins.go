package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"draftdesk/internal/domain"
)

type createAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type adminDTO struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

func toAdminDTO(a domain.Admin) adminDTO {
	return adminDTO{
		ID:        a.ID,
		Username:  a.Username,
		Role:      string(a.Role),
		CreatedAt: a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// InitSuperAdmin creates the first operator account. It only works while the
// admins table is empty, so a deployed instance cannot be re-seeded.
func (a *App) InitSuperAdmin(w http.ResponseWriter, r *http.Request) {
	count, err := a.Admins.Count(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("admin count failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if count > 0 {
		a.error(w, http.StatusConflict, "conflict", "setup already completed")
		return
	}
	a.createAdmin(w, r, domain.RoleSuperAdmin)
}

// CreateAdmin adds an operator account. Routing restricts this to super
// admins.
func (a *App) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	a.createAdmin(w, r, "")
}

func (a *App) createAdmin(w http.ResponseWriter, r *http.Request, forceRole domain.AdminRole) {
	var req createAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || len(req.Password) < 8 {
		a.error(w, http.StatusBadRequest, "bad_request", "username and a password of 8+ characters required")
		return
	}
	role := forceRole
	if role == "" {
		if !domain.ValidAdminRole(req.Role) {
			a.error(w, http.StatusBadRequest, "bad_request", "role must be super_admin or admin")
			return
		}
		role = domain.AdminRole(req.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.Logger.Error().Err(err).Msg("password hash failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	admin := &domain.Admin{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := a.Admins.Create(r.Context(), admin); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			a.error(w, http.StatusConflict, "conflict", "username already exists")
			return
		}
		a.Logger.Error().Err(err).Msg("admin create failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	a.json(w, http.StatusCreated, toAdminDTO(*admin))
}

// ListAdmins returns all operator accounts.
func (a *App) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := a.Admins.List(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("admin list failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	out := make([]adminDTO, 0, len(admins))
	for _, admin := range admins {
		out = append(out, toAdminDTO(admin))
	}
	a.json(w, http.StatusOK, map[string]any{"admins": out})
}
