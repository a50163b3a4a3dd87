package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/config"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/session"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/user"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone" validate:"omitempty,min=7,max=20"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      user.Role `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func newUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type AuthHandler struct {
	users    user.Service
	sessions session.Store
	cfg      config.SessionConfig
	validate *validator.Validate
}

func NewAuthHandler(users user.Service, sessions session.Store, cfg config.SessionConfig) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		validate: newValidator(),
	}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Post("/auth/register", h.handleRegister)
	router.Post("/auth/login", h.handleLogin)
	router.Post("/auth/logout", h.handleLogout)
	router.With(RequireAuth).Get("/auth/me", h.handleMe)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	created, err := h.users.Register(r.Context(), &user.User{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	}, req.Password)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to register user")
		return
	}

	respondWithData(w, http.StatusCreated, newUserResponse(created))
}

// handleLogin authenticates and opens a session. The caller's current
// guest token is stored in the session so its cart is folded into the
// user cart on the next cart read.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to log in")
		return
	}

	id := session.FromContext(r.Context())
	token, err := h.sessions.Create(r.Context(), &session.Session{
		UserID:     u.ID,
		Role:       u.Role,
		GuestToken: id.GuestToken,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create session")
		return
	}

	expires := time.Now().Add(h.cfg.TTL).UTC()
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(h.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info().Stringer("user_id", u.ID).Msg("handler: user logged in")
	respondWithData(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expires, User: newUserResponse(u)})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	id := session.FromContext(r.Context())
	if id.SessionToken != "" {
		if err := h.sessions.Delete(r.Context(), id.SessionToken); err != nil {
			respondWithServiceError(w, r, err, "Failed to log out")
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	respondWithData(w, http.StatusOK, map[string]bool{"logged_out": true})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	id := session.FromContext(r.Context())
	u, err := h.users.GetUserByID(r.Context(), id.UserID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load user")
		return
	}
	respondWithData(w, http.StatusOK, newUserResponse(u))
}
