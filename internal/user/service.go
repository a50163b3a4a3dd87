package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactive           = errors.New("user account is disabled")
	ErrForbidden          = errors.New("insufficient role for this operation")
	ErrInvalidRole        = errors.New("invalid role")
)

type Service interface {
	Register(ctx context.Context, user *User, password string) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]User, int, error)
	UpdateRole(ctx context.Context, actorRole Role, targetID uuid.UUID, newRole Role) error
	SetActive(ctx context.Context, actorRole Role, targetID uuid.UUID, active bool) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Register(ctx context.Context, user *User, password string) (*User, error) {
	if password == "" {
		return nil, errors.New("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to generate password hash")
		return nil, fmt.Errorf("internal error hashing password: %w", err)
	}

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.PasswordHash = string(hash)
	user.Role = RoleCustomer
	user.IsActive = true

	id, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Msg("service: failed to create user in repository")
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	user.ID = id

	log.Info().Stringer("user_id", user.ID).Msg("service: user registered")
	return user, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user for login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !u.IsActive {
		log.Warn().Stringer("user_id", u.ID).Msg("service: login attempt for disabled account")
		return nil, ErrInactive
	}

	return u, nil
}

func (s *service) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to get user by id")
		return nil, fmt.Errorf("failed to get user by id '%s': %w", id, err)
	}
	return u, nil
}

func (s *service) ListUsers(ctx context.Context, limit, offset int) ([]User, int, error) {
	users, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// UpdateRole changes the role of targetID. An actor may only manage users
// ranked strictly below itself and may only grant roles below its own rank.
func (s *service) UpdateRole(ctx context.Context, actorRole Role, targetID uuid.UUID, newRole Role) error {
	if !newRole.Valid() {
		return ErrInvalidRole
	}
	if newRole.Rank() >= actorRole.Rank() {
		return ErrForbidden
	}

	if err := s.checkManageable(ctx, actorRole, targetID); err != nil {
		return err
	}

	if err := s.repo.UpdateRole(ctx, targetID, newRole); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update role for user '%s': %w", targetID, err)
	}

	log.Info().Stringer("user_id", targetID).Stringer("role", newRole).Msg("service: user role updated")
	return nil
}

func (s *service) SetActive(ctx context.Context, actorRole Role, targetID uuid.UUID, active bool) error {
	if err := s.checkManageable(ctx, actorRole, targetID); err != nil {
		return err
	}

	if err := s.repo.SetActive(ctx, targetID, active); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update active flag for user '%s': %w", targetID, err)
	}
	return nil
}

func (s *service) checkManageable(ctx context.Context, actorRole Role, targetID uuid.UUID) error {
	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load user '%s': %w", targetID, err)
	}
	if target.Role.Rank() >= actorRole.Rank() {
		log.Warn().Stringer("user_id", targetID).Stringer("actor_role", actorRole).Msg("service: attempt to manage user of equal or higher rank")
		return ErrForbidden
	}
	return nil
}
