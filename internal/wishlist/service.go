package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/session"
)

type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]Item, error)
	Add(ctx context.Context, userID, productID uuid.UUID) (*Item, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	// Check never fails for anonymous callers; they simply have no wishlist.
	Check(ctx context.Context, id session.Identity, productID uuid.UUID) (bool, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list wishlist: %w", err)
	}
	return items, nil
}

func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) (*Item, error) {
	item, err := s.repo.Add(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrUnknownProduct) {
			log.Warn().Err(err).Stringer("user_id", userID).Stringer("product_id", productID).Msg("service: wishlist add rejected")
			return nil, err
		}
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to add wishlist item")
		return nil, fmt.Errorf("service: failed to add wishlist item: %w", err)
	}
	return item, nil
}

func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("service: failed to remove wishlist item: %w", err)
	}
	return nil
}

func (s *service) Check(ctx context.Context, id session.Identity, productID uuid.UUID) (bool, error) {
	if !id.Authenticated() {
		return false, nil
	}
	ok, err := s.repo.Exists(ctx, id.UserID, productID)
	if err != nil {
		return false, fmt.Errorf("service: failed to check wishlist: %w", err)
	}
	return ok, nil
}
