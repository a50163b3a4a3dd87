package cart

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/catalog"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/session"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrOutOfStock         = errors.New("requested quantity exceeds available stock")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrInvalidVariant     = errors.New("selected size or color is not offered")
)

type ProductReader interface {
	GetProductByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

type AddInput struct {
	ProductID uuid.UUID
	Quantity  int
	Size      string
	Color     string
}

type Service interface {
	// List returns the owner's cart. For an authenticated identity with a
	// pending guest token the guest cart is reconciled first.
	List(ctx context.Context, id session.Identity) (*Summary, error)
	Add(ctx context.Context, owner session.Owner, in AddInput) (*Line, error)
	UpdateQuantity(ctx context.Context, owner session.Owner, lineID uuid.UUID, quantity int) (*Line, error)
	Remove(ctx context.Context, owner session.Owner, lineID uuid.UUID) error
	Clear(ctx context.Context, owner session.Owner) (int, error)
	Reconcile(ctx context.Context, id session.Identity) (ReconcileResult, error)
}

type service struct {
	repo     Repository
	products ProductReader
	sessions session.Store
}

func NewService(repo Repository, products ProductReader, sessions session.Store) Service {
	return &service{repo: repo, products: products, sessions: sessions}
}

func (s *service) List(ctx context.Context, id session.Identity) (*Summary, error) {
	var reconciled ReconcileResult
	if id.Authenticated() && id.PendingGuestToken != "" {
		res, err := s.Reconcile(ctx, id)
		if err != nil {
			return nil, err
		}
		reconciled = res
	}

	owner := id.Owner()
	items, err := s.repo.List(ctx, owner)
	if err != nil {
		log.Error().Err(err).Stringer("owner", owner).Msg("service: failed to list cart")
		return nil, fmt.Errorf("service: failed to list cart: %w", err)
	}

	summary := newSummary(items)
	summary.Reconciled = reconciled.Total()
	return summary, nil
}

func (s *service) Add(ctx context.Context, owner session.Owner, in AddInput) (*Line, error) {
	if in.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.purchasable(ctx, in.ProductID, in.Quantity)
	if err != nil {
		return nil, err
	}
	if !offers(product.Sizes, in.Size) || !offers(product.Colors, in.Color) {
		return nil, ErrInvalidVariant
	}

	line := &Line{
		ProductID:   product.ID,
		Size:        in.Size,
		Color:       in.Color,
		Quantity:    in.Quantity,
		PriceAtTime: product.Price,
	}
	if err := s.repo.Upsert(ctx, owner, line); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Stringer("owner", owner).Stringer("product_id", in.ProductID).Msg("service: failed to add to cart")
		return nil, fmt.Errorf("service: failed to add to cart: %w", err)
	}

	log.Debug().Stringer("owner", owner).Stringer("product_id", in.ProductID).Int("quantity", in.Quantity).Msg("service: cart line stored")
	return line, nil
}

func (s *service) UpdateQuantity(ctx context.Context, owner session.Owner, lineID uuid.UUID, quantity int) (*Line, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	line, err := s.repo.GetLine(ctx, owner, lineID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Stringer("owner", owner).Stringer("line_id", lineID).Msg("service: cart item not found")
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to load cart item: %w", err)
	}

	product, err := s.purchasable(ctx, line.ProductID, quantity)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateQuantity(ctx, owner, lineID, quantity, product.Price); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to update cart item: %w", err)
	}

	line.Quantity = quantity
	line.PriceAtTime = product.Price
	return line, nil
}

func (s *service) Remove(ctx context.Context, owner session.Owner, lineID uuid.UUID) error {
	if err := s.repo.Delete(ctx, owner, lineID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("service: failed to remove cart item: %w", err)
	}
	return nil
}

func (s *service) Clear(ctx context.Context, owner session.Owner) (int, error) {
	n, err := s.repo.Clear(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("service: failed to clear cart: %w", err)
	}
	log.Debug().Stringer("owner", owner).Int("deleted", n).Msg("service: cart cleared")
	return n, nil
}

// Reconcile folds the pending guest cart into the user cart and clears the
// guest token from the session.
func (s *service) Reconcile(ctx context.Context, id session.Identity) (ReconcileResult, error) {
	if !id.Authenticated() || id.PendingGuestToken == "" {
		return ReconcileResult{}, nil
	}

	res, err := s.repo.Reconcile(ctx, id.PendingGuestToken, id.UserID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", id.UserID).Msg("service: failed to reconcile guest cart")
		return ReconcileResult{}, fmt.Errorf("service: failed to reconcile cart: %w", err)
	}

	if id.SessionToken != "" {
		if err := s.sessions.ClearGuestToken(ctx, id.SessionToken); err != nil && !errors.Is(err, session.ErrNotFound) {
			log.Warn().Err(err).Stringer("user_id", id.UserID).Msg("service: failed to clear guest token after reconcile")
		}
	}

	if res.Total() > 0 {
		log.Info().Stringer("user_id", id.UserID).Int("merged", res.Merged).Int("moved", res.Moved).Msg("service: guest cart reconciled")
	}
	return res, nil
}

func (s *service) purchasable(ctx context.Context, productID uuid.UUID, quantity int) (*catalog.Product, error) {
	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("service: failed to load product %s: %w", productID, err)
	}
	if !product.Purchasable() {
		return nil, ErrProductUnavailable
	}
	if product.TracksStock() && quantity > product.StockQuantity {
		return nil, ErrOutOfStock
	}
	return product, nil
}

// offers reports whether choice is allowed by options. An empty choice or an
// empty option list always passes.
func offers(options []string, choice string) bool {
	return choice == "" || len(options) == 0 || slices.Contains(options, choice)
}
