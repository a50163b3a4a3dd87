package order

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/events"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/session"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/settings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	numberSuffixLen  = 6
	numberAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxNumberRetries = 3
)

var (
	ErrEmptyOrder              = errors.New("order must contain at least one item")
	ErrMissingContact          = errors.New("customer name and phone are required")
	ErrInvalidItem             = errors.New("invalid order item")
	ErrInvalidStatus           = errors.New("unknown order status")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrConfiguration           = settings.ErrConfiguration
)

type SettingsReader interface {
	All(ctx context.Context) (settings.Settings, error)
}

type CartClearer interface {
	Clear(ctx context.Context, owner session.Owner) (int, error)
}

type Page struct {
	Items []Order `json:"items"`
	Total int     `json:"total"`
}

type Service interface {
	// Create materializes the items into an order, renders the WhatsApp
	// message and, for an authenticated caller, clears their cart.
	Create(ctx context.Context, id session.Identity, in CreateInput) (*Placed, error)
	// Get looks an order up by id or order number.
	Get(ctx context.Context, ref string) (*Order, error)
	List(ctx context.Context, filter ListFilter) (*Page, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	UpdateStatus(ctx context.Context, ref string, to Status) (*Order, error)
}

type service struct {
	repo      Repository
	settings  SettingsReader
	cart      CartClearer
	publisher events.Publisher
	now       func() time.Time
}

func NewService(repo Repository, conf SettingsReader, cart CartClearer, publisher events.Publisher) Service {
	return &service{
		repo:      repo,
		settings:  conf,
		cart:      cart,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *service) Create(ctx context.Context, id session.Identity, in CreateInput) (*Placed, error) {
	if len(in.Items) == 0 {
		log.Warn().Msg("service: attempt to create order with no items")
		return nil, ErrEmptyOrder
	}

	c := in.Customer
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	if c.Name == "" || c.Phone == "" {
		return nil, ErrMissingContact
	}

	o := &Order{
		CustomerName:    c.Name,
		CustomerPhone:   c.Phone,
		CustomerEmail:   strings.TrimSpace(c.Email),
		ShippingAddress: strings.TrimSpace(c.Address),
		Notes:           strings.TrimSpace(c.Notes),
		Status:          StatusSent,
		TotalAmount:     decimal.Zero,
		Lines:           make([]Line, 0, len(in.Items)),
	}
	if id.Authenticated() {
		o.UserID = uuid.NullUUID{UUID: id.UserID, Valid: true}
	}

	for _, item := range in.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity for %q must be at least 1", ErrInvalidItem, item.Name)
		}
		if item.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price for %q cannot be negative", ErrInvalidItem, item.Name)
		}
		if strings.TrimSpace(item.Name) == "" {
			return nil, fmt.Errorf("%w: product name is required", ErrInvalidItem)
		}

		line := Line{
			ProductName: strings.TrimSpace(item.Name),
			SKU:         item.SKU,
			Size:        item.Size,
			Color:       item.Color,
			UnitPrice:   item.Price,
			Quantity:    item.Quantity,
			LineTotal:   item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
		if item.ProductID != uuid.Nil {
			line.ProductID = uuid.NullUUID{UUID: item.ProductID, Valid: true}
		}
		o.Lines = append(o.Lines, line)
		o.TotalAmount = o.TotalAmount.Add(line.LineTotal)
	}

	conf, err := s.settings.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load store settings: %w", err)
	}
	number := conf[settings.KeyWhatsAppNumber]
	if number == "" {
		log.Error().Msg("service: cannot place order, whatsapp_number is not configured")
		return nil, ErrConfiguration
	}

	if err := s.persist(ctx, o, conf); err != nil {
		return nil, err
	}

	placed := &Placed{Order: o, WhatsAppURL: whatsAppURL(number, o.WhatsAppMessage)}

	if owner := id.Owner(); (id.Authenticated() || in.ClearCart) && (owner.IsUser() || owner.GuestToken != "") {
		n, err := s.cart.Clear(ctx, owner)
		if err != nil {
			log.Warn().Err(err).Stringer("owner", owner).Str("order_number", o.OrderNumber).Msg("service: order placed but cart not cleared")
		}
		placed.CartCleared = n
	}

	s.publish(ctx, events.OrderEvent{
		Type:        events.TypeOrderPlaced,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status.String(),
		TotalAmount: o.TotalAmount.StringFixed(2),
		ItemCount:   o.ItemCount(),
	})

	log.Info().Stringer("order_id", o.ID).Str("order_number", o.OrderNumber).Str("total", o.TotalAmount.StringFixed(2)).Msg("service: order placed")
	return placed, nil
}

// persist assigns an order number, renders the message and stores the order,
// retrying with a fresh number on the rare collision.
func (s *service) persist(ctx context.Context, o *Order, conf settings.Settings) error {
	for attempt := 1; ; attempt++ {
		num, err := newOrderNumber(s.now())
		if err != nil {
			return fmt.Errorf("service: %w", err)
		}
		o.OrderNumber = num

		msg, err := renderMessage(o, conf[settings.KeyStoreName], conf[settings.KeyCurrencySymbol], conf[settings.KeyOrderMessageFooter])
		if err != nil {
			return fmt.Errorf("service: %w", err)
		}
		o.WhatsAppMessage = msg

		err = s.repo.Create(ctx, o)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrOrderNumberConflict) && attempt < maxNumberRetries {
			log.Warn().Str("order_number", num).Int("attempt", attempt).Msg("service: order number collision, retrying")
			o.ID = uuid.Nil
			continue
		}
		if errors.Is(err, ErrInvalidItem) {
			log.Warn().Err(err).Msg("service: order rejected")
			return err
		}
		log.Error().Err(err).Msg("service: failed to create order in repository")
		return fmt.Errorf("service: failed to create order: %w", err)
	}
}

func (s *service) Get(ctx context.Context, ref string) (*Order, error) {
	var (
		o   *Order
		err error
	)
	if id, parseErr := uuid.FromString(ref); parseErr == nil {
		o, err = s.repo.GetByID(ctx, id)
	} else {
		o, err = s.repo.GetByNumber(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Str("order_ref", ref).Msg("service: order not found")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Str("order_ref", ref).Msg("service: failed to fetch order")
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	return o, nil
}

func (s *service) List(ctx context.Context, f ListFilter) (*Page, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	orders, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return &Page{Items: orders, Total: total}, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user orders in repository")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}
	return orders, nil
}

func (s *service) UpdateStatus(ctx context.Context, ref string, to Status) (*Order, error) {
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}

	current, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	if current.Status == to {
		log.Info().Str("order_number", current.OrderNumber).Stringer("status", to).Msg("service: order status is already the same, no update needed")
		return current, nil
	}

	if !current.Status.CanTransition(to) {
		log.Warn().
			Str("order_number", current.OrderNumber).
			Stringer("current_status", current.Status).
			Stringer("new_status", to).
			Msg("service: invalid status transition attempt")
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, current.Status, to)
	}

	if err := s.repo.UpdateStatus(ctx, current.ID, current.Status, to); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Str("order_number", current.OrderNumber).Msg("service: order changed concurrently during status update")
			return nil, fmt.Errorf("%w: status changed concurrently", ErrInvalidStatusTransition)
		}
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	updated, err := s.repo.GetByID(ctx, current.ID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to reload order: %w", err)
	}

	s.publish(ctx, events.OrderEvent{
		Type:           events.TypeOrderStatusChanged,
		OrderID:        updated.ID,
		OrderNumber:    updated.OrderNumber,
		Status:         to.String(),
		PreviousStatus: current.Status.String(),
	})

	log.Info().Str("order_number", updated.OrderNumber).Stringer("old_status", current.Status).Stringer("new_status", to).Msg("service: order status updated successfully")
	return updated, nil
}

func (s *service) publish(ctx context.Context, e events.OrderEvent) {
	e.OccurredAt = s.now().UTC()
	if err := s.publisher.PublishOrderEvent(ctx, e); err != nil {
		log.Error().Err(err).Str("event", e.Type).Str("order_number", e.OrderNumber).Msg("service: failed to publish order event")
	}
}

// newOrderNumber returns ORD-<unix millis>-<6 random upper alphanumerics>.
func newOrderNumber(now time.Time) (string, error) {
	var sb strings.Builder
	base := big.NewInt(int64(len(numberAlphabet)))
	for i := 0; i < numberSuffixLen; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("failed to generate order number: %w", err)
		}
		sb.WriteByte(numberAlphabet[n.Int64()])
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), sb.String()), nil
}
