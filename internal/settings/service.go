package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	KeyStoreName          = "store_name"
	KeyWhatsAppNumber     = "whatsapp_number"
	KeyCurrencySymbol     = "currency_symbol"
	KeyOrderMessageFooter = "order_message_footer"

	cacheKey = "settings:all"
	cacheTTL = 10 * time.Minute
)

var (
	ErrConfiguration = errors.New("store is not configured to accept orders")
	ErrUnknownKey    = errors.New("unknown setting")
	ErrInvalidValue  = errors.New("invalid setting value")
)

var knownKeys = map[string]bool{
	KeyStoreName:          true,
	KeyWhatsAppNumber:     true,
	KeyCurrencySymbol:     true,
	KeyOrderMessageFooter: true,
}

var publicKeys = []string{KeyStoreName, KeyWhatsAppNumber, KeyCurrencySymbol}

type Settings map[string]string

// Public returns the subset safe to expose to storefront visitors.
func (s Settings) Public() Settings {
	out := make(Settings, len(publicKeys))
	for _, k := range publicKeys {
		out[k] = s[k]
	}
	return out
}

type Service interface {
	All(ctx context.Context) (Settings, error)
	Update(ctx context.Context, values Settings) (Settings, error)
}

type service struct {
	repo  Repository
	cache *redis.Client
}

// NewService returns a settings service. cache may be nil.
func NewService(repo Repository, cache *redis.Client) Service {
	return &service{repo: repo, cache: cache}
}

func (s *service) All(ctx context.Context) (Settings, error) {
	if cached, ok := s.fromCache(ctx); ok {
		return cached, nil
	}

	values, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load settings: %w", err)
	}

	s.store(ctx, values)
	return values, nil
}

func (s *service) Update(ctx context.Context, values Settings) (Settings, error) {
	clean := make(Settings, len(values))
	for k, v := range values {
		if !knownKeys[k] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, k)
		}
		v = strings.TrimSpace(v)
		if k == KeyWhatsAppNumber && v != "" {
			n, ok := normalizePhone(v)
			if !ok {
				return nil, fmt.Errorf("%w: %s must contain 8 to 15 digits", ErrInvalidValue, k)
			}
			v = n
		}
		clean[k] = v
	}

	if err := s.repo.Upsert(ctx, clean); err != nil {
		return nil, fmt.Errorf("service: failed to update settings: %w", err)
	}
	s.invalidate(ctx)

	log.Info().Int("keys", len(clean)).Msg("service: settings updated")
	return s.All(ctx)
}

func (s *service) fromCache(ctx context.Context) (Settings, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, err := s.cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("service: settings cache unavailable, reading database")
		}
		return nil, false
	}

	var values Settings
	if err := json.Unmarshal(payload, &values); err != nil {
		log.Warn().Err(err).Msg("service: corrupt settings cache entry")
		return nil, false
	}
	return values, true
}

func (s *service) store(ctx context.Context, values Settings) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, payload, cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("service: failed to cache settings")
	}
}

func (s *service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey).Err(); err != nil {
		log.Warn().Err(err).Msg("service: failed to invalidate settings cache")
	}
}

var nonDigits = regexp.MustCompile(`\D`)

// normalizePhone strips formatting and keeps the digits wa.me expects.
func normalizePhone(raw string) (string, bool) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if len(digits) < 8 || len(digits) > 15 {
		return "", false
	}
	return digits, true
}
