package session

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/user"
)

const GuestHeader = "X-Session-ID"

// Identity is the caller as seen by a single request.
type Identity struct {
	UserID       uuid.UUID
	Role         user.Role
	SessionToken string
	// GuestToken is the X-Session-ID value of the request, minted when absent.
	GuestToken string
	// PendingGuestToken is the guest token captured at login whose cart has
	// not been reconciled into the user cart yet.
	PendingGuestToken string
}

func (i Identity) Authenticated() bool {
	return i.UserID != uuid.Nil
}

// Owner is the key cart lines are scoped to. Exactly one field is set.
type Owner struct {
	UserID     uuid.UUID
	GuestToken string
}

func (o Owner) IsUser() bool {
	return o.UserID != uuid.Nil
}

func (o Owner) String() string {
	if o.IsUser() {
		return "user:" + o.UserID.String()
	}
	return "guest:" + o.GuestToken
}

// Owner resolves the cart owner key. An authenticated identity always owns
// its cart by user id and the guest token is ignored for storage.
func (i Identity) Owner() Owner {
	if i.Authenticated() {
		return Owner{UserID: i.UserID}
	}
	return Owner{GuestToken: i.GuestToken}
}

// ParseGuestToken returns the normalized token and whether it is well formed.
func ParseGuestToken(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	id, err := uuid.FromString(raw)
	if err != nil || id == uuid.Nil {
		return "", false
	}
	return id.String(), true
}

// NewGuestToken mints a random guest token.
func NewGuestToken() string {
	return uuid.Must(uuid.NewV4()).String()
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request identity. A missing identity is an
// anonymous caller without a guest token.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}
