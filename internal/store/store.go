package store

import (
	"context"
	"errors"
	"time"
)

// ErrTokenExists is returned by CreateInvite when the token is already taken.
var ErrTokenExists = errors.New("invite token already exists")

type Blessing struct {
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Invite struct {
	Token                string     `json:"token"`
	GuestName            string     `json:"guest_name"`
	CustomGreeting       string     `json:"custom_greeting,omitempty"`
	IsUsed               bool       `json:"is_used"`
	AllowMultipleDevices bool       `json:"allow_multiple_devices"`
	CreatedAt            time.Time  `json:"created_at"`
	ExpiresAt            *time.Time `json:"expires_at,omitempty"`
	Blessings            []Blessing `json:"blessings"`
}

// InviteStore is the persistence boundary for invite records. Lookups that
// miss return (nil, nil); errors are reserved for storage failures.
type InviteStore interface {
	CreateInvite(ctx context.Context, rec Invite) error
	GetInvite(ctx context.Context, token string) (*Invite, error)
	ConsumeInvite(ctx context.Context, token string) (*Invite, bool, error)
	AppendBlessing(ctx context.Context, token, name, message string, now time.Time) (*Invite, error)
	SetMultiDevice(ctx context.Context, token string, allow bool) (*Invite, error)
	ListInvites(ctx context.Context) ([]Invite, error)
	DeleteInvite(ctx context.Context, token string) (bool, error)
	Close() error
}
