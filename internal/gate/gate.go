// Package gate implements the invite access decision: given a token and the
// device cookie presented by the browser, decide whether the invitation may
// be viewed, and consume fresh invites on their first access.
package gate

import (
	"context"
	"errors"
	"time"

	"github.com/deninthomas/housewarming/internal/store"
)

var (
	ErrNotFound    = errors.New("invite not found")
	ErrExpired     = errors.New("invite expired")
	ErrAlreadyUsed = errors.New("invite already used")
)

// Messages returned to the guest on a grant.
const (
	MsgFirstVisit = "Invite valid"
	MsgReturning  = "Welcome back!"
)

// DeviceCookieTTL is the validity window of the device cookie issued on a
// first grant.
const DeviceCookieTTL = 30 * 24 * time.Hour

// Grant is the read-only projection handed to the presentation layer.
type Grant struct {
	GuestName      string
	CustomGreeting string
	Message        string
	Blessings      []store.Blessing
	// IssueCookie directs the caller to set a device cookie bound to the
	// token, valid for DeviceCookieTTL.
	IssueCookie bool
}

// Decision is the outcome of the pure access rule.
type Decision int

const (
	DecisionDeny Decision = iota
	// DecisionGrantFirst: fresh invite, caller must consume it and issue a
	// device cookie.
	DecisionGrantFirst
	// DecisionGrantRepeat: used invite with matching device cookie or
	// multi-device enabled. No mutation, no cookie.
	DecisionGrantRepeat
)

// Decide applies the access rule to a loaded record. Expiry is checked
// before everything else: an expired invite is denied even when it is
// already used and the device cookie matches.
func Decide(rec *store.Invite, deviceCookie string, now time.Time) (Decision, error) {
	if rec == nil {
		return DecisionDeny, ErrNotFound
	}
	if rec.ExpiresAt != nil && now.After(*rec.ExpiresAt) {
		return DecisionDeny, ErrExpired
	}
	if rec.IsUsed {
		if deviceCookie == rec.Token || rec.AllowMultipleDevices {
			return DecisionGrantRepeat, nil
		}
		return DecisionDeny, ErrAlreadyUsed
	}
	return DecisionGrantFirst, nil
}

// Gate evaluates tokens against the invite store.
type Gate struct {
	store store.InviteStore
}

func New(s store.InviteStore) *Gate {
	return &Gate{store: s}
}

// Evaluate loads the record for token, applies Decide and performs the
// conditional consume. Denials surface as ErrNotFound, ErrExpired or
// ErrAlreadyUsed; any other error is a storage failure.
func (g *Gate) Evaluate(ctx context.Context, tok, deviceCookie string, now time.Time) (*Grant, error) {
	rec, err := g.store.GetInvite(ctx, tok)
	if err != nil {
		return nil, err
	}

	decision, err := Decide(rec, deviceCookie, now)
	if err != nil {
		return nil, err
	}

	if decision == DecisionGrantFirst {
		consumedRec, consumed, err := g.store.ConsumeInvite(ctx, tok)
		if err != nil {
			return nil, err
		}
		if consumedRec == nil {
			// Deleted between read and consume.
			return nil, ErrNotFound
		}
		rec = consumedRec
		if !consumed {
			// Lost the first-access race; re-apply the used-record rule.
			if deviceCookie != rec.Token && !rec.AllowMultipleDevices {
				return nil, ErrAlreadyUsed
			}
			decision = DecisionGrantRepeat
		}
	}

	grant := &Grant{
		GuestName:      rec.GuestName,
		CustomGreeting: rec.CustomGreeting,
		Blessings:      rec.Blessings,
	}
	if decision == DecisionGrantFirst {
		grant.Message = MsgFirstVisit
		grant.IssueCookie = true
	} else {
		grant.Message = MsgReturning
	}
	return grant, nil
}
