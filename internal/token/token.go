// Package token mints the opaque identifiers used across the service:
// short URL-safe invite tokens and admin session values.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"

	"github.com/google/uuid"
)

// InviteTokenLength is the width of a generated invite token. Short enough
// for a hand-typed URL, random enough that collisions are negligible.
const InviteTokenLength = 10

// NewInviteToken returns a fresh URL-safe invite token.
func NewInviteToken() string {
	b := make([]byte, InviteTokenLength)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		panic(err.Error()) // rand should never fail
	}
	s := strings.TrimRight(base64.URLEncoding.EncodeToString(b), "=")
	return s[:InviteTokenLength]
}

// NewSessionToken returns an opaque admin session value.
func NewSessionToken() string {
	return uuid.NewString()
}
