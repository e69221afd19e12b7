package api

import (
	"time"

	"github.com/deninthomas/housewarming/internal/store"
)

type HealthResponse struct {
	Status string `json:"status"`
}

type Error struct {
	Message string `json:"error"`
}

// Blessing is the wire shape of a guest well-wish.
type Blessing struct {
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// InviteView is what a granted guest sees.
type InviteView struct {
	Name           string     `json:"name"`
	CustomGreeting *string    `json:"customGreeting,omitempty"`
	Message        string     `json:"message"`
	Blessings      []Blessing `json:"blessings"`
}

type BlessingRequest struct {
	Token   string `json:"token"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

type BlessingResponse struct {
	Success bool `json:"success"`
}

func toBlessings(bs []store.Blessing) []Blessing {
	out := make([]Blessing, 0, len(bs))
	for _, b := range bs {
		out = append(out, Blessing{Name: b.Name, Message: b.Message, CreatedAt: b.CreatedAt})
	}
	return out
}
