package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/deninthomas/housewarming/internal/gate"
	"github.com/deninthomas/housewarming/internal/store"
)

// DeviceCookieName is the cookie proving prior legitimate access to a token.
const DeviceCookieName = "invite_token"

// Handler serves the guest-facing endpoints.
type Handler struct {
	gate  *gate.Gate
	store store.InviteStore
}

func NewHandler(g *gate.Gate, s store.InviteStore) *Handler {
	return &Handler{gate: g, store: s}
}

func RegisterHandlers(r gin.IRouter, h *Handler) {
	r.GET("/health", h.GetHealth)
	r.GET("/invite/:token", h.GetInvite)
	r.POST("/blessing", h.PostBlessing)
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) GetInvite(c *gin.Context) {
	tok := c.Param("token")
	logger := log.WithField("token", tok)

	deviceCookie, _ := c.Cookie(DeviceCookieName)

	grant, err := h.gate.Evaluate(c.Request.Context(), tok, deviceCookie, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, gate.ErrNotFound):
			c.JSON(http.StatusForbidden, Error{Message: "Token not found"})
		case errors.Is(err, gate.ErrExpired):
			logger.Info("invite expired")
			c.JSON(http.StatusForbidden, Error{Message: "Token expired"})
		case errors.Is(err, gate.ErrAlreadyUsed):
			logger.Info("invite already used")
			c.JSON(http.StatusForbidden, Error{Message: "Token already used"})
		default:
			logger.WithError(err).Error("failed to evaluate invite")
			c.JSON(http.StatusInternalServerError, Error{Message: "Internal server error"})
		}
		return
	}

	if grant.IssueCookie {
		c.SetCookie(DeviceCookieName, tok, int(gate.DeviceCookieTTL.Seconds()), "/", "", false, true)
		logger.Info("invite consumed")
	} else {
		logger.Info("invite revisited")
	}

	c.JSON(http.StatusOK, grantToView(grant))
}

// PostBlessing appends a well-wish to an invite. Deliberately does not
// re-check expiry or consumption: the token was gated when the invitation
// page loaded, and late blessings after expiry are accepted.
func (h *Handler) PostBlessing(c *gin.Context) {
	var body BlessingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Error{Message: "invalid request body"})
		return
	}
	if body.Token == "" || body.Name == "" || body.Message == "" {
		c.JSON(http.StatusBadRequest, Error{Message: "token, name and message are required"})
		return
	}

	logger := log.WithField("token", body.Token)

	rec, err := h.store.AppendBlessing(c.Request.Context(), body.Token, body.Name, body.Message, time.Now().UTC())
	if err != nil {
		logger.WithError(err).Error("failed to append blessing")
		c.JSON(http.StatusInternalServerError, Error{Message: "Internal server error"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, Error{Message: "Invite not found"})
		return
	}

	logger.WithField("blessings", len(rec.Blessings)).Info("blessing added")
	c.JSON(http.StatusOK, BlessingResponse{Success: true})
}

func grantToView(g *gate.Grant) InviteView {
	view := InviteView{
		Name:      g.GuestName,
		Message:   g.Message,
		Blessings: toBlessings(g.Blessings),
	}
	if g.CustomGreeting != "" {
		view.CustomGreeting = &g.CustomGreeting
	}
	return view
}
