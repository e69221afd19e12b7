package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/deninthomas/housewarming/internal/store"
	"github.com/deninthomas/housewarming/internal/token"
)

// CookieName is the admin session cookie.
const CookieName = "admin_token"

// AdminStore defines the store operations needed by the admin handler.
type AdminStore interface {
	CreateInvite(ctx context.Context, rec store.Invite) error
	ListInvites(ctx context.Context) ([]store.Invite, error)
	SetMultiDevice(ctx context.Context, token string, allow bool) (*store.Invite, error)
	DeleteInvite(ctx context.Context, token string) (bool, error)
}

type Error struct {
	Message string `json:"error"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type LoginRequest struct {
	Password string `json:"password"`
}

type GenerateRequest struct {
	GuestName            string `json:"guestName"`
	CustomGreeting       string `json:"customGreeting"`
	AllowMultipleDevices bool   `json:"allowMultipleDevices"`
}

type GenerateResponse struct {
	Token     string `json:"token"`
	GuestName string `json:"guestName"`
}

type ToggleRequest struct {
	Allow *bool `json:"allow"`
}

type ToggleResponse struct {
	Success              bool `json:"success"`
	AllowMultipleDevices bool `json:"allowMultipleDevices"`
}

// Handler serves the admin endpoints, gated by the shared-password login.
type Handler struct {
	store        AdminStore
	sessions     *Sessions
	password     string
	inviteExpiry time.Time
}

func NewHandler(s AdminStore, sessions *Sessions, password string, inviteExpiry time.Time) *Handler {
	return &Handler{store: s, sessions: sessions, password: password, inviteExpiry: inviteExpiry}
}

func RegisterHandlers(r gin.IRouter, h *Handler) {
	r.POST("/admin/login", h.PostLogin)

	auth := h.RequireAdmin()
	r.POST("/admin/logout", auth, h.PostLogout)
	r.POST("/invite/generate", auth, h.PostGenerate)
	r.GET("/admin/invites", auth, h.GetInvites)
	r.PUT("/admin/invite/:token/toggle-multidevice", auth, h.PutToggleMultiDevice)
	r.DELETE("/admin/invite/:token/delete", auth, h.DeleteInvite)
}

// RequireAdmin aborts with 401 unless the request carries a live admin
// session cookie. Runs before any payload handling.
func (h *Handler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, err := c.Cookie(CookieName)
		if err != nil || !h.sessions.Valid(tok, time.Now().UTC()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Error{Message: "Unauthorized"})
			return
		}
		c.Next()
	}
}

func (h *Handler) PostLogin(c *gin.Context) {
	var body LoginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Error{Message: "invalid request body"})
		return
	}

	// Reason: an unset password must never grant access
	if h.password == "" ||
		subtle.ConstantTimeCompare([]byte(body.Password), []byte(h.password)) != 1 {
		log.Warn("admin login rejected")
		c.JSON(http.StatusUnauthorized, Error{Message: "Invalid password"})
		return
	}

	tok := h.sessions.Issue(time.Now().UTC())
	c.SetCookie(CookieName, tok, int(SessionTTL.Seconds()), "/", "", false, true)

	log.Info("admin logged in")
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (h *Handler) PostLogout(c *gin.Context) {
	if tok, err := c.Cookie(CookieName); err == nil {
		h.sessions.Revoke(tok)
	}
	c.SetCookie(CookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (h *Handler) PostGenerate(c *gin.Context) {
	var body GenerateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Error{Message: "invalid request body"})
		return
	}
	if body.GuestName == "" {
		c.JSON(http.StatusBadRequest, Error{Message: "Guest name required"})
		return
	}

	expiresAt := h.inviteExpiry
	rec := store.Invite{
		Token:                token.NewInviteToken(),
		GuestName:            body.GuestName,
		CustomGreeting:       body.CustomGreeting,
		AllowMultipleDevices: body.AllowMultipleDevices,
		CreatedAt:            time.Now().UTC(),
		ExpiresAt:            &expiresAt,
		Blessings:            []store.Blessing{},
	}

	if err := h.store.CreateInvite(c.Request.Context(), rec); err != nil {
		if errors.Is(err, store.ErrTokenExists) {
			// 10 random url-safe chars; a collision means something is broken.
			log.WithField("token", rec.Token).Error("generated token collided")
		} else {
			log.WithError(err).Error("failed to create invite")
		}
		c.JSON(http.StatusInternalServerError, Error{Message: "Internal server error"})
		return
	}

	log.WithFields(log.Fields{"token": rec.Token, "guest": rec.GuestName}).Info("invite generated")
	c.JSON(http.StatusOK, GenerateResponse{Token: rec.Token, GuestName: rec.GuestName})
}

func (h *Handler) GetInvites(c *gin.Context) {
	invites, err := h.store.ListInvites(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("failed to list invites")
		c.JSON(http.StatusInternalServerError, Error{Message: "Internal server error"})
		return
	}
	if invites == nil {
		invites = []store.Invite{}
	}

	c.JSON(http.StatusOK, invites)
}

func (h *Handler) PutToggleMultiDevice(c *gin.Context) {
	tok := c.Param("token")
	logger := log.WithField("token", tok)

	var body ToggleRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Allow == nil {
		c.JSON(http.StatusBadRequest, Error{Message: "allow is required"})
		return
	}

	rec, err := h.store.SetMultiDevice(c.Request.Context(), tok, *body.Allow)
	if err != nil {
		logger.WithError(err).Error("failed to toggle multi-device")
		c.JSON(http.StatusInternalServerError, Error{Message: "Internal server error"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, Error{Message: "Invite not found"})
		return
	}

	logger.WithField("allow", rec.AllowMultipleDevices).Info("multi-device toggled")
	c.JSON(http.StatusOK, ToggleResponse{Success: true, AllowMultipleDevices: rec.AllowMultipleDevices})
}

func (h *Handler) DeleteInvite(c *gin.Context) {
	tok := c.Param("token")

	existed, err := h.store.DeleteInvite(c.Request.Context(), tok)
	if err != nil {
		log.WithError(err).WithField("token", tok).Error("failed to delete invite")
		c.JSON(http.StatusInternalServerError, Error{Message: "Internal server error"})
		return
	}
	if !existed {
		c.JSON(http.StatusNotFound, Error{Message: "Invite not found"})
		return
	}

	log.WithField("token", tok).Info("invite deleted")
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
