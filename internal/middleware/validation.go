package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SessionValidator reports whether a presented session token is live.
type SessionValidator interface {
	Valid(token string, now time.Time) bool
}

// NewOpenAPIValidator creates a Gin middleware that validates incoming
// requests against the provided OpenAPI 3 spec. Security requirements are
// checked before payloads: an unauthenticated request to a protected route
// is rejected with 401 no matter what its body looks like, any other
// invalid request with 400.
func NewOpenAPIValidator(spec *openapi3.T, sessions SessionValidator) (gin.HandlerFunc, error) {
	// Reason: clear servers so the router matches paths without a server URL prefix
	spec.Servers = nil

	router, err := gorillamux.NewRouter(spec)
	if err != nil {
		return nil, fmt.Errorf("creating openapi router: %w", err)
	}

	return validatorHandler(router, cookieSessionAuth(sessions)), nil
}

// cookieSessionAuth enforces apiKey-in-cookie security schemes against the
// session registry.
func cookieSessionAuth(sessions SessionValidator) openapi3filter.AuthenticationFunc {
	return func(_ context.Context, ai *openapi3filter.AuthenticationInput) error {
		scheme := ai.SecurityScheme
		if scheme == nil || scheme.Type != "apiKey" || scheme.In != "cookie" {
			return fmt.Errorf("unsupported security scheme %q", ai.SecuritySchemeName)
		}
		cookie, err := ai.RequestValidationInput.Request.Cookie(scheme.Name)
		if err != nil || !sessions.Valid(cookie.Value, time.Now().UTC()) {
			return errors.New("missing or invalid admin session")
		}
		return nil
	}
}

func validatorHandler(router routers.Router, authFn openapi3filter.AuthenticationFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		route, pathParams, err := router.FindRoute(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error": "route not found in API specification",
			})
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: authFn,
			},
		}

		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			var secErr *openapi3filter.SecurityRequirementsError
			if errors.As(err, &secErr) {
				log.WithField("path", c.Request.URL.Path).Warn("request failed security requirements")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Unauthorized",
				})
				return
			}

			log.WithError(err).WithField("path", c.Request.URL.Path).Warn("request validation failed")

			msg := sanitizeValidationError(err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": msg,
			})
			return
		}

		c.Next()
	}
}

func sanitizeValidationError(err error) string {
	msg := err.Error()
	// Reason: kin-openapi wraps errors verbosely; trim to the useful part
	if idx := strings.Index(msg, "Schema:"); idx >= 0 {
		msg = strings.TrimSpace(msg[idx:])
	}
	return msg
}
