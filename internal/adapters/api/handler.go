package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"keygate/internal/adapters/api/middleware"
	appauth "keygate/internal/application/auth"
	"keygate/internal/domain/auth"
)

// sidCookieName is the HttpOnly cookie carrying the session id.
const sidCookieName = "sid"

// Handler handles HTTP requests for the authentication API
type Handler struct {
	service *appauth.Service
}

// NewHandler creates a new API handler
func NewHandler(service *appauth.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/.well-known/jwks.json", h.GetJWKS)
	r.GET("/health", h.Health)

	api := r.Group("/api/v1/auth")
	{
		api.POST("/session", h.CreateCipherSession)
		api.POST("/login", h.Login)
		api.POST("/refresh", h.Refresh)
		api.POST("/token", h.RefreshWithToken)
		api.POST("/logout", h.Logout)

		api.POST("/forgot-password", h.ForgotPassword)
		api.POST("/confirm-forgot-password", h.ConfirmForgotPassword)
		api.POST("/signup", h.SignUp)
		api.POST("/confirm-signup", h.ConfirmSignUp)
		api.POST("/resend-code", h.ResendConfirmationCode)

		api.GET("/authorize", h.Authorize)
		api.GET("/callback", h.OAuthCallback)

		api.POST("/svc/token", h.MintServiceToken)

		authed := api.Group("", middleware.RequireAuth(h.service))
		{
			authed.GET("/me", h.Me)
		}
	}
}

// Health godoc
// @Summary      Health check
// @Tags         ops
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetJWKS godoc
// @Summary      Published signing keys
// @Description  JSON Web Key Set used to verify locally minted tokens
// @Tags         auth
// @Produce      json
// @Success      200 {object} auth.JWKS
// @Router       /.well-known/jwks.json [get]
func (h *Handler) GetJWKS(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, h.service.JWKS())
}

// respondError maps taxonomy errors onto HTTP statuses. Anything unmapped is
// a 500 with a generic body; internals are logged, never returned.
func respondError(c *gin.Context, err error) {
	if ve, ok := auth.AsValidationError(err); ok {
		status := http.StatusBadRequest
		if ve.Reason == auth.ReasonRateLimited {
			status = http.StatusTooManyRequests
		}
		c.JSON(status, gin.H{"error": ve.Message, "reason": ve.Reason})
		return
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidSession),
		errors.Is(err, auth.ErrSessionExpired),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrUnauthorizedClient),
		errors.Is(err, auth.ErrOAuthStateInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrCipherSession):
		c.JSON(http.StatusBadRequest, gin.H{"error": auth.ErrCipherSession.Error()})
	case errors.Is(err, auth.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrProviderUnavailable),
		errors.Is(err, auth.ErrOAuthClientAuth),
		errors.Is(err, auth.ErrOAuthTokenExchange),
		errors.Is(err, auth.ErrOAuthTokenResponse):
		log.Error().Err(err).Msg("upstream provider failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": "identity provider unavailable"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// sessionMetadata captures client context for the session record.
func sessionMetadata(c *gin.Context) auth.SessionMetadata {
	return auth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// setSIDCookie installs the session cookie. Secure is left to the proxy tier;
// the cookie itself is HttpOnly and SameSite=Lax.
func setSIDCookie(c *gin.Context, sid string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sidCookieName, sid, maxAge, "/", "", false, true)
}

func clearSIDCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sidCookieName, "", -1, "/", "", false, true)
}

// sidFrom resolves the session id from the cookie first, then the request body
// field.
func sidFrom(c *gin.Context, bodySID string) string {
	if sid, err := c.Cookie(sidCookieName); err == nil && sid != "" {
		return sid
	}
	return bodySID
}
