package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"keygate/internal/adapters/api/middleware"
	appauth "keygate/internal/application/auth"
	"keygate/internal/domain/auth"
)

// CreateCipherSession godoc
// @Summary      Start an encrypted-password login
// @Description  Generates an ephemeral P-256 key pair and returns the server public key as a JWK
// @Tags         auth
// @Produce      json
// @Success      200 {object} appauth.CipherSessionResponse
// @Failure      500 {object} map[string]string
// @Router       /auth/session [post]
func (h *Handler) CreateCipherSession(c *gin.Context) {
	resp, err := h.service.CreateCipherSession(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LoginRequest carries either a plaintext password or an encrypted envelope.
type LoginRequest struct {
	Username string               `json:"username" binding:"required"`
	Password string               `json:"password"`
	Envelope *auth.CipherEnvelope `json:"envelope"`
}

// Login godoc
// @Summary      Password login
// @Description  Authenticates against the identity provider and establishes a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login request"
// @Success      200 {object} appauth.LoginResponse
// @Failure      400 {object} map[string]string
// @Failure      401 {object} map[string]string
// @Router       /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.Login(c.Request.Context(), appauth.LoginInput{
		Username: req.Username,
		Password: req.Password,
		Envelope: req.Envelope,
		Meta:     sessionMetadata(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	setSIDCookie(c, resp.SID, int(h.service.SessionTTL().Seconds()))
	c.JSON(http.StatusOK, resp)
}

// RefreshRequest addresses the session when no cookie is present.
type RefreshRequest struct {
	SID string `json:"sid"`
}

// Refresh godoc
// @Summary      Refresh an access token
// @Description  Mints a fresh access token for a live session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200 {object} appauth.TokenResponse
// @Failure      401 {object} map[string]string
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	_ = c.ShouldBindJSON(&req)

	sid := sidFrom(c, req.SID)
	if sid == "" {
		respondError(c, auth.ErrInvalidSession)
		return
	}

	resp, err := h.service.RefreshSession(c.Request.Context(), sid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RefreshTokenRequest carries a provider refresh token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshWithToken godoc
// @Summary      Refresh-token grant
// @Description  Exchanges a provider refresh token for a new provider access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshTokenRequest true "Refresh token request"
// @Success      200 {object} appauth.TokenResponse
// @Failure      401 {object} map[string]string
// @Router       /auth/token [post]
func (h *Handler) RefreshWithToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.RefreshWithToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LogoutRequest addresses the session(s) to terminate.
type LogoutRequest struct {
	SID         string `json:"sid"`
	AccessToken string `json:"access_token"`
	Global      bool   `json:"global"`
}

// Logout godoc
// @Summary      Logout
// @Description  Terminates the session; with global=true, every session of the user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200 {object} appauth.LogoutResponse
// @Failure      401 {object} map[string]string
// @Router       /auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	var req LogoutRequest
	_ = c.ShouldBindJSON(&req)

	resp, err := h.service.Logout(c.Request.Context(), appauth.LogoutInput{
		SID:         sidFrom(c, req.SID),
		AccessToken: req.AccessToken,
		Global:      req.Global,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	clearSIDCookie(c)
	c.JSON(http.StatusOK, resp)
}

// Me godoc
// @Summary      Current principal
// @Description  Returns the verified identity behind the bearer token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} appauth.Principal
// @Failure      401 {object} map[string]string
// @Router       /auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, principal)
}
