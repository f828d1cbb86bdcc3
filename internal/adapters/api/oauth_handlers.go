package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appauth "keygate/internal/application/auth"
)

// Authorize godoc
// @Summary      Start a hosted-UI OAuth flow
// @Description  Returns the provider authorization URL with a server-issued CSRF state
// @Tags         oauth
// @Produce      json
// @Param        redirect_uri      query string true  "Callback URI registered with the provider"
// @Param        identity_provider query string false "Federated identity provider hint"
// @Success      200 {object} appauth.AuthorizeResponse
// @Failure      400 {object} map[string]string
// @Router       /auth/authorize [get]
func (h *Handler) Authorize(c *gin.Context) {
	resp, err := h.service.AuthorizeURL(c.Request.Context(),
		c.Query("redirect_uri"), c.Query("identity_provider"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// OAuthCallback godoc
// @Summary      Complete a hosted-UI OAuth flow
// @Description  Consumes the CSRF state, exchanges the code and establishes a session
// @Tags         oauth
// @Produce      json
// @Param        code         query string true  "Authorization code"
// @Param        redirect_uri query string true  "Callback URI used in the authorization request"
// @Param        state        query string false "CSRF state issued by /auth/authorize"
// @Success      200 {object} appauth.OAuthCallbackResponse
// @Failure      401 {object} map[string]string
// @Router       /auth/callback [get]
func (h *Handler) OAuthCallback(c *gin.Context) {
	resp, err := h.service.OAuthCallback(c.Request.Context(),
		c.Query("code"), c.Query("redirect_uri"), c.Query("state"), sessionMetadata(c))
	if err != nil {
		respondError(c, err)
		return
	}

	setSIDCookie(c, resp.SID, int(h.service.SessionTTL().Seconds()))
	c.JSON(http.StatusOK, resp)
}

// ServiceTokenRequest is a client-credentials grant request.
type ServiceTokenRequest struct {
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
	SubSPN       string `json:"sub_spn" binding:"required"`
	Scope        string `json:"scope"`

	ActorSub   string   `json:"actor_sub"`
	ActorScope string   `json:"actor_scope"`
	ActorRoles []string `json:"actor_roles"`
}

// MintServiceToken godoc
// @Summary      Mint a service-to-service token
// @Description  Client-credentials grant for registered internal services
// @Tags         oauth
// @Accept       json
// @Produce      json
// @Param        request body ServiceTokenRequest true "Service token request"
// @Success      200 {object} auth.ServiceToken
// @Failure      401 {object} map[string]string
// @Router       /auth/svc/token [post]
func (h *Handler) MintServiceToken(c *gin.Context) {
	var req ServiceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.service.MintServiceToken(c.Request.Context(), appauth.ServiceTokenInput{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		SubSPN:       req.SubSPN,
		Scope:        req.Scope,
		ActorSub:     req.ActorSub,
		ActorScope:   req.ActorScope,
		ActorRoles:   req.ActorRoles,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}
