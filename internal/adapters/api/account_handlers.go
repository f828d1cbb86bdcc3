package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"keygate/internal/domain/auth"
)

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Username string `json:"username" binding:"required"`
}

// ForgotPassword godoc
// @Summary      Request a password reset code
// @Description  Always acknowledges; the response does not reveal whether the account exists
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Forgot password request"
// @Success      200 {object} appauth.ForgotPasswordResponse
// @Failure      400 {object} map[string]string
// @Router       /auth/forgot-password [post]
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.ForgotPassword(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmForgotPasswordRequest completes a password reset.
type ConfirmForgotPasswordRequest struct {
	Username    string `json:"username" binding:"required"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ConfirmForgotPassword godoc
// @Summary      Complete a password reset
// @Description  Sets the new password and invalidates the user's live sessions
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        request body ConfirmForgotPasswordRequest true "Confirm forgot password request"
// @Success      200 {object} appauth.ConfirmForgotPasswordResponse
// @Failure      400 {object} map[string]string
// @Router       /auth/confirm-forgot-password [post]
func (h *Handler) ConfirmForgotPassword(c *gin.Context) {
	var req ConfirmForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.ConfirmForgotPassword(c.Request.Context(), req.Username, req.Code, req.NewPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SignUpRequest registers a new account.
type SignUpRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	Email      string `json:"email" binding:"required"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// SignUp godoc
// @Summary      Register a new account
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        request body SignUpRequest true "Sign up request"
// @Success      200 {object} appauth.SignUpResponse
// @Failure      400 {object} map[string]string
// @Router       /auth/signup [post]
func (h *Handler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.SignUp(c.Request.Context(), auth.SignUpInput{
		Username:   req.Username,
		Password:   req.Password,
		Email:      req.Email,
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmSignUpRequest verifies a registration code.
type ConfirmSignUpRequest struct {
	Username string `json:"username" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// ConfirmSignUp godoc
// @Summary      Confirm a new account
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        request body ConfirmSignUpRequest true "Confirm sign up request"
// @Success      200 {object} map[string]any
// @Failure      400 {object} map[string]string
// @Router       /auth/confirm-signup [post]
func (h *Handler) ConfirmSignUp(c *gin.Context) {
	var req ConfirmSignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.ConfirmSignUp(c.Request.Context(), req.Username, req.Code); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Account confirmed"})
}

// ResendConfirmationCode godoc
// @Summary      Resend a confirmation code
// @Description  Always acknowledges; the response does not reveal whether the account exists
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Resend code request"
// @Success      200 {object} appauth.ForgotPasswordResponse
// @Failure      400 {object} map[string]string
// @Router       /auth/resend-code [post]
func (h *Handler) ResendConfirmationCode(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.ResendConfirmationCode(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
