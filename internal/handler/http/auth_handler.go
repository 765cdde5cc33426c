package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/config"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/handler/http/middleware"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/service"
)

// AuthHandler exposes registration, login, refresh and logout.
type AuthHandler struct {
	authService *service.AuthService
	cfg         *config.Config
	logger      *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authService *service.AuthService, cfg *config.Config, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
		logger:      logger.Named("auth_handler"),
	}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req, requestMeta(c))
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusCreated, gin.H{"user": user.ToResponse()})
}

// Login handles POST /api/v1/auth/login. The requested mode decides whether
// the response sets a session cookie, returns a token pair, or both.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req, requestMeta(c))
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	if result.CookieSessionID != nil {
		h.setSessionCookie(c, *result.CookieSessionID)
	}

	data := gin.H{
		"mode":    result.Mode,
		"user":    result.User.ToResponse(),
		"session": result.Session.ToResponse(),
	}
	if result.Tokens != nil {
		data["tokens"] = result.Tokens
	}
	RespondWithData(c, http.StatusOK, data)
}

// HybridLogin handles POST /api/v1/auth/hybrid-login: a login pinned to
// hybrid mode regardless of the mode field in the body.
func (h *AuthHandler) HybridLogin(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}
	req.Mode = models.AuthModeHybrid

	result, err := h.authService.Login(c.Request.Context(), &req, requestMeta(c))
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	if result.CookieSessionID != nil {
		h.setSessionCookie(c, *result.CookieSessionID)
	}
	RespondWithData(c, http.StatusOK, gin.H{
		"mode":    result.Mode,
		"user":    result.User.ToResponse(),
		"session": result.Session.ToResponse(),
		"tokens":  result.Tokens,
	})
}

// Refresh handles POST /api/v1/auth/refresh-token. An expired access token
// in the Authorization header is accepted and tied back to its session.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), &req, bearerToken(c))
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"tokens": pair})
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondWithErrors(c, http.StatusUnauthorized, APIError{Code: "unauthorized", Message: "authentication required"})
		return
	}

	var req models.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondWithValidationError(c, err)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), userID, middleware.SessionID(c), &req); err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	h.clearSessionCookie(c)
	RespondWithMessage(c, http.StatusOK, "logged out")
}

// BeginTOTP handles POST /api/v1/auth/totp/enable.
func (h *AuthHandler) BeginTOTP(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondWithErrors(c, http.StatusUnauthorized, APIError{Code: "unauthorized", Message: "authentication required"})
		return
	}

	secret, url, err := h.authService.BeginTOTPEnrollment(c.Request.Context(), userID)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"secret": secret, "otpauth_url": url})
}

// ConfirmTOTP handles POST /api/v1/auth/totp/verify.
func (h *AuthHandler) ConfirmTOTP(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondWithErrors(c, http.StatusUnauthorized, APIError{Code: "unauthorized", Message: "authentication required"})
		return
	}

	var req struct {
		Code string `json:"code" binding:"required,len=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	if err := h.authService.ConfirmTOTPEnrollment(c.Request.Context(), userID, req.Code); err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithMessage(c, http.StatusOK, "second factor enabled")
}

// DisableTOTP handles POST /api/v1/auth/totp/disable.
func (h *AuthHandler) DisableTOTP(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondWithErrors(c, http.StatusUnauthorized, APIError{Code: "unauthorized", Message: "authentication required"})
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	if err := h.authService.DisableTOTP(c.Request.Context(), userID, req.Password); err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithMessage(c, http.StatusOK, "second factor disabled")
}

// RequestEmailVerification handles POST /api/v1/auth/verify-email/request.
func (h *AuthHandler) RequestEmailVerification(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondWithErrors(c, http.StatusUnauthorized, APIError{Code: "unauthorized", Message: "authentication required"})
		return
	}

	token, err := h.authService.IssueEmailVerification(c.Request.Context(), userID)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	// Delivery is out of band; the token is returned here for the caller
	// that owns the email channel.
	RespondWithData(c, http.StatusOK, gin.H{"verification_token": token})
}

// ConfirmEmailVerification handles POST /api/v1/auth/verify-email.
func (h *AuthHandler) ConfirmEmailVerification(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	if err := h.authService.ConfirmEmailVerification(c.Request.Context(), req.Token); err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithMessage(c, http.StatusOK, "email verified")
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, sessionID string) {
	maxAge := int(h.cfg.Sessions.Timeout.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, sessionID, maxAge, "/",
		h.cfg.Server.CookieDomain, h.cfg.Server.CookieSecure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, "", -1, "/",
		h.cfg.Server.CookieDomain, h.cfg.Server.CookieSecure, true)
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
