package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chartcloud/internal/domain"
	"chartcloud/internal/oauth"
	"chartcloud/internal/service"
)

// AuthHandler mantiene dependencias para los endpoints de autenticación.
type AuthHandler struct {
	logger  *zap.Logger
	authSvc *service.AuthService
	github  oauth.Provider
	google  oauth.Provider
}

func NewAuthHandler(logger *zap.Logger, authSvc *service.AuthService, github, google oauth.Provider) *AuthHandler {
	return &AuthHandler{
		logger:  logger,
		authSvc: authSvc,
		github:  github,
		google:  google,
	}
}

// Signup maneja POST /auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Validation failed.", "errors": bindingFieldErrors(err)})
		return
	}

	err := h.authSvc.Signup(c.Request.Context(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Validation failed.", "errors": verr.Fields})
		case errors.Is(err, service.ErrDuplicateIdentity):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "User already exists"})
		default:
			h.logger.Error("signup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Your account has been created successfully"})
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Validation failed.", "errors": bindingFieldErrors(err)})
		return
	}

	account, pair, err := h.authSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Validation failed.", "errors": verr.Fields})
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials!"})
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Logged in successfully",
		"verified": account.Verified,
		"token": gin.H{
			"access":  pair.Access,
			"refresh": pair.Refresh,
		},
	})
}

// SendVerificationCode maneja PATCH /auth/send-verification-code.
func (h *AuthHandler) SendVerificationCode(c *gin.Context) {
	ident, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
		return
	}

	err := h.authSvc.SendVerificationCode(c.Request.Context(), ident)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWrongTokenClass):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Access token required"})
		case errors.Is(err, service.ErrAccountNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "User does not exist!"})
		case errors.Is(err, service.ErrAlreadyVerified):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "You are already verified"})
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Too many code requests, try again later"})
		case errors.Is(err, service.ErrDeliveryFailed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Something went wrong sending code"})
		default:
			h.logger.Error("send verification code failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Code sent!"})
}

// VerifyVerificationCode maneja PATCH /auth/verify-verification-code.
func (h *AuthHandler) VerifyVerificationCode(c *gin.Context) {
	ident, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
		return
	}

	var req struct {
		Code string `json:"code" binding:"required,len=6,numeric"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Validation failed.", "errors": bindingFieldErrors(err)})
		return
	}

	err := h.authSvc.VerifyCode(c.Request.Context(), ident, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWrongTokenClass):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Access token required"})
		case errors.Is(err, service.ErrAccountNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "User does not exist!"})
		case errors.Is(err, service.ErrAlreadyVerified):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "You are already verified"})
		case errors.Is(err, service.ErrCodeNotRequested):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Request for a verification code and then hit this route."})
		case errors.Is(err, service.ErrCodeExpired):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Code has expired"})
		case errors.Is(err, service.ErrCodeInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid code!"})
		default:
			h.logger.Error("verify verification code failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Your account has been verified!"})
}

// Refresh maneja POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	ident, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
		return
	}

	access, err := h.authSvc.Refresh(c.Request.Context(), ident)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWrongTokenClass):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Refresh token required"})
		case errors.Is(err, service.ErrTokenRevoked):
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Refresh token is revoked"})
		default:
			h.logger.Error("refresh failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Access token refreshed successfully",
		"token": gin.H{
			"access": access,
		},
	})
}

// Logout maneja POST /auth/logout. Un logout repetido es éxito idempotente.
func (h *AuthHandler) Logout(c *gin.Context) {
	ident, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
		return
	}

	already, err := h.authSvc.Logout(c.Request.Context(), ident)
	if err != nil {
		if errors.Is(err, service.ErrWrongTokenClass) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Refresh token required"})
			return
		}
		h.logger.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	message := "Logged out successfully"
	if already {
		message = "Already logged out"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// GithubLogin maneja GET /auth/login/github.
func (h *AuthHandler) GithubLogin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Redirect URL generated successfully",
		"url":     h.github.AuthURL(),
	})
}

// GithubCallback maneja POST /auth/login/github/callback.
func (h *AuthHandler) GithubCallback(c *gin.Context) {
	h.federatedCallback(c, h.github, domain.AccountTypeGithub)
}

// GoogleLogin maneja GET /auth/login/google.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Redirect URL generated successfully",
		"url":     h.google.AuthURL(),
	})
}

// GoogleCallback maneja POST /auth/login/google/callback.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	h.federatedCallback(c, h.google, domain.AccountTypeGoogle)
}

func (h *AuthHandler) federatedCallback(c *gin.Context, provider oauth.Provider, accountType string) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No authorization code provided"})
		return
	}

	_, pair, err := h.authSvc.FederatedLogin(c.Request.Context(), provider, accountType, code)
	if err != nil {
		if errors.Is(err, service.ErrAccountTypeConflict) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "This email is already used to sign up. You can't use federated login with it.",
			})
			return
		}
		h.logger.Error("federated callback failed", zap.String("account_type", accountType), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Federated authentication failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged in successfully",
		"token": gin.H{
			"access":  pair.Access,
			"refresh": pair.Refresh,
		},
	})
}
