package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"booking-api/internal/service"
)

// AccountHandler mantiene dependencias para endpoints de cuentas y sesión.
type AccountHandler struct {
	logger   *zap.Logger
	accounts *service.AccountService
	sessions *service.SessionService
}

func NewAccountHandler(logger *zap.Logger, accounts *service.AccountService, sessions *service.SessionService) *AccountHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountHandler{
		logger:   logger,
		accounts: accounts,
		sessions: sessions,
	}
}

// Register maneja POST /register.
func (h *AccountHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "register", err)
		return
	}
	account, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, "register", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":   "registration successful, please verify your email",
		"accountId": account.ID,
	})
}

// Login maneja POST /login.
func (h *AccountHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "login", err)
		return
	}
	account, pair, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, "login", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account":          account,
		"accessToken":      pair.AccessToken,
		"refreshToken":     pair.RefreshToken,
		"accessExpiresAt":  pair.AccessExpiresAt,
		"refreshExpiresAt": pair.RefreshExpiresAt,
	})
}

// RefreshToken maneja POST /refresh-token.
func (h *AccountHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, "refresh", service.ErrTokenInvalid)
		return
	}
	access, exp, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, h.logger, "refresh", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access, "accessExpiresAt": exp})
}

// Logout maneja POST /logout. Responde 200 aunque el token no exista.
func (h *AccountHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = c.ShouldBindJSON(&req)
	if err := h.sessions.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		writeError(c, h.logger, "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// VerifyEmail maneja GET /verify-email/:token.
func (h *AccountHandler) VerifyEmail(c *gin.Context) {
	if _, err := h.accounts.VerifyEmail(c.Request.Context(), c.Param("token")); err != nil {
		writeError(c, h.logger, "verify email", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email verified successfully"})
}

// ResendVerification maneja POST /resend-verification.
func (h *AccountHandler) ResendVerification(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "resend verification", err)
		return
	}
	if err := h.accounts.ResendVerification(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.logger, "resend verification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification email sent"})
}

// ForgotPassword maneja POST /forgot-password.
func (h *AccountHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "forgot password", err)
		return
	}
	if err := h.accounts.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.logger, "forgot password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password reset email sent"})
}

// ResetPassword maneja POST /reset-password/:token.
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "reset password", err)
		return
	}
	if err := h.accounts.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		writeError(c, h.logger, "reset password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password reset successful"})
}

// Profile maneja GET /profile.
func (h *AccountHandler) Profile(c *gin.Context) {
	claims, _ := GetAuthClaims(c)
	account, err := h.accounts.Get(c.Request.Context(), claims.AccountID())
	if err != nil {
		writeError(c, h.logger, "profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

// ListAccounts maneja GET /users.
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.accounts.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "list accounts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// GetAccount maneja GET /users/:id.
func (h *AccountHandler) GetAccount(c *gin.Context) {
	account, err := h.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "get account", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

// UpdateAccount maneja PUT /users/:id.
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	var req service.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "update account", err)
		return
	}
	claims, _ := GetAuthClaims(c)
	account, err := h.accounts.UpdateProfile(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, "update account", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

// ChangePassword maneja PUT /users/:id/password. Solo el dueño.
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	claims, _ := GetAuthClaims(c)
	id := c.Param("id")
	if claims.AccountID() != id {
		writeError(c, h.logger, "change password", service.ErrAccessDenied)
		return
	}
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "change password", err)
		return
	}
	if err := h.accounts.SetPassword(c.Request.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, h.logger, "change password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// DeleteAccount maneja DELETE /users/:id.
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	if err := h.accounts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, "delete account", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}
