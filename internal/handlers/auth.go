package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"realtime-chat/internal/auth"
	"realtime-chat/internal/media"
	"realtime-chat/internal/middleware"
	"realtime-chat/internal/models"
	"realtime-chat/internal/repositories"
	"realtime-chat/internal/telemetry"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	GenerateToken(userID string) (string, time.Time, error)
	Duration() time.Duration
}

// ResetMailer queues the password reset mail.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, fullName, code string, expiresAt time.Time) error
}

// AuthHandler serves account and session endpoints.
type AuthHandler struct {
	users        repositories.UserRepository
	tokens       TokenIssuer
	uploader     media.Uploader
	mailer       ResetMailer
	audit        *telemetry.AuditEmitter
	cookieSecure bool
	validate     *validator.Validate
	now          func() time.Time
}

func NewAuthHandler(users repositories.UserRepository, tokens TokenIssuer, uploader media.Uploader, mailer ResetMailer, audit *telemetry.AuditEmitter, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		users:        users,
		tokens:       tokens,
		uploader:     uploader,
		mailer:       mailer,
		audit:        audit,
		cookieSecure: cookieSecure,
		validate:     validator.New(),
		now:          time.Now,
	}
}

type signupRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = normalizeEmail(req.Email)

	if req.FullName == "" || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}
	if len(req.Password) < auth.MinPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Password must be at least 6 characters"})
		return
	}
	if h.validate.Var(req.Email, "email") != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid email format"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("hash password failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), req.FullName, req.Email, hash)
	if err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email already exists"})
			return
		}
		log.Printf("create user failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	if !h.startSession(c, user.ID) {
		return
	}
	h.audit.Emit(c.Request.Context(), auditRecord(c, telemetry.ActionSignup, "INFO", user.ID))
	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		log.Printf("lookup user failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	if err != nil || auth.CheckPassword(user.PasswordHash, req.Password) != nil {
		h.audit.Emit(c.Request.Context(), auditRecord(c, telemetry.ActionLoginFailed, "WARN", ""))
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	if !h.startSession(c, user.ID) {
		return
	}
	h.audit.Emit(c.Request.Context(), auditRecord(c, telemetry.ActionLogin, "INFO", user.ID))
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", h.cookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

type updateProfileRequest struct {
	ProfilePic string `json:"profilePic"`
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProfilePic == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Profile pic is required"})
		return
	}

	url, err := h.uploader.Upload(c.Request.Context(), req.ProfilePic)
	if err != nil {
		if isImageError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid image"})
			return
		}
		log.Printf("upload profile pic failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	user, err := h.users.UpdateProfilePic(c.Request.Context(), userID, url)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		log.Printf("update profile pic failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	h.audit.Emit(c.Request.Context(), auditRecord(c, telemetry.ActionProfileUpdated, "INFO", user.ID))
	c.JSON(http.StatusOK, gin.H{"updateUser": user})
}

// CheckAuth returns the caller's account.
func (h *AuthHandler) CheckAuth(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword answers identically whether or not the account exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required"})
		return
	}
	ctx := c.Request.Context()
	const sent = "If that email is registered, a reset code has been sent"

	user, err := h.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, repositories.ErrUserNotFound) {
		c.JSON(http.StatusOK, gin.H{"message": sent})
		return
	}
	if err != nil {
		log.Printf("lookup user failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	code, err := auth.NewResetCode()
	if err != nil {
		log.Printf("generate reset code failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	expiresAt := h.now().Add(auth.ResetCodeTTL)
	if err := h.users.SetResetToken(ctx, user.ID, auth.HashResetCode(code), expiresAt); err != nil {
		log.Printf("store reset token failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	if err := h.mailer.SendPasswordReset(ctx, user.Email, user.FullName, code, expiresAt); err != nil {
		log.Printf("queue reset mail failed user_id=%s: %v", user.ID, err)
		c.JSON(http.StatusOK, gin.H{"message": sent})
		return
	}

	h.audit.Emit(ctx, auditRecord(c, telemetry.ActionResetRequested, "INFO", user.ID))
	c.JSON(http.StatusOK, gin.H{"message": sent})
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Password) < auth.MinPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Password must be at least 6 characters"})
		return
	}

	user, ok := h.userForResetToken(c, req.Email)
	if !ok {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("hash password failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	if err := h.users.ResetPassword(c.Request.Context(), user.ID, hash); err != nil {
		log.Printf("reset password failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	h.audit.Emit(c.Request.Context(), auditRecord(c, telemetry.ActionPasswordReset, "INFO", user.ID))
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
}

// VerifyResetToken checks the code in the path against ?email=.
func (h *AuthHandler) VerifyResetToken(c *gin.Context) {
	if _, ok := h.userForResetToken(c, c.Query("email")); !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// userForResetToken resolves the code only against the named account.
func (h *AuthHandler) userForResetToken(c *gin.Context, email string) (models.User, bool) {
	token := strings.TrimSpace(c.Param("token"))
	email = normalizeEmail(email)
	if token == "" || email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "message": "Invalid or expired reset token"})
		return models.User{}, false
	}

	user, err := h.users.GetByResetToken(c.Request.Context(), email, auth.HashResetCode(token), h.now())
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidResetToken) || errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"valid": false, "message": "Invalid or expired reset token"})
			return models.User{}, false
		}
		log.Printf("lookup reset token failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return models.User{}, false
	}
	return user, true
}

func (h *AuthHandler) currentUser(c *gin.Context) (models.User, bool) {
	user, err := h.users.GetByID(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return models.User{}, false
		}
		log.Printf("lookup user failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return models.User{}, false
	}
	return user, true
}

func (h *AuthHandler) startSession(c *gin.Context, userID string) bool {
	token, _, err := h.tokens.GenerateToken(userID)
	if err != nil {
		log.Printf("issue token failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return false
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, token, int(h.tokens.Duration().Seconds()), "/", "", h.cookieSecure, true)
	return true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterRoutes mounts the auth endpoints. Every route that accepts a
// password or a reset code is throttled by limit.
func (h *AuthHandler) RegisterRoutes(group *gin.RouterGroup, requireAuth, limit gin.HandlerFunc) {
	group.POST("/signup", limit, h.Signup)
	group.POST("/login", limit, h.Login)
	group.POST("/logout", h.Logout)
	group.PUT("/update-profile", requireAuth, h.UpdateProfile)
	group.GET("/check", requireAuth, h.CheckAuth)
	group.POST("/forgot-password", limit, h.ForgotPassword)
	group.POST("/reset-password/:token", limit, h.ResetPassword)
	group.GET("/verify-reset-token/:token", limit, h.VerifyResetToken)
}
