package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ditechted/healthlink/internal/domain"
	"github.com/ditechted/healthlink/internal/log"
	"github.com/ditechted/healthlink/internal/queue"
	"github.com/ditechted/healthlink/internal/repo"
	"github.com/ditechted/healthlink/internal/security"
)

const codeTTL = time.Hour

type registerReq struct {
	FirstName       string `json:"firstName" binding:"required,min=3,max=30"`
	LastName        string `json:"lastName" binding:"required,min=3,max=30"`
	Email           string `json:"email" binding:"required,email"`
	Phone           string `json:"phone" binding:"required,len=10"`
	Password        string `json:"password" binding:"required,min=8,max=30"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body registerReq true "registration"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var in registerReq
	if err := c.ShouldBindJSON(&in); err != nil {
		failValidation(c, fieldMessages(err))
		return
	}
	ctx := c.Request.Context()

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if existing, err := h.Store.FindUserByEmail(ctx, email); err != nil {
		serverError(c, err, "register: lookup email")
		return
	} else if existing != nil {
		fail(c, http.StatusBadRequest, "User with this email already exists.")
		return
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		serverError(c, err, "register: hash password")
		return
	}
	code, err := security.NewNumericCode(6)
	if err != nil {
		serverError(c, err, "register: verification code")
		return
	}
	expiry := time.Now().Add(codeTTL).UTC()

	u := &domain.User{
		FirstName:              strings.TrimSpace(in.FirstName),
		LastName:               strings.TrimSpace(in.LastName),
		Email:                  email,
		Phone:                  in.Phone,
		PasswordHash:           hash,
		Language:               "English",
		Role:                   domain.RoleUser,
		VerificationCode:       code,
		VerificationCodeExpiry: &expiry,
	}
	if err := h.Store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			fail(c, http.StatusBadRequest, "User with this email already exists.")
			return
		}
		serverError(c, err, "register: create user")
		return
	}

	// profile creation failure is logged, never fatal to registration
	if p, err := h.Store.CreateProfile(ctx, u.ID); err != nil {
		log.WithDD(ctx, log.L()).Error("register: create profile",
			zap.String("user_id", u.ID.Hex()), zap.Error(err))
	} else if err := h.Store.SetUserProfileID(ctx, u.ID, p.ID); err != nil {
		log.WithDD(ctx, log.L()).Error("register: link profile", zap.Error(err))
	} else {
		u.ProfileID = p.ID
	}

	h.publish(c, queue.KeyUserRegistered, queue.UserRegistered{
		UserID:           u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		VerificationCode: code,
	})

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully.",
		"user":    u,
	})
}

type verifyEmailReq struct {
	Code string `json:"code" binding:"required,len=6"`
}

// VerifyEmail godoc
// @Summary Verify email with the 6-digit code
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body verifyEmailReq true "code"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /auth/verify-email [post]
func (h *Handler) VerifyEmail(c *gin.Context) {
	var in verifyEmailReq
	if err := c.ShouldBindJSON(&in); err != nil {
		failValidation(c, fieldMessages(err))
		return
	}
	u, err := h.Store.ConsumeVerificationCode(c.Request.Context(), in.Code)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusBadRequest, "Invalid or expired verification code")
			return
		}
		serverError(c, err, "verify-email")
		return
	}

	h.publish(c, queue.KeyUserVerified, queue.UserVerified{
		UserID: u.ID, Email: u.Email, FirstName: u.FirstName,
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email verified successfully."})
}

type loginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginReq true "credentials"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		failValidation(c, fieldMessages(err))
		return
	}
	ctx := c.Request.Context()

	// one uniform message for unknown email and wrong password; no account
	// enumeration through error text
	u, err := h.Store.FindUserByEmail(ctx, in.Email)
	if err != nil {
		serverError(c, err, "login: lookup email")
		return
	}
	if u == nil || u.PasswordHash == "" || !security.CheckPassword(u.PasswordHash, in.Password) {
		fail(c, http.StatusBadRequest, "Invalid credentials")
		return
	}

	token, err := security.MakeToken(h.Cfg.JWTSecret, u.ID.Hex(), string(u.Role), h.TokenTTL)
	if err != nil {
		serverError(c, err, "login: sign token")
		return
	}
	h.setAuthCookie(c, token)

	if err := h.Store.TouchLastLogin(ctx, u.ID); err != nil {
		log.WithDD(ctx, log.L()).Warn("login: touch last login", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"user":    u,
		"token":   token,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	h.clearAuthCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logout successful"})
}

type forgetPasswordReq struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgetPassword issues a reset code and emails a reset link.
func (h *Handler) ForgetPassword(c *gin.Context) {
	var in forgetPasswordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		failValidation(c, fieldMessages(err))
		return
	}
	ctx := c.Request.Context()

	u, err := h.Store.FindUserByEmail(ctx, in.Email)
	if err != nil {
		serverError(c, err, "forget-password: lookup")
		return
	}
	if u == nil {
		fail(c, http.StatusBadRequest, "User not found")
		return
	}

	code, err := security.NewNumericCode(6)
	if err != nil {
		serverError(c, err, "forget-password: code")
		return
	}
	// reissuing overwrites any prior code
	if err := h.Store.SetResetCode(ctx, u.ID, code, time.Now().Add(codeTTL)); err != nil {
		serverError(c, err, "forget-password: save code")
		return
	}

	h.publish(c, queue.KeyPasswordResetReq, queue.PasswordResetRequested{
		UserID:   u.ID,
		Email:    u.Email,
		ResetURL: fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(h.Cfg.ClientURL, "/"), code),
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset email sent"})
}

type resetPasswordReq struct {
	NewPassword string `json:"newPassword" binding:"required,min=8,max=30"`
}

// ResetPassword consumes the code from the URL and swaps the password.
func (h *Handler) ResetPassword(c *gin.Context) {
	var in resetPasswordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		failValidation(c, fieldMessages(err))
		return
	}
	hash, err := security.HashPassword(in.NewPassword)
	if err != nil {
		serverError(c, err, "reset-password: hash")
		return
	}
	u, err := h.Store.ConsumeResetCode(c.Request.Context(), c.Param("resetToken"), hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusBadRequest, "Invalid or expired reset token")
			return
		}
		serverError(c, err, "reset-password")
		return
	}

	h.publish(c, queue.KeyPasswordResetDone, queue.PasswordResetDone{UserID: u.ID, Email: u.Email})

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successful. A confirmation email has been sent."})
}

// GetUser returns an identity by id (authenticated surface).
func (h *Handler) GetUser(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	u, err := h.Store.FindUserByID(c.Request.Context(), id)
	if err != nil {
		serverError(c, err, "get user")
		return
	}
	if u == nil {
		fail(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

type updateRoleReq struct {
	Role domain.Role `json:"role" binding:"required"`
}

// UpdateUserRole is admin-only; the role must be in the closed enum.
func (h *Handler) UpdateUserRole(c *gin.Context) {
	var in updateRoleReq
	if err := c.ShouldBindJSON(&in); err != nil {
		failValidation(c, fieldMessages(err))
		return
	}
	if !in.Role.Valid() {
		fail(c, http.StatusBadRequest, "Invalid role")
		return
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	if err := h.Store.UpdateUserRole(c.Request.Context(), id, in.Role); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, "User not found")
			return
		}
		serverError(c, err, "update role")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Role updated successfully"})
}

// DeleteUser removes an identity and cascades to its profile.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	if err := h.Store.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, "User not found")
			return
		}
		serverError(c, err, "delete user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted successfully"})
}
