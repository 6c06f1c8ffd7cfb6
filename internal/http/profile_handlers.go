package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ditechted/healthlink/internal/domain"
	"github.com/ditechted/healthlink/internal/repo"
)

// CreateProfile exists for clients that call it explicitly; registration
// already provisions one, so this is effectively a fetch-or-create.
func (h *Handler) CreateProfile(c *gin.Context) {
	u := currentUser(c)
	p, err := h.Store.CreateProfile(c.Request.Context(), u.ID)
	if err != nil {
		serverError(c, err, "create profile")
		return
	}
	if err := h.Store.SetUserProfileID(c.Request.Context(), u.ID, p.ID); err != nil {
		serverError(c, err, "create profile: link")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "profile": p})
}

func (h *Handler) GetMyProfile(c *gin.Context) {
	u := currentUser(c)
	p, err := h.Store.FindProfileByUser(c.Request.Context(), u.ID)
	if err != nil {
		serverError(c, err, "get my profile")
		return
	}
	if p == nil {
		fail(c, http.StatusNotFound, "Profile not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": p, "user": u})
}

// UpdateProfile applies the allow-listed field set to the caller's own
// profile. Verification state never passes through here.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var in repo.ProfileUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		failValidation(c, fieldMessages(err))
		return
	}
	u := currentUser(c)
	p, err := h.Store.UpdateProfile(c.Request.Context(), u.ID, in)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, "Profile not found")
			return
		}
		serverError(c, err, "update profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile updated successfully", "profile": p})
}

func (h *Handler) DeleteProfile(c *gin.Context) {
	u := currentUser(c)
	if err := h.Store.DeleteProfileByUser(c.Request.Context(), u.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, "Profile not found")
			return
		}
		serverError(c, err, "delete profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile deleted successfully"})
}

func (h *Handler) GetProfileByID(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid profile ID format")
		return
	}
	p, err := h.Store.FindProfileByID(c.Request.Context(), id)
	if err != nil {
		serverError(c, err, "get profile")
		return
	}
	if p == nil {
		fail(c, http.StatusNotFound, "Profile not found")
		return
	}
	if !h.profileVisible(c, p) {
		fail(c, http.StatusForbidden, "This profile is private")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": p})
}

func (h *Handler) GetProfileByUserID(c *gin.Context) {
	uid, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	p, err := h.Store.FindProfileByUser(c.Request.Context(), uid)
	if err != nil {
		serverError(c, err, "get profile by user")
		return
	}
	if p == nil {
		fail(c, http.StatusNotFound, "Profile not found")
		return
	}
	if !h.profileVisible(c, p) {
		fail(c, http.StatusForbidden, "This profile is private")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": p})
}

func (h *Handler) profileVisible(c *gin.Context, p *domain.Profile) bool {
	if p.Privacy.ProfileVisibility != "private" {
		return true
	}
	u := currentUser(c)
	return u != nil && (u.ID == p.UserID || u.Role == domain.RoleAdmin)
}

type verificationReq struct {
	Status domain.VerificationStatus `json:"status" binding:"required"`
}

// SetVerification is the admin-only review path for professional credentials.
func (h *Handler) SetVerification(c *gin.Context) {
	var in verificationReq
	if err := c.ShouldBindJSON(&in); err != nil {
		failValidation(c, fieldMessages(err))
		return
	}
	if !in.Status.Valid() {
		fail(c, http.StatusBadRequest, "Invalid verification status")
		return
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid profile ID format")
		return
	}
	admin := currentUser(c)
	p, err := h.Store.SetProfileVerification(c.Request.Context(), id, admin.ID, in.Status)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, "Profile not found")
			return
		}
		serverError(c, err, "set verification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Verification status updated", "profile": p})
}
