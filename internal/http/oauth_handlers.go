package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ditechted/healthlink/internal/domain"
	"github.com/ditechted/healthlink/internal/log"
	"github.com/ditechted/healthlink/internal/oauth"
	"github.com/ditechted/healthlink/internal/queue"
	"github.com/ditechted/healthlink/internal/security"
)

// GoogleAuth starts the consent flow. An optional ?ref=CODE referral code is
// carried through the signed state parameter.
func (h *Handler) GoogleAuth(c *gin.Context) {
	if h.Google == nil {
		fail(c, http.StatusServiceUnavailable, "Google sign-in is not configured")
		return
	}
	state, err := h.Google.MakeState(oauth.StatePayload{
		ReferredBy: strings.TrimSpace(c.Query("ref")),
	})
	if err != nil {
		serverError(c, err, "google auth: make state")
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.Google.AuthURL(state))
}

// GoogleCallback finishes the flow: verify state, exchange the code, then
// link or create the account and set the session cookie.
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.Google == nil {
		fail(c, http.StatusServiceUnavailable, "Google sign-in is not configured")
		return
	}
	ctx := c.Request.Context()

	if errParam := c.Query("error"); errParam != "" {
		h.redirectLoginFailed(c, "Google sign-in was cancelled")
		return
	}
	st, err := h.Google.VerifyState(c.Query("state"))
	if err != nil {
		h.redirectLoginFailed(c, "Invalid sign-in state")
		return
	}
	code := c.Query("code")
	if code == "" {
		h.redirectLoginFailed(c, "Missing authorization code")
		return
	}

	gu, err := h.Google.ExchangeAndVerify(ctx, code)
	if err != nil {
		log.WithDD(ctx, log.L()).Warn("google callback: exchange", zap.Error(err))
		h.redirectLoginFailed(c, "Google sign-in failed")
		return
	}

	// referral validation happens before any account is touched, so a bad
	// code fails the whole sign-up instead of silently dropping the referral
	var referrer *domain.User
	if st.ReferredBy != "" {
		referrer, err = h.Store.FindUserByReferralCode(ctx, st.ReferredBy)
		if err != nil {
			serverError(c, err, "google callback: referral lookup")
			return
		}
		if referrer == nil {
			h.redirectLoginFailed(c, "Invalid referral code")
			return
		}
	}

	u, err := h.Store.FindUserByEmail(ctx, gu.Email)
	if err != nil {
		serverError(c, err, "google callback: lookup email")
		return
	}

	if u != nil {
		if u.GoogleID == "" {
			if err := h.Store.LinkGoogle(ctx, u.ID, gu.Sub, gu.Picture); err != nil {
				serverError(c, err, "google callback: link account")
				return
			}
		} else if err := h.Store.TouchLastLogin(ctx, u.ID); err != nil {
			log.WithDD(ctx, log.L()).Warn("google callback: touch last login", zap.Error(err))
		}
	} else {
		u, err = h.createGoogleUser(c, gu, referrer)
		if err != nil {
			serverError(c, err, "google callback: create user")
			return
		}
	}

	token, err := security.MakeToken(h.Cfg.JWTSecret, u.ID.Hex(), string(u.Role), h.TokenTTL)
	if err != nil {
		serverError(c, err, "google callback: sign token")
		return
	}
	h.setAuthCookie(c, token)
	c.Redirect(http.StatusTemporaryRedirect, h.Cfg.SuccessURL)
}

// createGoogleUser provisions a new account from a verified Google identity.
// Google accounts skip email verification entirely.
func (h *Handler) createGoogleUser(c *gin.Context, gu *oauth.GoogleUser, referrer *domain.User) (*domain.User, error) {
	ctx := c.Request.Context()

	refCode, err := h.freshReferralCode(c)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		FirstName:       gu.FirstName,
		LastName:        gu.LastName,
		Email:           gu.Email,
		GoogleID:        gu.Sub,
		ProfilePicture:  gu.Picture,
		Language:        "English",
		Role:            domain.RoleUser,
		IsEmailVerified: true,
		IsActive:        true,
		ReferralCode:    refCode,
	}
	if referrer != nil {
		u.ReferredBy = referrer.ReferralCode
	}
	if err := h.Store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	if p, err := h.Store.CreateProfile(ctx, u.ID); err != nil {
		log.WithDD(ctx, log.L()).Error("google callback: create profile", zap.Error(err))
	} else if err := h.Store.SetUserProfileID(ctx, u.ID, p.ID); err != nil {
		log.WithDD(ctx, log.L()).Error("google callback: link profile", zap.Error(err))
	} else {
		u.ProfileID = p.ID
	}

	if referrer != nil {
		ref := &domain.Referral{
			Referrer:     referrer.ID,
			ReferredUser: u.ID,
			ReferralCode: referrer.ReferralCode,
		}
		if err := h.Store.CreateReferral(ctx, ref); err != nil {
			log.WithDD(ctx, log.L()).Error("google callback: record referral", zap.Error(err))
		}
	}

	h.publish(c, queue.KeyUserVerified, queue.UserVerified{
		UserID: u.ID, Email: u.Email, FirstName: u.FirstName,
	})
	return u, nil
}

// freshReferralCode samples until the code is unused; the keyspace is large
// enough that more than a couple of rounds means something is broken.
func (h *Handler) freshReferralCode(c *gin.Context) (string, error) {
	for i := 0; i < 10; i++ {
		code, err := security.NewReferralCode()
		if err != nil {
			return "", err
		}
		existing, err := h.Store.FindUserByReferralCode(c.Request.Context(), code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", errors.New("referral code space exhausted")
}

// GoogleSuccess is the landing endpoint after a successful OAuth redirect.
func (h *Handler) GoogleSuccess(c *gin.Context) {
	u := currentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Google login successful",
		"user":    u,
	})
}

func (h *Handler) LoginFailed(c *gin.Context) {
	msg := c.Query("message")
	if msg == "" {
		msg = "Login failed"
	}
	fail(c, http.StatusUnauthorized, msg)
}

func (h *Handler) GoogleLogout(c *gin.Context) {
	h.clearAuthCookie(c)
	c.Redirect(http.StatusTemporaryRedirect, h.Cfg.ClientURL)
}

func (h *Handler) redirectLoginFailed(c *gin.Context, reason string) {
	c.Redirect(http.StatusTemporaryRedirect,
		strings.TrimRight(h.Cfg.ClientURL, "/")+"/login/failed?message="+
			strings.ReplaceAll(reason, " ", "%20"))
}
