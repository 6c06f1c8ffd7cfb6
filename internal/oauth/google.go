package oauth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	ggoogle "golang.org/x/oauth2/google"
)

type GoogleOAuth struct {
	cfg      *oauth2.Config
	stateKey []byte
}

func NewGoogle(clientID, clientSecret, redirectURI, stateSecret string) *GoogleOAuth {
	return &GoogleOAuth{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     ggoogle.Endpoint,
		},
		stateKey: []byte(stateSecret),
	}
}

// StatePayload rides the OAuth state parameter through the consent redirect.
// ReferredBy carries an optional referral code back to the callback.
type StatePayload struct {
	ReferredBy string `json:"referredBy,omitempty"`
	Nonce      string `json:"nonce"`
}

// MakeState encodes the payload as base64-JSON and appends an HMAC for CSRF
// protection.
func (g *GoogleOAuth) MakeState(p StatePayload) (string, error) {
	if p.Nonce == "" {
		b := make([]byte, 12)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		p.Nonce = base64.RawURLEncoding.EncodeToString(b)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	raw := base64.RawURLEncoding.EncodeToString(body)
	mac := hmac.New(sha256.New, g.stateKey)
	mac.Write([]byte(raw))
	return raw + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// VerifyState checks the HMAC and decodes the payload.
func (g *GoogleOAuth) VerifyState(got string) (*StatePayload, error) {
	i := strings.IndexByte(got, '.')
	if i < 0 {
		return nil, errors.New("malformed state")
	}
	raw := got[:i]
	sig, err := base64.RawURLEncoding.DecodeString(got[i+1:])
	if err != nil {
		return nil, errors.New("malformed state signature")
	}
	mac := hmac.New(sha256.New, g.stateKey)
	mac.Write([]byte(raw))
	if !hmac.Equal(mac.Sum(nil), sig) {
		return nil, errors.New("state signature mismatch")
	}
	body, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.New("malformed state payload")
	}
	var p StatePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &p, nil
}

func (g *GoogleOAuth) AuthURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

type GoogleUser struct {
	Sub           string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	Picture       string
}

// ExchangeAndVerify swaps the authorization code for tokens and extracts the
// profile from the id_token. The aud/iss fields are checked against our
// client id; signature verification is delegated to the TLS exchange with
// Google's token endpoint.
func (g *GoogleOAuth) ExchangeAndVerify(ctx context.Context, code string) (*GoogleUser, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("no id_token in token response")
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(rawIDToken, claims); err != nil {
		return nil, fmt.Errorf("parse id_token: %w", err)
	}
	iss, _ := claims["iss"].(string)
	aud, _ := claims["aud"].(string)
	email, _ := claims["email"].(string)
	emailVerified, _ := claims["email_verified"].(bool)
	sub, _ := claims["sub"].(string)
	given, _ := claims["given_name"].(string)
	family, _ := claims["family_name"].(string)
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)

	if iss != "https://accounts.google.com" && iss != "accounts.google.com" {
		return nil, errors.New("bad iss")
	}
	if aud != g.cfg.ClientID {
		return nil, errors.New("bad aud")
	}
	if email == "" || sub == "" {
		return nil, errors.New("missing email/sub in id_token")
	}
	if given == "" && name != "" {
		parts := strings.SplitN(name, " ", 2)
		given = parts[0]
		if family == "" && len(parts) == 2 {
			family = parts[1]
		}
	}

	return &GoogleUser{
		Sub:           sub,
		Email:         email,
		EmailVerified: emailVerified,
		FirstName:     given,
		LastName:      family,
		Picture:       picture,
	}, nil
}
