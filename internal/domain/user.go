package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the closed set of account roles. Authorization code must compare
// against these constants, never raw strings from the wire.
type Role string

const (
	RoleUser       Role = "user"
	RolePatient    Role = "patient"
	RoleDoctor     Role = "doctor"
	RoleAdmin      Role = "admin"
	RoleInfluencer Role = "influencer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RolePatient, RoleDoctor, RoleAdmin, RoleInfluencer:
		return true
	}
	return false
}

const DefaultProfilePicture = "https://res.cloudinary.com/dz4qj1x8h/image/upload/v1709300000/default-profile-picture.png"

// User is an identity record. Exactly one of PasswordHash / GoogleID must be
// resolvable for login.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName      string             `bson:"first_name" json:"firstName"`
	LastName       string             `bson:"last_name" json:"lastName"`
	Email          string             `bson:"email" json:"email"`
	Phone          string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash   string             `bson:"password_hash,omitempty" json:"-"`
	ProfilePicture string             `bson:"profile_picture" json:"profilePicture"`
	Language       string             `bson:"language" json:"language"`
	Role           Role               `bson:"role" json:"role"`
	ProfileID      primitive.ObjectID `bson:"profile_id,omitempty" json:"profileId,omitempty"`

	IsActive        bool      `bson:"is_active" json:"isActive"`
	IsEmailVerified bool      `bson:"is_email_verified" json:"isEmailVerified"`
	LastSeen        time.Time `bson:"last_seen" json:"lastSeen"`
	LastLogin       time.Time `bson:"last_login,omitempty" json:"lastLogin,omitempty"`

	VerificationCode       string     `bson:"verification_code,omitempty" json:"-"`
	VerificationCodeExpiry *time.Time `bson:"verification_code_expiry,omitempty" json:"-"`
	ResetCode              string     `bson:"reset_code,omitempty" json:"-"`
	ResetCodeExpiry        *time.Time `bson:"reset_code_expiry,omitempty" json:"-"`

	GoogleID     string `bson:"google_id,omitempty" json:"-"`
	ReferralCode string `bson:"referral_code,omitempty" json:"referralCode,omitempty"`
	ReferredBy   string `bson:"referred_by,omitempty" json:"referredBy,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

func (u *User) FullName() string { return u.FirstName + " " + u.LastName }

// AuthorRef is the subset of author fields resolved into post responses.
type AuthorRef struct {
	ID             primitive.ObjectID `json:"id"`
	FirstName      string             `json:"firstName"`
	LastName       string             `json:"lastName"`
	ProfilePicture string             `json:"profilePicture"`
	Role           Role               `json:"role,omitempty"`
}

func (u *User) Ref() AuthorRef {
	return AuthorRef{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ProfilePicture: u.ProfilePicture,
		Role:           u.Role,
	}
}
