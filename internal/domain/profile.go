package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}

type Address struct {
	Country string `bson:"country,omitempty" json:"country,omitempty"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
}

// VerificationMeta holds the professional (doctor) verification sub-record.
// Not client-writable; only the admin verification endpoint mutates it.
type VerificationMeta struct {
	IDDocURL      string             `bson:"id_doc_url,omitempty" json:"idDocUrl,omitempty"`
	LicenseNumber string             `bson:"license_number,omitempty" json:"licenseNumber,omitempty"`
	LicenseIssuer string             `bson:"license_issuer,omitempty" json:"licenseIssuer,omitempty"`
	VerifiedBy    primitive.ObjectID `bson:"verified_by,omitempty" json:"verifiedBy,omitempty"`
	VerifiedAt    *time.Time         `bson:"verified_at,omitempty" json:"verifiedAt,omitempty"`
	Status        VerificationStatus `bson:"status" json:"status"`
}

type NotificationPrefs struct {
	Push  bool `bson:"push" json:"push"`
	SMS   bool `bson:"sms" json:"sms"`
	Email bool `bson:"email" json:"email"`
}

type PrivacySettings struct {
	ProfileVisibility string `bson:"profile_visibility" json:"profileVisibility"` // public|private|friends
	ShowEmail         bool   `bson:"show_email" json:"showEmail"`
	ShowPhone         bool   `bson:"show_phone" json:"showPhone"`
}

// Profile is the one-to-one extension of a User.
type Profile struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"userId"`
	DateOfBirth *time.Time         `bson:"date_of_birth,omitempty" json:"dateOfBirth,omitempty"`
	Gender      string             `bson:"gender,omitempty" json:"gender,omitempty"` // male|female|other
	Address     Address            `bson:"address,omitempty" json:"address"`
	Bio         string             `bson:"bio,omitempty" json:"bio,omitempty"`

	Specialties  []string         `bson:"specialties,omitempty" json:"specialties,omitempty"`
	Verified     bool             `bson:"verified" json:"verified"`
	Verification VerificationMeta `bson:"verification" json:"verification"`

	Notifications NotificationPrefs `bson:"notifications" json:"notifications"`
	Privacy       PrivacySettings   `bson:"privacy" json:"privacy"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// NewProfile returns a profile with the default preference set.
func NewProfile(userID primitive.ObjectID) *Profile {
	now := time.Now().UTC()
	return &Profile{
		UserID:       userID,
		Verification: VerificationMeta{Status: VerificationPending},
		Notifications: NotificationPrefs{
			Push: true, SMS: true, Email: true,
		},
		Privacy: PrivacySettings{
			ProfileVisibility: "public",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
