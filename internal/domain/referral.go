package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Referral records attribution when a new account is created with someone
// else's referral code. Weak back-reference, not an ownership edge.
type Referral struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Referrer     primitive.ObjectID `bson:"referrer" json:"referrer"`
	ReferredUser primitive.ObjectID `bson:"referred_user" json:"referredUser"`
	ReferralCode string             `bson:"referral_code" json:"referralCode"`
	Status       string             `bson:"status" json:"status"` // approved|pending
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
}
