package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ditechted/healthlink/internal/domain"
)

// CreateProfile is idempotent: if a profile already exists for the user the
// existing document is returned.
func (s *Store) CreateProfile(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error) {
	if existing, err := s.FindProfileByUser(ctx, userID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	p := domain.NewProfile(userID)
	res, err := s.colProfiles.InsertOne(ctx, p)
	if err != nil {
		if IsDup(err) {
			// lost the race to a concurrent create; the winner's document is fine
			return s.FindProfileByUser(ctx, userID)
		}
		return nil, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return p, nil
}

func (s *Store) FindProfileByUser(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error) {
	var p domain.Profile
	err := s.colProfiles.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &p, err
}

func (s *Store) FindProfileByID(ctx context.Context, id primitive.ObjectID) (*domain.Profile, error) {
	var p domain.Profile
	err := s.colProfiles.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &p, err
}

// ProfileUpdate is the allow-listed field set clients may change. Nil fields
// are left untouched; the verification sub-record is deliberately absent.
type ProfileUpdate struct {
	DateOfBirth   *time.Time                `json:"dateOfBirth,omitempty"`
	Gender        *string                   `json:"gender,omitempty" binding:"omitempty,oneof=male female other"`
	Address       *domain.Address           `json:"address,omitempty"`
	Bio           *string                   `json:"bio,omitempty" binding:"omitempty,max=500"`
	Specialties   *[]string                 `json:"specialties,omitempty"`
	Notifications *domain.NotificationPrefs `json:"notifications,omitempty"`
	Privacy       *domain.PrivacySettings   `json:"privacy,omitempty"`
}

func (s *Store) UpdateProfile(ctx context.Context, userID primitive.ObjectID, in ProfileUpdate) (*domain.Profile, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if in.DateOfBirth != nil {
		set["date_of_birth"] = in.DateOfBirth.UTC()
	}
	if in.Gender != nil {
		set["gender"] = *in.Gender
	}
	if in.Address != nil {
		set["address"] = *in.Address
	}
	if in.Bio != nil {
		set["bio"] = *in.Bio
	}
	if in.Specialties != nil {
		set["specialties"] = *in.Specialties
	}
	if in.Notifications != nil {
		set["notifications"] = *in.Notifications
	}
	if in.Privacy != nil {
		set["privacy"] = *in.Privacy
	}

	res := s.colProfiles.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": set},
		findOneAndUpdateAfter(),
	)
	var p domain.Profile
	if err := res.Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// SetProfileVerification is the admin path for the professional verification
// sub-record.
func (s *Store) SetProfileVerification(ctx context.Context, profileID, adminID primitive.ObjectID, status domain.VerificationStatus) (*domain.Profile, error) {
	now := time.Now().UTC()
	res := s.colProfiles.FindOneAndUpdate(ctx,
		bson.M{"_id": profileID},
		bson.M{"$set": bson.M{
			"verification.status":      status,
			"verification.verified_by": adminID,
			"verification.verified_at": now,
			"verified":                 status == domain.VerificationApproved,
			"updated_at":               now,
		}},
		findOneAndUpdateAfter(),
	)
	var p domain.Profile
	if err := res.Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) DeleteProfileByUser(ctx context.Context, userID primitive.ObjectID) error {
	res, err := s.colProfiles.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
