package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/ditechted/healthlink/internal/domain"
)

var ErrEmailTaken = errors.New("email already registered")

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.insert")
	defer sp.Finish()

	now := time.Now().UTC()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = now
	u.UpdatedAt = now
	u.LastSeen = now
	if u.ProfilePicture == "" {
		u.ProfilePicture = domain.DefaultProfilePicture
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	res, err := s.colUsers.InsertOne(ctx, u)
	if err != nil {
		if IsDup(err) {
			return ErrEmailTaken
		}
		sp.SetTag("error", err)
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.colUsers.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &u, err
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var u domain.User
	err := s.colUsers.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &u, err
}

func (s *Store) FindUserByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	var u domain.User
	err := s.colUsers.FindOne(ctx, bson.M{"referral_code": code}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &u, err
}

// FindUsersByIDs resolves author references for post responses.
func (s *Store) FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.User, error) {
	out := make(map[primitive.ObjectID]domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.colUsers.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var u domain.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, cur.Err()
}

// ConsumeVerificationCode marks the matching user verified+active and clears
// the code in one FindOneAndUpdate, so a code can only be used once.
func (s *Store) ConsumeVerificationCode(ctx context.Context, code string) (*domain.User, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.consume_verification")
	defer sp.Finish()

	now := time.Now().UTC()
	res := s.colUsers.FindOneAndUpdate(ctx,
		bson.M{
			"verification_code":        code,
			"verification_code_expiry": bson.M{"$gt": now},
		},
		bson.M{
			"$set":   bson.M{"is_email_verified": true, "is_active": true, "updated_at": now},
			"$unset": bson.M{"verification_code": "", "verification_code_expiry": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var u domain.User
	if err := res.Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		sp.SetTag("error", err)
		return nil, err
	}
	return &u, nil
}

func (s *Store) SetResetCode(ctx context.Context, userID primitive.ObjectID, code string, expiry time.Time) error {
	_, err := s.colUsers.UpdateByID(ctx, userID, bson.M{"$set": bson.M{
		"reset_code":        code,
		"reset_code_expiry": expiry.UTC(),
		"updated_at":        time.Now().UTC(),
	}})
	return err
}

// ConsumeResetCode swaps in the new password hash and clears the code; fails
// closed when no live code matches.
func (s *Store) ConsumeResetCode(ctx context.Context, code, newHash string) (*domain.User, error) {
	now := time.Now().UTC()
	res := s.colUsers.FindOneAndUpdate(ctx,
		bson.M{
			"reset_code":        code,
			"reset_code_expiry": bson.M{"$gt": now},
		},
		bson.M{
			"$set":   bson.M{"password_hash": newHash, "updated_at": now},
			"$unset": bson.M{"reset_code": "", "reset_code_expiry": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var u domain.User
	if err := res.Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) TouchLastLogin(ctx context.Context, userID primitive.ObjectID) error {
	now := time.Now().UTC()
	_, err := s.colUsers.UpdateByID(ctx, userID, bson.M{"$set": bson.M{
		"last_login": now,
		"last_seen":  now,
	}})
	return err
}

// LinkGoogle attaches the OAuth subject id to an existing account and
// refreshes the profile picture.
func (s *Store) LinkGoogle(ctx context.Context, userID primitive.ObjectID, googleID, picture string) error {
	set := bson.M{
		"google_id":  googleID,
		"last_login": time.Now().UTC(),
		"updated_at": time.Now().UTC(),
	}
	if picture != "" {
		set["profile_picture"] = picture
	}
	_, err := s.colUsers.UpdateByID(ctx, userID, bson.M{"$set": set})
	return err
}

func (s *Store) SetUserProfileID(ctx context.Context, userID, profileID primitive.ObjectID) error {
	_, err := s.colUsers.UpdateByID(ctx, userID, bson.M{"$set": bson.M{"profile_id": profileID}})
	return err
}

func (s *Store) UpdateUserRole(ctx context.Context, userID primitive.ObjectID, role domain.Role) error {
	res, err := s.colUsers.UpdateByID(ctx, userID, bson.M{"$set": bson.M{
		"role":       role,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the user and cascades to their profile.
func (s *Store) DeleteUser(ctx context.Context, userID primitive.ObjectID) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.delete")
	defer sp.Finish()

	res, err := s.colUsers.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		sp.SetTag("error", err)
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	_, err = s.colProfiles.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}
