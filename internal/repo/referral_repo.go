package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ditechted/healthlink/internal/domain"
)

func (s *Store) CreateReferral(ctx context.Context, r *domain.Referral) error {
	r.CreatedAt = time.Now().UTC()
	if r.Status == "" {
		r.Status = "approved"
	}
	res, err := s.colReferrals.InsertOne(ctx, r)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		r.ID = oid
	}
	return nil
}
