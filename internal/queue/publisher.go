package queue

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Publisher interface {
	Publish(ctx context.Context, exchange, key string, event any, reqID string) error
	Close() error
}

type NoopPub struct{}

// NewNoop is used when no broker is configured; notification events are
// dropped silently and the request path is unaffected.
func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(ctx context.Context, exchange, key string, event any, reqID string) error {
	return nil
}
func (NoopPub) Close() error { return nil }

// Routing keys on the health.events topic exchange.
const (
	KeyUserRegistered    = "user.registered"
	KeyUserVerified      = "user.verified"
	KeyPasswordResetReq  = "user.reset_requested"
	KeyPasswordResetDone = "user.reset_done"
)

type UserRegistered struct {
	UserID           primitive.ObjectID `json:"user_id"`
	Email            string             `json:"email"`
	FirstName        string             `json:"first_name"`
	VerificationCode string             `json:"verification_code"`
}

type UserVerified struct {
	UserID    primitive.ObjectID `json:"user_id"`
	Email     string             `json:"email"`
	FirstName string             `json:"first_name"`
}

type PasswordResetRequested struct {
	UserID   primitive.ObjectID `json:"user_id"`
	Email    string             `json:"email"`
	ResetURL string             `json:"reset_url"`
}

type PasswordResetDone struct {
	UserID primitive.ObjectID `json:"user_id"`
	Email  string             `json:"email"`
}
