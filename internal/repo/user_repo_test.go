package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/ditechted/healthlink/internal/domain"
	"github.com/ditechted/healthlink/internal/repo"
)

func newTestStore(t *testing.T) (context.Context, *repo.Store) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}
	ctx := context.Background()

	mc, err := mongodb.Run(ctx, "mongo:6")
	if err != nil {
		t.Fatalf("mongo container: %v", err)
	}
	t.Cleanup(func() { _ = mc.Terminate(ctx) })

	uri, err := mc.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("mongo uri: %v", err)
	}
	store, err := repo.NewStore(ctx, uri, "healthlink_repo_test")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(ctx) })
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatal(err)
	}
	return ctx, store
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	ctx, store := newTestStore(t)

	u1 := &domain.User{FirstName: "A", LastName: "B", Email: "dup@example.com"}
	if err := store.CreateUser(ctx, u1); err != nil {
		t.Fatal(err)
	}
	u2 := &domain.User{FirstName: "C", LastName: "D", Email: "DUP@example.com"}
	if err := store.CreateUser(ctx, u2); !errors.Is(err, repo.ErrEmailTaken) {
		t.Fatalf("want ErrEmailTaken, got %v", err)
	}
}

func TestConsumeVerificationCode_Expired(t *testing.T) {
	ctx, store := newTestStore(t)

	past := time.Now().Add(-time.Minute).UTC()
	u := &domain.User{
		FirstName: "E", LastName: "F", Email: "expired@example.com",
		VerificationCode: "123456", VerificationCodeExpiry: &past,
	}
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if _, err := store.ConsumeVerificationCode(ctx, "123456"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expired code consumed: %v", err)
	}
}

func TestConsumeVerificationCode_SingleUse(t *testing.T) {
	ctx, store := newTestStore(t)

	future := time.Now().Add(time.Hour).UTC()
	u := &domain.User{
		FirstName: "G", LastName: "H", Email: "once@example.com",
		VerificationCode: "654321", VerificationCodeExpiry: &future,
	}
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}

	got, err := store.ConsumeVerificationCode(ctx, "654321")
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsEmailVerified || !got.IsActive {
		t.Fatalf("user not activated: %+v", got)
	}
	if _, err := store.ConsumeVerificationCode(ctx, "654321"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("code reusable: %v", err)
	}
}

func TestDeleteUser_CascadesProfile(t *testing.T) {
	ctx, store := newTestStore(t)

	u := &domain.User{FirstName: "I", LastName: "J", Email: "cascade@example.com"}
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateProfile(ctx, u.ID); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteUser(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	p, err := store.FindProfileByUser(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Fatal("profile survived user deletion")
	}
}
