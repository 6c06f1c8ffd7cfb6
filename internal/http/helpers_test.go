package http_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ditechted/healthlink/internal/config"
	apphttp "github.com/ditechted/healthlink/internal/http"
	"github.com/ditechted/healthlink/internal/log"
	"github.com/ditechted/healthlink/internal/queue"
	"github.com/ditechted/healthlink/internal/repo"
)

type testEnv struct {
	T      *testing.T
	Ctx    context.Context
	Mongo  *mongodb.MongoDBContainer
	Store  *repo.Store
	Router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}
	ctx := context.Background()

	mc, err := mongodb.Run(ctx, "mongo:6")
	if err != nil {
		t.Fatalf("mongo container: %v", err)
	}

	uri, err := mc.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("mongo uri: %v", err)
	}

	if _, err := log.Init(false); err != nil {
		t.Fatalf("log init: %v", err)
	}

	store, err := repo.NewStore(ctx, uri, "healthlink_test")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatal(err)
	}

	cfg := config.Config{
		JWTSecret:    "test-secret",
		TokenTTLDays: 7,
		PostsPerHour: 10,
		ClientURL:    "http://localhost:3000",
		SuccessURL:   "http://localhost:3000",
	}

	// Redis/Rabbit/MinIO/Google stay nil: rate limiting degrades to off,
	// notification events drop, uploads and OAuth report unavailable
	h := apphttp.NewHandler(store, nil, nil, queue.NewNoop(), nil, cfg)

	gin.SetMode(gin.TestMode)
	return &testEnv{T: t, Ctx: ctx, Mongo: mc, Store: store, Router: apphttp.NewRouter(h)}
}

func (e *testEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close(e.Ctx)
	}
	if e.Mongo != nil {
		_ = e.Mongo.Terminate(e.Ctx)
	}
}

// do issues a JSON request, carrying any cookies passed in.
func (e *testEnv) do(method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	e.Router.ServeHTTP(w, req)
	return w
}

// verificationCode digs the pending code out of the users collection; the
// API never echoes it.
func (e *testEnv) verificationCode(email string) string {
	e.T.Helper()
	var doc struct {
		Code string `bson:"verification_code"`
	}
	err := e.Store.DB.Collection("users").
		FindOne(e.Ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		e.T.Fatalf("read verification code: %v", err)
	}
	return doc.Code
}

func (e *testEnv) makeAdmin(email string) {
	e.T.Helper()
	_, err := e.Store.DB.Collection("users").
		UpdateOne(e.Ctx, bson.M{"email": email}, bson.M{"$set": bson.M{"role": "admin"}})
	if err != nil {
		e.T.Fatalf("promote admin: %v", err)
	}
}

// signup registers, verifies and logs in a user, returning the session cookies.
func (e *testEnv) signup(email, password, first, last string) []*http.Cookie {
	e.T.Helper()
	w := e.do("POST", "/auth/register",
		`{"firstName":"`+first+`","lastName":"`+last+`","email":"`+email+
			`","phone":"5551234567","password":"`+password+`","confirmPassword":"`+password+`"}`, nil)
	if w.Code != http.StatusCreated {
		e.T.Fatalf("register %s: %d %s", email, w.Code, w.Body.String())
	}

	code := e.verificationCode(email)
	w = e.do("POST", "/auth/verify-email", `{"code":"`+code+`"}`, nil)
	if w.Code != http.StatusOK {
		e.T.Fatalf("verify %s: %d %s", email, w.Code, w.Body.String())
	}

	w = e.do("POST", "/auth/login", `{"email":"`+email+`","password":"`+password+`"}`, nil)
	if w.Code != http.StatusOK {
		e.T.Fatalf("login %s: %d %s", email, w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		e.T.Fatalf("no session cookie after login for %s", email)
	}
	return cookies
}
