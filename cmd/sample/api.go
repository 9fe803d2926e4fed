package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bjaus/oai"
)

const readHeaderTimeout = 10 * time.Second

func newService(logger *slog.Logger, metrics *oai.Metrics) *oai.Service {
	opts := []oai.ServiceOption{
		oai.WithTitle("Authorization Demo"),
		oai.WithVersion("1.0"),
		oai.WithServers(oai.Server{URL: "http://localhost:3000/api"}),
		oai.WithLogger(logger),
		oai.WithServiceMiddleware(
			oai.RequestID(),
			oai.Logger(logger),
			oai.Recovery(logger),
			oai.RateLimit(oai.RateLimitConfig{
				Rate:  50,
				Burst: 100,
				Key:   oai.CredentialKey(func(b *oai.Basic) string { return b.Username }),
			}),
			oai.BodyLimit(1<<20),
		),
	}
	if metrics != nil {
		opts = append(opts, oai.WithMetrics(metrics))
	}
	return oai.NewService(oai.Combine(newAuthAPI(), newUsersAPI(newUserStore())), opts...)
}

type basicRequest struct {
	Auth oai.Basic
}

type whoamiRequest struct {
	Auth oai.Optional[oai.Bearer]
}

func newAuthAPI() *oai.API {
	a := oai.NewAPI(oai.WithTags(oai.MetaTag{Name: "auth", Description: "Authentication examples"}))

	oai.Get(a, "/basic", func(_ context.Context, req *basicRequest) (oai.PlainText, error) {
		if req.Auth.Username != "test" || req.Auth.Password != "123456" {
			return "", oai.Error(http.StatusUnauthorized, "invalid username or password")
		}
		return oai.PlainText("hello: " + req.Auth.Username), nil
	}, oai.WithOperationID("basicAuth"), oai.WithSummary("Greets a Basic authenticated user"))

	oai.Get(a, "/whoami", func(_ context.Context, req *whoamiRequest) (oai.PlainText, error) {
		if req.Auth.Value == nil {
			return "anonymous", nil
		}
		return oai.PlainText("token " + req.Auth.Value.Token), nil
	}, oai.WithOperationID("whoami"), oai.WithSummary("Reports the caller's bearer token if any"))

	return a
}

// User is a stored user.
type User struct {
	ID      int32     `json:"id"`
	Name    string    `json:"name" doc:"Display name"`
	Email   string    `json:"email"`
	Created time.Time `json:"created"`
}

// NewUser is the body of a create request.
type NewUser struct {
	Name  string `json:"name" validate:"required,min=1,max=64"`
	Email string `json:"email" validate:"required,email"`
}

type createUserRequest struct {
	Auth oai.Basic
	Body oai.JSON[NewUser]
}

type getUserRequest struct {
	ID int32 `path:"id" doc:"User ID"`
}

type userStore struct {
	mu    sync.Mutex
	next  int32
	users map[int32]User
}

func newUserStore() *userStore {
	return &userStore{users: make(map[int32]User)}
}

func newUsersAPI(store *userStore) *oai.API {
	a := oai.NewAPI(oai.WithTags(oai.MetaTag{Name: "users", Description: "User management"}))

	oai.Post(a, "/users", func(_ context.Context, req *createUserRequest) (oai.Created[User], error) {
		store.mu.Lock()
		defer store.mu.Unlock()

		store.next++
		u := User{
			ID:      store.next,
			Name:    req.Body.Value.Name,
			Email:   req.Body.Value.Email,
			Created: time.Now().UTC(),
		}
		store.users[u.ID] = u
		return oai.Created[User]{Value: u}, nil
	}, oai.WithOperationID("createUser"))

	oai.Get(a, "/users/{id}", func(_ context.Context, req *getUserRequest) (oai.JSON[User], error) {
		store.mu.Lock()
		defer store.mu.Unlock()

		u, ok := store.users[req.ID]
		if !ok {
			return oai.JSON[User]{}, oai.Errorf(http.StatusNotFound, "user %d not found", req.ID)
		}
		return oai.JSON[User]{Value: u}, nil
	}, oai.WithOperationID("getUser"))

	return a
}
