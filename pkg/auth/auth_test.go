package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bartr-dev/bartr/pkg/api"
	"github.com/bartr-dev/bartr/pkg/model"
	"github.com/bartr-dev/bartr/pkg/session"
)

type call struct {
	method string
	uri    string
	auth   string
}

type fakeBackend struct {
	mu    sync.Mutex
	calls []call
	srv   *httptest.Server
}

func newFakeBackend(t *testing.T, routes map[string]http.HandlerFunc) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	fb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.calls = append(fb.calls, call{method: r.Method, uri: r.URL.RequestURI(), auth: r.Header.Get("Authorization")})
		fb.mu.Unlock()
		if h, ok := routes[r.Method+" "+r.URL.Path]; ok {
			h(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) count(method, uri string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := 0
	for _, c := range fb.calls {
		if c.method == method && c.uri == uri {
			n++
		}
	}
	return n
}

func jsonResponse(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
}

func newService(fb *fakeBackend) (*Service, *session.Store) {
	store := session.NewStore(session.NewMemoryStorage())
	client := api.New(fb.srv.URL+"/api", store)
	return NewService(client, store, nil), store
}

var alex = &model.User{ID: 1, Name: "Alex Johnson", Email: "alex@bartr.test"}

func TestLogin(t *testing.T) {
	t.Run("success persists session", func(t *testing.T) {
		fb := newFakeBackend(t, map[string]http.HandlerFunc{
			"POST /api/auth/login": jsonResponse(http.StatusOK, model.AuthResponse{
				AccessToken: "acc", RefreshToken: "ref", ExpiresIn: 3600, User: alex,
			}),
		})
		svc, store := newService(fb)

		resp, err := svc.Login(context.Background(), "alex@bartr.test", "password123")
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if resp.ExpiresIn != 3600 {
			t.Errorf("ExpiresIn = %d", resp.ExpiresIn)
		}
		if fb.count("POST", "/api/auth/login") != 1 {
			t.Errorf("login calls = %d, want 1", fb.count("POST", "/api/auth/login"))
		}
		if store.AccessToken() != "acc" || store.RefreshToken() != "ref" {
			t.Errorf("tokens = %+v", store.Tokens())
		}
		if u := svc.CurrentUser(); u == nil || u.ID != 1 {
			t.Errorf("CurrentUser = %+v", u)
		}
	})

	t.Run("invalid credentials leave no tokens", func(t *testing.T) {
		fb := newFakeBackend(t, map[string]http.HandlerFunc{
			"POST /api/auth/login": jsonResponse(http.StatusBadRequest, model.ErrorResponse{Message: "Invalid credentials"}),
		})
		svc, store := newService(fb)

		_, err := svc.Login(context.Background(), "alex@bartr.test", "wrong")
		var reqErr *api.RequestError
		if !errors.As(err, &reqErr) || reqErr.StatusCode != http.StatusBadRequest {
			t.Fatalf("err = %v, want 400 RequestError", err)
		}
		if store.Authenticated() {
			t.Error("tokens stored after failed login")
		}
	})

	t.Run("response without token", func(t *testing.T) {
		fb := newFakeBackend(t, map[string]http.HandlerFunc{
			"POST /api/auth/login": jsonResponse(http.StatusOK, model.AuthResponse{}),
		})
		svc, _ := newService(fb)
		if _, err := svc.Login(context.Background(), "a", "b"); !errors.Is(err, ErrMissingToken) {
			t.Errorf("err = %v, want ErrMissingToken", err)
		}
	})
}

func TestRegister(t *testing.T) {
	fb := newFakeBackend(t, map[string]http.HandlerFunc{
		"POST /api/auth/register": jsonResponse(http.StatusCreated, model.AuthResponse{AccessToken: "new", User: alex}),
	})
	svc, store := newService(fb)

	if _, err := svc.Register(context.Background(), model.RegisterRequest{Name: "Alex", Email: "alex@bartr.test", Password: "password123"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if store.AccessToken() != "new" {
		t.Errorf("AccessToken = %q", store.AccessToken())
	}
}

func TestLogoutAlwaysClears(t *testing.T) {
	fb := newFakeBackend(t, map[string]http.HandlerFunc{
		"POST /api/auth/logout": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})
	svc, store := newService(fb)
	ctx := context.Background()
	store.SetTokens(ctx, session.Tokens{AccessToken: "acc"})
	store.SetCachedUser(ctx, alex)

	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("Logout returned %v", err)
	}
	if fb.count("POST", "/api/auth/logout") != 1 {
		t.Error("logout was not posted")
	}
	if store.Authenticated() || store.CachedUser() != nil {
		t.Error("state not cleared after failed logout")
	}
}

func TestProfile(t *testing.T) {
	updated := *alex
	updated.Bio = "Guitarist"
	fb := newFakeBackend(t, map[string]http.HandlerFunc{
		"GET /api/auth/me":           jsonResponse(http.StatusOK, alex),
		"PUT /api/auth/me":           jsonResponse(http.StatusOK, &updated),
		"POST /api/auth/me/password": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) },
		"POST /api/auth/password-reset": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		},
	})
	svc, store := newService(fb)
	ctx := context.Background()
	store.SetTokens(ctx, session.Tokens{AccessToken: "acc"})

	u, err := svc.FetchProfile(ctx)
	if err != nil || u.Email != alex.Email {
		t.Fatalf("FetchProfile = %+v, %v", u, err)
	}
	if store.CachedUser().Name != alex.Name {
		t.Error("profile not cached")
	}

	if _, err := svc.UpdateProfile(ctx, model.UpdateProfileRequest{Bio: "Guitarist"}); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if store.CachedUser().Bio != "Guitarist" {
		t.Error("cache not refreshed after update")
	}

	if err := svc.UpdatePassword(ctx, "new pass&1"); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}
	if fb.count("POST", "/api/auth/me/password?newPassword=new+pass%261") != 1 {
		t.Errorf("password call not issued as expected: %+v", fb.calls)
	}

	if err := svc.RequestPasswordReset(ctx, "alex@bartr.test"); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}

	for _, c := range fb.calls {
		if c.auth != "Bearer acc" {
			t.Errorf("%s %s sent Authorization %q", c.method, c.uri, c.auth)
		}
	}
}
