package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recorded struct {
	method      string
	path        string
	query       string
	auth        string
	contentType string
	body        string
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{
			method:      r.Method,
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
			body:        string(body),
		})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestRequestHeaders(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
	})

	t.Run("with token and body", func(t *testing.T) {
		c := New(srv.URL+"/api", TokenFunc(func() string { return "tok-1" }))
		var out map[string]string
		if err := c.Post(context.Background(), "/auth/login", map[string]string{"email": "a@b.c"}, &out); err != nil {
			t.Fatalf("Post failed: %v", err)
		}
		got := (*calls)[len(*calls)-1]
		if got.auth != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got.auth)
		}
		if got.contentType != "application/json" {
			t.Errorf("Content-Type = %q", got.contentType)
		}
		if got.path != "/api/auth/login" || got.body != `{"email":"a@b.c"}` {
			t.Errorf("path/body = %q %q", got.path, got.body)
		}
		if out["ok"] != "yes" {
			t.Errorf("decoded = %v", out)
		}
	})

	t.Run("without token or body", func(t *testing.T) {
		c := New(srv.URL+"/api", TokenFunc(func() string { return "" }))
		if err := c.Get(context.Background(), "/listings", nil); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		got := (*calls)[len(*calls)-1]
		if got.auth != "" {
			t.Errorf("Authorization should be absent, got %q", got.auth)
		}
		if got.contentType != "" {
			t.Errorf("Content-Type should be absent, got %q", got.contentType)
		}
	})

	t.Run("nil token source", func(t *testing.T) {
		c := New(srv.URL+"/api", nil)
		if _, err := c.Request(context.Background(), http.MethodGet, "/listings", nil); err != nil {
			t.Fatalf("Request failed: %v", err)
		}
	})
}

func TestRequestResults(t *testing.T) {
	tests := []struct {
		name    string
		handler func(w http.ResponseWriter, r *http.Request)
		wantNil bool
		wantErr string
		status  int
	}{
		{
			name: "json body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, []int{1, 2})
			},
		},
		{
			name:    "no content",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) },
			wantNil: true,
		},
		{
			name: "accepted with body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusAccepted, map[string]string{"x": "y"})
			},
			wantNil: true,
		},
		{
			name: "non json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				io.WriteString(w, "hello")
			},
			wantNil: true,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, "{broken")
			},
			wantNil: true,
		},
		{
			name: "error with body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid credentials"})
			},
			wantErr: "{\"message\":\"Invalid credentials\"}\n",
			status:  http.StatusBadRequest,
		},
		{
			name:    "error without body",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			wantErr: "HTTP error! status: 500",
			status:  http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.handler)
			c := New(srv.URL, nil)
			raw, err := c.Request(context.Background(), http.MethodGet, "/x", nil)
			if tt.wantErr != "" {
				var reqErr *RequestError
				if !errors.As(err, &reqErr) {
					t.Fatalf("err = %v, want *RequestError", err)
				}
				if reqErr.StatusCode != tt.status {
					t.Errorf("StatusCode = %d, want %d", reqErr.StatusCode, tt.status)
				}
				if reqErr.Error() != tt.wantErr {
					t.Errorf("Error() = %q, want %q", reqErr.Error(), tt.wantErr)
				}
				if StatusCode(err) != tt.status {
					t.Errorf("StatusCode(err) = %d", StatusCode(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			if tt.wantNil && raw != nil {
				t.Errorf("raw = %s, want nil", raw)
			}
			if !tt.wantNil && raw == nil {
				t.Error("raw is nil, want body")
			}
		})
	}
}

func TestRequestErrorMessage(t *testing.T) {
	err := &RequestError{StatusCode: 400, Body: `{"message":"Invalid credentials"}`}
	if err.Message() != "Invalid credentials" {
		t.Errorf("Message() = %q", err.Message())
	}
	plain := &RequestError{StatusCode: 404}
	if plain.Message() != "HTTP error! status: 404" || !plain.NotFound() {
		t.Errorf("Message() = %q", plain.Message())
	}
}

func TestRequestCanceled(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, nil)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := New(srv.URL, nil)
	_, err := c.Request(ctx, http.MethodGet, "/x", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
