package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bartr-dev/bartr/pkg/api"
	"github.com/bartr-dev/bartr/pkg/auth"
	"github.com/bartr-dev/bartr/pkg/listings"
	"github.com/bartr-dev/bartr/pkg/messages"
	"github.com/bartr-dev/bartr/pkg/model"
	"github.com/bartr-dev/bartr/pkg/session"
	"github.com/bartr-dev/bartr/pkg/upload"
)

const testSecret = "test-secret-0123456789"

type harness struct {
	ts     *httptest.Server
	store  *Store
	tokens *TokenIssuer
}

func newHarness(t *testing.T, uploads upload.Store) *harness {
	t.Helper()
	ctx := context.Background()
	store, err := OpenStore(ctx, ":memory:")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if seeded, err := store.Seed(ctx); err != nil || !seeded {
		t.Fatalf("Seed = %v, %v", seeded, err)
	}
	tokens, err := NewTokenIssuer(testSecret, 0)
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(Config{Store: store, Tokens: tokens, Uploads: uploads})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &harness{ts: ts, store: store, tokens: tokens}
}

// client is one signed-in (or anonymous) API consumer.
type client struct {
	session  *session.Store
	auth     *auth.Service
	listings *listings.Service
	messages *messages.Service
}

func (h *harness) client(t *testing.T, email string) *client {
	t.Helper()
	store := session.NewStore(nil)
	c := api.New(h.ts.URL, store)
	cl := &client{
		session:  store,
		auth:     auth.NewService(c, store, nil),
		listings: listings.NewService(c),
		messages: messages.NewService(c),
	}
	if email != "" {
		if _, err := cl.auth.Login(context.Background(), email, DemoPassword); err != nil {
			t.Fatalf("login %s: %v", email, err)
		}
	}
	return cl
}

func wantStatus(t *testing.T, err error, status int, msg string) {
	t.Helper()
	var reqErr *api.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want status %d", err, status)
	}
	if reqErr.StatusCode != status {
		t.Errorf("status = %d, want %d (%s)", reqErr.StatusCode, status, reqErr.Body)
	}
	if msg != "" && reqErr.Message() != msg {
		t.Errorf("message = %q, want %q", reqErr.Message(), msg)
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	c := h.client(t, "")

	resp, err := c.auth.Login(ctx, " Alex@Example.com ", DemoPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.ExpiresIn != 3600 || resp.RefreshToken == "" || resp.User.Name != "Alex Johnson" {
		t.Errorf("response = %+v", resp)
	}
	claims, err := h.tokens.Parse(resp.AccessToken)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id, _ := claims.UserID(); id != resp.User.ID || claims.ID == "" {
		t.Errorf("claims sub=%s jti=%q", claims.Subject, claims.ID)
	}

	me, err := c.auth.FetchProfile(ctx)
	if err != nil || me.Email != "alex@example.com" {
		t.Fatalf("FetchProfile = %+v, %v", me, err)
	}

	other := h.client(t, "")
	_, err = other.auth.Login(ctx, "alex@example.com", "wrong-password")
	wantStatus(t, err, http.StatusBadRequest, "Invalid credentials")
	_, err = other.auth.Login(ctx, "nobody@example.com", DemoPassword)
	wantStatus(t, err, http.StatusBadRequest, "Invalid credentials")
	if other.session.Authenticated() {
		t.Error("failed login stored tokens")
	}
}

func TestRegister(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	c := h.client(t, "")

	resp, err := c.auth.Register(ctx, model.RegisterRequest{
		Name: "Sam Rivera", Email: "sam@example.com", Password: "longenough", Location: "Harbor",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.User.ID == 0 || resp.User.Location != "Harbor" || resp.User.JoinedDate.IsZero() {
		t.Errorf("user = %+v", resp.User)
	}

	tests := []struct {
		name string
		req  model.RegisterRequest
		msg  string
	}{
		{"duplicate", model.RegisterRequest{Name: "Sam", Email: "SAM@example.com", Password: "longenough"}, "Email already registered"},
		{"short password", model.RegisterRequest{Name: "Kim", Email: "kim@example.com", Password: "short"}, "Password must be at least 8 characters"},
		{"missing name", model.RegisterRequest{Email: "kim@example.com", Password: "longenough"}, "Name and email are required"},
		{"bad email", model.RegisterRequest{Name: "Kim", Email: "not-an-email", Password: "longenough"}, "Invalid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.client(t, "").auth.Register(ctx, tt.req)
			wantStatus(t, err, http.StatusBadRequest, tt.msg)
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	c := h.client(t, "maya@example.com")
	token := c.session.AccessToken()

	if err := c.auth.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if c.session.Authenticated() {
		t.Error("session not cleared")
	}

	stale := api.New(h.ts.URL, api.TokenFunc(func() string { return token }))
	err := stale.Get(ctx, "/auth/me", nil)
	wantStatus(t, err, http.StatusUnauthorized, "Authentication required")

	anon := api.New(h.ts.URL, nil)
	wantStatus(t, anon.Get(ctx, "/user/listings", nil), http.StatusUnauthorized, "")
}

func TestProfileAndPassword(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	c := h.client(t, "jordan@example.com")

	user, err := c.auth.UpdateProfile(ctx, model.UpdateProfileRequest{Bio: "Now trading tools too."})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if user.Bio != "Now trading tools too." || user.Name != "Jordan Smith" || user.Location != "West End" {
		t.Errorf("user = %+v", user)
	}
	if cached := c.session.CachedUser(); cached == nil || cached.Bio != user.Bio {
		t.Error("cache not refreshed")
	}

	wantStatus(t, c.auth.UpdatePassword(ctx, "short"), http.StatusBadRequest, "Password must be at least 8 characters")
	if err := c.auth.UpdatePassword(ctx, "brand-new-pass"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	fresh := h.client(t, "")
	if _, err := fresh.auth.Login(ctx, "jordan@example.com", "brand-new-pass"); err != nil {
		t.Errorf("login with new password: %v", err)
	}

	if err := h.client(t, "").auth.RequestPasswordReset(ctx, "anyone@example.com"); err != nil {
		t.Errorf("RequestPasswordReset: %v", err)
	}
}

func TestListListings(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	c := h.client(t, "")

	tests := []struct {
		category, search string
		want             []string
	}{
		{"", "", nil},
		{"All", "", nil},
		{"Electronics", "", []string{"Vintage Camera", "Acoustic Guitar"}},
		{"", "camera", []string{"Vintage Camera"}},
		{"Electronics", "guitar", []string{"Acoustic Guitar"}},
		{"Home", "camera", []string{}},
		{"", "JACKET", []string{"Winter Jacket"}},
		{"", "north", []string{"Winter Jacket", "Mountain Bike"}},
	}
	for _, tt := range tests {
		t.Run(tt.category+"/"+tt.search, func(t *testing.T) {
			got, err := c.listings.List(ctx, tt.category, tt.search)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if tt.want == nil {
				if len(got) != 8 {
					t.Errorf("got %d listings, want 8", len(got))
				}
				if got[0].Title != "Coffee Maker" {
					t.Errorf("first = %q, want newest", got[0].Title)
				}
				return
			}
			var titles []string
			for _, l := range got {
				titles = append(titles, l.Title)
			}
			if strings.Join(titles, ",") != strings.Join(tt.want, ",") {
				t.Errorf("titles = %v, want %v", titles, tt.want)
			}
		})
	}
}

func TestListingOwnership(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	maya := h.client(t, "maya@example.com")
	alex := h.client(t, "alex@example.com")

	created, err := maya.listings.Create(ctx, model.CreateListingRequest{Title: " Sewing Machine ", Category: "Home"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Title != "Sewing Machine" || created.OwnerName != "Maya Lee" {
		t.Errorf("created = %+v", created)
	}

	_, err = maya.listings.Create(ctx, model.CreateListingRequest{Title: "Thing", Category: "Toys"})
	wantStatus(t, err, http.StatusBadRequest, "Invalid category")

	_, err = alex.listings.Update(ctx, created.ID, model.CreateListingRequest{Title: "Mine now", Category: "Home"})
	wantStatus(t, err, http.StatusForbidden, "You can only modify your own listings")
	wantStatus(t, alex.listings.Delete(ctx, created.ID), http.StatusForbidden, "")

	updated, err := maya.listings.Update(ctx, created.ID, model.CreateListingRequest{Title: "Sewing Machine", TradeFor: "Fabric", Category: "Home"})
	if err != nil || updated.TradeFor != "Fabric" {
		t.Fatalf("Update = %+v, %v", updated, err)
	}

	mine, err := maya.listings.UserListings(ctx)
	if err != nil || len(mine) != 4 {
		t.Errorf("UserListings = %d, %v", len(mine), err)
	}
	byUser, err := alex.listings.ByUser(ctx, created.OwnerID)
	if err != nil || len(byUser) != 4 {
		t.Errorf("ByUser = %d, %v", len(byUser), err)
	}

	if err := maya.listings.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = alex.listings.Get(ctx, created.ID)
	wantStatus(t, err, http.StatusNotFound, "Listing not found")
}

func findListing(t *testing.T, c *client, title string) model.Listing {
	t.Helper()
	all, err := c.listings.List(context.Background(), "", title)
	if err != nil || len(all) == 0 {
		t.Fatalf("listing %q: %v", title, err)
	}
	return all[0]
}

func TestMessageRules(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	alex := h.client(t, "alex@example.com")
	jordan := h.client(t, "jordan@example.com")
	maya := h.client(t, "maya@example.com")

	bike := findListing(t, alex, "Mountain Bike")  // owned by Jordan
	camera := findListing(t, alex, "Vintage Camera") // owned by Alex
	jordanID := bike.OwnerID
	alexID := camera.OwnerID

	tests := []struct {
		name   string
		client *client
		req    model.SendMessageRequest
		status int
		msg    string
	}{
		{"blank", alex, model.SendMessageRequest{ListingID: bike.ID, Content: "   "}, 400, "Message content cannot be blank"},
		{"missing listing", alex, model.SendMessageRequest{ListingID: 999, Content: "Hi"}, 404, "Listing not found"},
		{"owner without receiver", jordan, model.SendMessageRequest{ListingID: bike.ID, Content: "Hi"}, 400, "Receiver must be provided when the sender is the listing owner"},
		{"to self", jordan, model.SendMessageRequest{ListingID: bike.ID, ReceiverID: jordanID, Content: "Hi"}, 400, "Cannot send a message to yourself"},
		{"no owner involved", maya, model.SendMessageRequest{ListingID: bike.ID, ReceiverID: alexID, Content: "Hi"}, 400, "At least one participant must be the listing owner"},
		{"foreign offer", alex, model.SendMessageRequest{ListingID: bike.ID, Content: "Hi", OfferListingID: bike.ID}, 400, "You can only offer your own listings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.client.messages.Send(ctx, tt.req)
			wantStatus(t, err, tt.status, tt.msg)
		})
	}

	sent, err := alex.messages.Send(ctx, model.SendMessageRequest{ListingID: bike.ID, Content: " Trade for my camera? ", OfferListingID: camera.ID})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.ReceiverID != jordanID || sent.Content != "Trade for my camera?" || sent.Read || sent.OfferListingTitle != "Vintage Camera" {
		t.Errorf("sent = %+v", sent)
	}

	if n, err := jordan.messages.UnreadCount(ctx); err != nil || n != 1 {
		t.Errorf("UnreadCount = %d, %v", n, err)
	}
	inbox, err := jordan.messages.Inbox(ctx)
	if err != nil || len(inbox) != 1 || inbox[0].SenderName != "Alex Johnson" || inbox[0].ListingTitle != "Mountain Bike" {
		t.Fatalf("Inbox = %+v, %v", inbox, err)
	}

	_, err = alex.messages.MarkAsRead(ctx, sent.ID)
	wantStatus(t, err, http.StatusForbidden, "Only the recipient can mark this message as read")
	_, err = maya.messages.MarkAsRead(ctx, sent.ID)
	wantStatus(t, err, http.StatusForbidden, "You do not have access to this message")
	read, err := jordan.messages.MarkAsRead(ctx, sent.ID)
	if err != nil || !read.Read {
		t.Fatalf("MarkAsRead = %+v, %v", read, err)
	}
	if n, _ := jordan.messages.UnreadCount(ctx); n != 0 {
		t.Errorf("unread after read = %d", n)
	}

	if _, err := jordan.messages.Send(ctx, model.SendMessageRequest{ListingID: bike.ID, ReceiverID: alexID, Content: "Deal"}); err != nil {
		t.Fatalf("reply: %v", err)
	}
	thread, err := alex.messages.Thread(ctx, bike.ID, jordanID)
	if err != nil || len(thread) != 2 || thread[0].ID != sent.ID || thread[1].Content != "Deal" {
		t.Fatalf("Thread = %+v, %v", thread, err)
	}
	all, err := alex.messages.Thread(ctx, bike.ID, 0)
	if err != nil || len(all) != 2 {
		t.Errorf("listing thread = %d, %v", len(all), err)
	}
	if others, _ := maya.messages.Thread(ctx, bike.ID, 0); len(others) != 0 {
		t.Errorf("non-participant sees %d messages", len(others))
	}
	outbox, err := alex.messages.Sent(ctx)
	if err != nil || len(outbox) != 1 {
		t.Errorf("Sent = %d, %v", len(outbox), err)
	}

	wantStatus(t, maya.messages.Delete(ctx, sent.ID), http.StatusForbidden, "")
	if err := alex.messages.Delete(ctx, sent.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	wantStatus(t, alex.messages.Delete(ctx, sent.ID), http.StatusNotFound, "Message not found")
}

func TestUploads(t *testing.T) {
	disk, err := upload.NewDiskStore(t.TempDir(), "/uploads", 0)
	if err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, disk)
	c := h.client(t, "alex@example.com")

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")
	post := func(token string) *http.Response {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, _ := mw.CreateFormFile("file", "item.png")
		part.Write(png)
		mw.Close()
		req, _ := http.NewRequest(http.MethodPost, h.ts.URL+"/uploads", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	resp := post("")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous upload = %d", resp.StatusCode)
	}

	resp = post(c.session.AccessToken())
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || !strings.Contains(string(body), `"url":"/uploads/`) {
		t.Fatalf("upload = %d %s", resp.StatusCode, body)
	}

	key := strings.TrimSuffix(strings.SplitN(string(body), `"/uploads/`, 2)[1], "\"}\n")
	get, err := http.Get(h.ts.URL + "/uploads/" + key)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := io.ReadAll(get.Body)
	get.Body.Close()
	if get.StatusCode != http.StatusOK || !bytes.Equal(got, png) {
		t.Errorf("GET upload = %d, %d bytes", get.StatusCode, len(got))
	}
}

func TestTokenIssuer(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	raw, _, err := issuer.Issue(42)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("expired", func(t *testing.T) {
		late := *issuer
		late.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		if _, err := late.Parse(raw); !errors.Is(err, errInvalidToken) {
			t.Errorf("err = %v", err)
		}
	})
	t.Run("wrong secret", func(t *testing.T) {
		other, _ := NewTokenIssuer("another-secret-0123456789", time.Minute)
		if _, err := other.Parse(raw); !errors.Is(err, errInvalidToken) {
			t.Errorf("err = %v", err)
		}
	})
	t.Run("none algorithm", func(t *testing.T) {
		unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "42", ID: "x", Issuer: "bartr"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		if _, err := issuer.Parse(unsigned); !errors.Is(err, errInvalidToken) {
			t.Errorf("err = %v", err)
		}
	})
	t.Run("short secret", func(t *testing.T) {
		if _, err := NewTokenIssuer("short", 0); err == nil {
			t.Error("short secret accepted")
		}
	})
}

func TestSeedOnce(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if seeded, err := store.Seed(ctx); err != nil || !seeded {
		t.Fatalf("first Seed = %v, %v", seeded, err)
	}
	if seeded, err := store.Seed(ctx); err != nil || seeded {
		t.Fatalf("second Seed = %v, %v", seeded, err)
	}
	if n, _ := store.CountListings(ctx); n != len(seedListings) {
		t.Errorf("listings = %d", n)
	}
}

func TestPurgeExpired(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	if err := h.store.RevokeToken(ctx, "old", time.Now().Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := h.store.RevokeToken(ctx, "live", time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	n, err := h.store.PurgeExpired(ctx)
	if err != nil || n != 1 {
		t.Errorf("PurgeExpired = %d, %v", n, err)
	}
	if revoked, _ := h.store.TokenRevoked(ctx, "live"); !revoked {
		t.Error("live revocation purged")
	}
}
