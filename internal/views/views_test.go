package views

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bartr-dev/bartr/pkg/api"
	"github.com/bartr-dev/bartr/pkg/auth"
	"github.com/bartr-dev/bartr/pkg/listings"
	"github.com/bartr-dev/bartr/pkg/messages"
	"github.com/bartr-dev/bartr/pkg/model"
	"github.com/bartr-dev/bartr/pkg/router"
	"github.com/bartr-dev/bartr/pkg/session"
	"github.com/bartr-dev/bartr/pkg/shell"
	"github.com/bartr-dev/bartr/pkg/vdom"
	"github.com/bartr-dev/bartr/pkg/vtest"
)

type backend struct {
	mu     sync.Mutex
	calls  []string
	bodies map[string]string
	srv    *httptest.Server
}

func (b *backend) count(call string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (b *backend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

type env struct {
	host    *vtest.Host
	deps    Deps
	store   *session.Store
	backend *backend
}

var (
	alex  = &model.User{ID: 1, Name: "Alex Johnson", Email: "alex@bartr.test", Location: "Downtown"}
	fixed = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
)

// newEnv starts a fake API. routes are keyed by "METHOD /api/path".
func newEnv(t *testing.T, routes map[string]http.HandlerFunc) *env {
	t.Helper()
	b := &backend{bodies: make(map[string]string)}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls = append(b.calls, r.Method+" "+r.URL.RequestURI())
		b.mu.Unlock()
		if h, ok := routes[r.Method+" "+r.URL.Path]; ok {
			h(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(b.srv.Close)

	store := session.NewStore(session.NewMemoryStorage())
	client := api.New(b.srv.URL+"/api", store)
	return &env{
		host:    vtest.NewHost("/"),
		store:   store,
		backend: b,
		deps: Deps{
			Session:     store,
			Auth:        auth.NewService(client, store, nil),
			Listings:    listings.NewService(client),
			Messages:    messages.NewService(client),
			SearchDelay: 20 * time.Millisecond,
			Now:         func() time.Time { return fixed },
		}.withDefaults(),
	}
}

func (e *env) signIn(t *testing.T, user *model.User) {
	t.Helper()
	ctx := context.Background()
	if err := e.store.SetTokens(ctx, session.Tokens{AccessToken: "acc"}); err != nil {
		t.Fatal(err)
	}
	if err := e.store.SetCachedUser(ctx, user); err != nil {
		t.Fatal(err)
	}
}

func reply(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
}

func noContent(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }

func text(root *vdom.VNode) string { return vdom.TextContent(root) }

func TestLoginSuccess(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"POST /api/auth/login": reply(http.StatusOK, model.AuthResponse{AccessToken: "acc", RefreshToken: "ref", ExpiresIn: 3600, User: alex}),
	})
	l := NewLogin(e.host, e.deps)

	vtest.Submit(t, l.Render(), "login-form", map[string]string{"email": " alex@bartr.test ", "password": "password123"})
	if got := text(l.Render()); !strings.Contains(got, "Signing in...") {
		t.Errorf("loading label missing: %s", got)
	}
	e.host.Wait()

	if n := e.backend.count("POST /api/auth/login"); n != 1 {
		t.Errorf("login requests = %d, want 1", n)
	}
	if got := e.host.Navigations(); len(got) != 1 || got[0] != "/profile" {
		t.Errorf("navigated = %v, want [/profile]", got)
	}
	if e.store.AccessToken() != "acc" {
		t.Errorf("access token = %q", e.store.AccessToken())
	}
}

func TestLoginFailure(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"POST /api/auth/login": reply(http.StatusBadRequest, model.ErrorResponse{Message: "Invalid credentials"}),
	})
	l := NewLogin(e.host, e.deps)

	vtest.Submit(t, l.Render(), "login-form", map[string]string{"email": "alex@bartr.test", "password": "wrong"})
	e.host.Wait()

	root := l.Render()
	if got := text(root); !strings.Contains(got, loginFailedMsg) {
		t.Errorf("error text missing: %s", got)
	}
	if e.store.Authenticated() {
		t.Error("tokens stored after failed login")
	}
	if len(e.host.Navigations()) != 0 {
		t.Errorf("navigated after failure: %v", e.host.Navigations())
	}
	if v := vdom.FindByID(root, "login-email").Attr("value"); v != "alex@bartr.test" {
		t.Errorf("email not kept: %q", v)
	}
}

func TestLoginValidation(t *testing.T) {
	e := newEnv(t, nil)
	l := NewLogin(e.host, e.deps)
	vtest.Submit(t, l.Render(), "login-form", map[string]string{"email": "", "password": ""})
	e.host.Wait()
	if e.backend.total() != 0 {
		t.Error("request issued for empty form")
	}
	if !strings.Contains(text(l.Render()), loginRequiredMsg) {
		t.Error("validation message missing")
	}
}

func TestPasswordReset(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"POST /api/auth/password-reset": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusAccepted) },
	})
	l := NewLogin(e.host, e.deps)

	vtest.Click(t, vdom.FindByID(l.Render(), "forgot-password-btn"), vdom.Event{})
	e.host.Wait()
	if !strings.Contains(text(l.Render()), resetNeedsEmail) || e.backend.total() != 0 {
		t.Fatal("reset without email should only show a hint")
	}

	vtest.Click(t, vdom.FindByID(l.Render(), "forgot-password-btn"), vdom.Event{Form: map[string]string{"email": "alex@bartr.test"}})
	e.host.Wait()
	if e.backend.count("POST /api/auth/password-reset") != 1 {
		t.Error("reset request not sent")
	}
	if got := text(l.Render()); !strings.Contains(got, resetSentMsg) || strings.Contains(got, resetNeedsEmail) {
		t.Errorf("after reset: %s", got)
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   string
	}{
		{"missing name", map[string]string{"email": "a@b.c", "password": "password123", "confirmPassword": "password123"}, registerRequiredMsg},
		{"missing email", map[string]string{"name": "Alex", "password": "password123", "confirmPassword": "password123"}, registerRequiredMsg},
		{"short password", map[string]string{"name": "Alex", "email": "a@b.c", "password": "short", "confirmPassword": "short"}, passwordShortMsg},
		{"mismatch", map[string]string{"name": "Alex", "email": "a@b.c", "password": "password123", "confirmPassword": "password124"}, passwordMismatchMsg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, nil)
			r := NewRegister(e.host, e.deps)
			vtest.Submit(t, r.Render(), "register-form", tt.fields)
			e.host.Wait()
			if e.backend.total() != 0 {
				t.Error("request issued despite invalid form")
			}
			if got := text(r.Render()); !strings.Contains(got, tt.want) {
				t.Errorf("want %q in %s", tt.want, got)
			}
		})
	}
}

func TestRegisterSuccessAndFailure(t *testing.T) {
	fields := map[string]string{
		"name": "Alex Johnson", "email": "alex@bartr.test", "password": "password123",
		"confirmPassword": "password123", "location": "Downtown",
	}

	t.Run("success", func(t *testing.T) {
		e := newEnv(t, map[string]http.HandlerFunc{
			"POST /api/auth/register": reply(http.StatusCreated, model.AuthResponse{AccessToken: "new", User: alex}),
		})
		r := NewRegister(e.host, e.deps)
		vtest.Submit(t, r.Render(), "register-form", fields)
		e.host.Wait()
		if got := e.host.Navigations(); len(got) != 1 || got[0] != "/profile" {
			t.Errorf("navigated = %v", got)
		}
	})

	t.Run("email taken", func(t *testing.T) {
		e := newEnv(t, map[string]http.HandlerFunc{
			"POST /api/auth/register": reply(http.StatusBadRequest, model.ErrorResponse{Message: "Email already registered"}),
		})
		r := NewRegister(e.host, e.deps)
		vtest.Submit(t, r.Render(), "register-form", fields)
		e.host.Wait()
		root := r.Render()
		if !strings.Contains(text(root), "Email already registered") {
			t.Errorf("backend message not shown: %s", text(root))
		}
		if v := vdom.FindByID(root, "register-name").Attr("value"); v != "Alex Johnson" {
			t.Errorf("name not kept: %q", v)
		}
	})
}

var sampleListings = []model.Listing{
	{ID: 1, Title: "Vintage Camera", Category: "Electronics", Location: "Downtown", TradeFor: "Laptop or bicycle", OwnerID: 2, OwnerName: "Maya Lee", PostedDate: fixed.Add(-48 * time.Hour)},
	{ID: 2, Title: "Mountain Bike", Category: "Sports", Location: "North Side", OwnerID: 1},
}

func TestMarketplaceSearchDebounced(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /api/listings": func(w http.ResponseWriter, r *http.Request) {
			out := sampleListings
			if r.URL.Query().Get("category") == "Electronics" {
				out = sampleListings[:1]
			}
			reply(http.StatusOK, out)(w, r)
		},
	})
	m := NewMarketplace(e.host, e.deps)
	defer m.Destroy()

	m.Mount()
	e.host.Wait()
	if got := text(m.Render()); !strings.Contains(got, "Mountain Bike") || !strings.Contains(got, "2 days ago") {
		t.Fatalf("initial grid: %s", got)
	}

	root := m.Render()
	electronics := vdom.Find(root, func(n *vdom.VNode) bool { return n.Attr("data-category") == "Electronics" })
	vtest.Click(t, electronics, vdom.Event{})
	e.host.Wait()

	root = m.Render()
	search := vdom.FindByID(root, "marketplace-search")
	for _, v := range []string{"c", "ca", "cam", "came", "camera"} {
		vtest.Input(t, search, v)
	}
	e.host.Wait()

	if n := e.backend.count("GET /api/listings?category=Electronics&search=camera"); n != 1 {
		t.Errorf("debounced search requests = %d, want 1; calls %v", n, e.backend.calls)
	}
	if e.backend.total() != 3 {
		t.Errorf("total requests = %d, want 3: %v", e.backend.total(), e.backend.calls)
	}

	root = m.Render()
	active := vdom.FindByClass(root, "active")
	if len(active) != 1 || vdom.TextContent(active[0]) != "Electronics" {
		t.Errorf("active filter wrong: %d", len(active))
	}
	if strings.Contains(text(root), "Mountain Bike") {
		t.Error("filtered grid still shows other categories")
	}
}

func TestMarketplaceStaleResponseIgnored(t *testing.T) {
	release := make(chan struct{})
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /api/listings": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("category") == "" {
				<-release
				reply(http.StatusOK, sampleListings)(w, r)
				return
			}
			reply(http.StatusOK, sampleListings[:1])(w, r)
		},
	})
	m := NewMarketplace(e.host, e.deps)
	defer m.Destroy()

	m.Mount()
	m.selectCategory("Electronics")
	time.Sleep(20 * time.Millisecond)
	close(release)
	e.host.Wait()

	if len(m.listings) != 1 || m.listings[0].ID != 1 {
		t.Errorf("listings = %+v, want the Electronics result", m.listings)
	}
}

func TestMarketplaceEmptyAndModal(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /api/listings":      reply(http.StatusOK, sampleListings[:1]),
		"GET /api/user/listings": reply(http.StatusOK, []model.Listing{{ID: 2, Title: "Mountain Bike"}}),
		"POST /api/messages":     reply(http.StatusCreated, model.Message{ID: 9}),
	})
	e.signIn(t, alex)
	m := NewMarketplace(e.host, e.deps)
	defer m.Destroy()
	m.Mount()
	e.host.Wait()

	card := vdom.FindByClass(m.Render(), "listing-card")
	if len(card) != 1 {
		t.Fatalf("cards = %d", len(card))
	}
	vtest.Click(t, card[0], vdom.Event{})
	e.host.Wait()

	root := m.Render()
	for _, want := range []string{"Description", "Trade For", "Category", "Listed by Maya Lee", "Mountain Bike"} {
		if !strings.Contains(text(root), want) {
			t.Errorf("modal missing %q", want)
		}
	}

	vtest.Submit(t, root, "contact-form", map[string]string{"message": "  "})
	if !strings.Contains(text(m.Render()), emptyMessageMsg) || e.backend.count("POST /api/messages") != 0 {
		t.Error("blank message should not be sent")
	}

	vtest.Submit(t, m.Render(), "contact-form", map[string]string{"message": "Still available?", "offer": "2"})
	e.host.Wait()
	if e.backend.count("POST /api/messages") != 1 {
		t.Error("message not sent")
	}
	if !strings.Contains(text(m.Render()), messageSentMsg) {
		t.Error("sent notice missing")
	}

	vtest.Click(t, vdom.Find(m.Render(), func(n *vdom.VNode) bool { return n.HasClass("modal-close") }), vdom.Event{})
	if vdom.FindByClass(m.Render(), "listing-modal") != nil {
		t.Error("modal still open")
	}
}

func TestMarketplaceNoResults(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /api/listings": reply(http.StatusOK, []model.Listing{}),
	})
	m := NewMarketplace(e.host, e.deps)
	defer m.Destroy()
	m.Mount()
	e.host.Wait()
	if !strings.Contains(text(m.Render()), "No listings found") {
		t.Error("empty state missing")
	}
}

func TestPageHeaderMarksActiveSection(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /api/listings": reply(http.StatusOK, []model.Listing{}),
	})
	host := vtest.NewHost("/marketplace")
	m := NewMarketplace(host, e.deps)
	defer m.Destroy()
	m.Mount()
	host.Wait()

	root := m.Render()
	navLink := func(route string) *vdom.VNode {
		return vdom.Find(root, func(n *vdom.VNode) bool {
			return n.HasClass("nav-link") && n.Attr("data-route") == route
		})
	}
	for route, active := range map[string]bool{"/marketplace": true, "/messages": false, "/profile": false} {
		link := navLink(route)
		if link == nil {
			t.Fatalf("nav link %s missing", route)
		}
		if link.HasClass("active") != active {
			t.Errorf("%s class = %q, active want %v", route, link.Attr("class"), active)
		}
	}
	if back := vdom.Find(root, func(n *vdom.VNode) bool { return n.HasClass("back-button") }); back == nil || back.Attr("href") != "/" {
		t.Errorf("back button = %v", back)
	}
}

// removeFails accepts writes but cannot delete, so clearing a session fails.
type removeFails struct{ session.Storage }

func (removeFails) Remove(context.Context, string) error { return errors.New("storage unavailable") }

func TestHomeLogoutLogsStorageFailure(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"POST /api/auth/logout": noContent,
	})
	store := session.NewStore(removeFails{session.NewMemoryStorage()})
	client := api.New(e.backend.srv.URL+"/api", store)
	var logs bytes.Buffer
	e.deps.Session = store
	e.deps.Auth = auth.NewService(client, store, nil)
	e.deps.Messages = messages.NewService(client)
	e.deps.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	e.store = store
	e.signIn(t, alex)

	h := NewHome(e.host, e.deps)
	vtest.Click(t, vdom.FindByID(h.Render(), "logout-button"), vdom.Event{})
	e.host.Wait()

	if e.backend.count("POST /api/auth/logout") != 1 {
		t.Error("logout request not sent")
	}
	if out := logs.String(); !strings.Contains(out, "logout failed") || !strings.Contains(out, "storage unavailable") {
		t.Errorf("logs = %s", out)
	}
}

func inboxFixture() []model.Message {
	return []model.Message{
		{ID: 4, ListingID: 1, ListingTitle: "Vintage Camera", SenderID: 2, SenderName: "Maya Lee", ReceiverID: 1, ReceiverName: "Alex Johnson",
			Content: strings.Repeat("x", 130), SentAt: fixed},
		{ID: 5, ListingID: 3, ListingTitle: "Acoustic Guitar", SenderID: 3, SenderName: "Jordan Smith", ReceiverID: 1, Read: true, Content: "Thanks!", SentAt: fixed},
	}
}

func TestMessagesMarkReadOnce(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /api/messages/inbox":     reply(http.StatusOK, inboxFixture()),
		"GET /api/messages/sent":      reply(http.StatusOK, []model.Message{}),
		"GET /api/messages/listing/1": reply(http.StatusOK, inboxFixture()[:1]),
		"PUT /api/messages/4/read":    reply(http.StatusOK, model.Message{ID: 4, Read: true}),
	})
	e.signIn(t, alex)
	m := NewMessages(e.host, e.deps)
	m.Mount()
	e.host.Wait()

	root := m.Render()
	if got := len(vdom.FindByClass(root, "message-card-unread")); got != 1 {
		t.Fatalf("unread markers = %d, want 1", got)
	}
	if !strings.Contains(text(root), "Inbox (1)") || !strings.Contains(text(root), "No sent messages yet.") {
		t.Errorf("lists: %s", text(root))
	}
	preview := vdom.FindByClass(root, "message-card-preview")[0]
	if got := []rune(vdom.TextContent(preview)); len(got) != previewLength+1 {
		t.Errorf("preview length = %d", len(got))
	}

	card := vdom.Find(root, func(n *vdom.VNode) bool { return n.HasClass("message-card") && n.Attr("data-id") == "4" })
	vtest.Click(t, card, vdom.Event{})
	e.host.Wait()

	root = m.Render()
	card = vdom.Find(root, func(n *vdom.VNode) bool { return n.HasClass("message-card") && n.Attr("data-id") == "4" })
	vtest.Click(t, card, vdom.Event{})
	e.host.Wait()

	if n := e.backend.count("PUT /api/messages/4/read"); n != 1 {
		t.Errorf("read requests = %d, want 1", n)
	}
	if n := e.backend.count("GET /api/messages/inbox"); n != 1 {
		t.Errorf("inbox fetched %d times, want 1", n)
	}
	if n := e.backend.count("GET /api/messages/listing/1?participantId=2"); n != 2 {
		t.Errorf("thread requests = %d, want 2", n)
	}

	root = m.Render()
	if got := len(vdom.FindByClass(root, "message-card-unread")); got != 0 {
		t.Errorf("unread markers after open = %d", got)
	}
	if !strings.Contains(text(root), "Conversation with Maya Lee") {
		t.Errorf("thread header missing: %s", text(root))
	}
	if vdom.FindByID(root, "messages-reply-form") == nil {
		t.Error("reply form missing")
	}
}

func TestMessagesReplyAndDelete(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /api/messages/inbox":     reply(http.StatusOK, inboxFixture()[1:]),
		"GET /api/messages/sent":      reply(http.StatusOK, []model.Message{}),
		"GET /api/messages/listing/3": reply(http.StatusOK, inboxFixture()[1:]),
		"POST /api/messages":          reply(http.StatusCreated, model.Message{ID: 6}),
		"DELETE /api/messages/5":      noContent,
	})
	e.signIn(t, alex)
	m := NewMessages(e.host, e.deps)
	m.Mount()
	e.host.Wait()

	vtest.Click(t, vdom.FindByClass(m.Render(), "message-card")[0], vdom.Event{})
	e.host.Wait()
	if e.backend.count("PUT /api/messages/5/read") != 0 {
		t.Error("read message marked again")
	}

	vtest.Submit(t, m.Render(), "messages-reply-form", map[string]string{"reply": "Deal!"})
	e.host.Wait()
	if e.backend.count("POST /api/messages") != 1 {
		t.Error("reply not sent")
	}
	if e.backend.count("GET /api/messages/inbox") != 2 {
		t.Error("lists not refreshed after reply")
	}

	del := vdom.FindByClass(m.Render(), "conversation-message-delete")
	if len(del) != 1 {
		t.Fatalf("delete buttons = %d", len(del))
	}
	vtest.Click(t, del[0], vdom.Event{})
	e.host.Wait()
	if len(m.inbox) != 0 || len(m.conversation) != 0 {
		t.Errorf("message not removed locally: inbox=%d conv=%d", len(m.inbox), len(m.conversation))
	}
}

func TestMessagesLoggedOut(t *testing.T) {
	e := newEnv(t, nil)
	m := NewMessages(e.host, e.deps)
	m.Mount()
	e.host.Wait()

	root := m.Render()
	if !strings.Contains(text(root), "Sign in to view and manage your messages.") {
		t.Error("logged-out prompt missing")
	}
	for _, route := range []string{"/login", "/register"} {
		if vdom.Find(root, func(n *vdom.VNode) bool { return n.Attr("data-route") == route }) == nil {
			t.Errorf("link to %s missing", route)
		}
	}
	if e.backend.total() != 0 {
		t.Error("logged-out view issued requests")
	}
}

func TestHomeOptions(t *testing.T) {
	t.Run("signed out", func(t *testing.T) {
		e := newEnv(t, nil)
		h := NewHome(e.host, e.deps)
		h.Mount()
		e.host.Wait()
		root := h.Render()
		for _, route := range []string{"/marketplace", "/profile", "/messages", "/login", "/register"} {
			if vdom.Find(root, func(n *vdom.VNode) bool { return n.Attr("data-route") == route }) == nil {
				t.Errorf("option %s missing", route)
			}
		}
		if vdom.FindByID(root, "bartr-ascii") == nil {
			t.Error("title art missing")
		}
	})

	t.Run("signed in", func(t *testing.T) {
		e := newEnv(t, map[string]http.HandlerFunc{
			"GET /api/messages/unread/count": reply(http.StatusOK, 2),
			"POST /api/auth/logout":          noContent,
		})
		e.signIn(t, alex)
		h := NewHome(e.host, e.deps)
		h.Mount()
		e.host.Wait()

		root := h.Render()
		if !strings.Contains(text(root), "Messages (2)") || !strings.Contains(text(root), "Signed in as Alex Johnson") {
			t.Errorf("signed-in home: %s", text(root))
		}
		vtest.Click(t, vdom.FindByID(root, "logout-button"), vdom.Event{})
		e.host.Wait()
		if e.store.Authenticated() {
			t.Error("still authenticated after logout")
		}
		if vdom.Find(h.Render(), func(n *vdom.VNode) bool { return n.Attr("data-route") == "/login" }) == nil {
			t.Error("login option missing after logout")
		}
	})
}

func TestProfile(t *testing.T) {
	updated := *alex
	updated.Bio = "Collector"
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /api/auth/me":           reply(http.StatusOK, alex),
		"PUT /api/auth/me":           reply(http.StatusOK, &updated),
		"GET /api/user/listings":     reply(http.StatusOK, []model.Listing{{ID: 2, Title: "Mountain Bike", Category: "Sports"}}),
		"GET /api/messages/inbox":    reply(http.StatusOK, inboxFixture()),
		"POST /api/listings":         reply(http.StatusCreated, model.Listing{ID: 7, Title: "Kayak", Category: "Sports"}),
		"DELETE /api/listings/2":     noContent,
		"POST /api/auth/me/password": noContent,
	})
	e.signIn(t, alex)
	p := NewProfile(e.host, e.deps)
	p.Mount()
	e.host.Wait()

	root := p.Render()
	for _, want := range []string{"USER PROFILE", "MY LISTINGS (1)", "Mountain Bike", "MESSAGES (2)", "AJ"} {
		if !strings.Contains(text(root), want) {
			t.Errorf("profile missing %q", want)
		}
	}

	vtest.Click(t, vdom.FindByID(root, "edit-profile-btn"), vdom.Event{})
	vtest.Submit(t, p.Render(), "user-info-edit", map[string]string{"name": "Alex Johnson", "bio": "Collector"})
	e.host.Wait()
	if e.backend.count("PUT /api/auth/me") != 1 || !strings.Contains(text(p.Render()), "Collector") {
		t.Error("profile update not applied")
	}

	vtest.Submit(t, p.Render(), "password-form", map[string]string{"newPassword": "short", "confirmNewPassword": "short"})
	if e.backend.count("POST /api/auth/me/password?newPassword=short") != 0 || !strings.Contains(text(p.Render()), passwordShortMsg) {
		t.Error("short password should be rejected locally")
	}
	vtest.Submit(t, p.Render(), "password-form", map[string]string{"newPassword": "longenough1", "confirmNewPassword": "longenough1"})
	e.host.Wait()
	if e.backend.count("POST /api/auth/me/password?newPassword=longenough1") != 1 {
		t.Error("password change not sent")
	}

	vtest.Click(t, vdom.FindByID(p.Render(), "add-listing-btn"), vdom.Event{})
	vtest.Submit(t, p.Render(), "listing-form", map[string]string{"title": "Kayak", "category": "Nope"})
	if !strings.Contains(text(p.Render()), "Choose a category.") {
		t.Error("category validation missing")
	}
	vtest.Submit(t, p.Render(), "listing-form", map[string]string{"title": "Kayak", "category": "Sports"})
	e.host.Wait()
	if !strings.Contains(text(p.Render()), "MY LISTINGS (2)") {
		t.Errorf("created listing not added: %s", text(p.Render()))
	}

	del := vdom.Find(p.Render(), func(n *vdom.VNode) bool { return n.Attr("data-action") == "delete" })
	vtest.Click(t, del, vdom.Event{})
	confirm := vdom.Find(p.Render(), func(n *vdom.VNode) bool { return n.Attr("data-action") == "confirm-delete" })
	if confirm == nil || confirm.Attr("data-id") != "7" {
		t.Fatalf("confirm button = %v", confirm)
	}
}

func TestProfileSignedOut(t *testing.T) {
	e := newEnv(t, nil)
	p := NewProfile(e.host, e.deps)
	p.Mount()
	if !strings.Contains(text(p.Render()), "Sign in to view your profile.") || e.backend.total() != 0 {
		t.Error("signed-out profile should prompt without requests")
	}
}

func TestInstall(t *testing.T) {
	reg := shell.NewRegistry()
	Install(reg, Deps{})
	want := []string{
		router.ComponentLogin, router.ComponentRegister, router.ComponentHome,
		router.ComponentMarketplace, router.ComponentMessages, router.ComponentProfile,
	}
	for _, name := range want {
		if _, ok := reg.Lookup(name); !ok {
			t.Errorf("loader %q not registered", name)
		}
	}
}
