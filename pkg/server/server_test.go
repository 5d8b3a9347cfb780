package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bartr-dev/bartr/pkg/component"
	"github.com/bartr-dev/bartr/pkg/router"
	"github.com/bartr-dev/bartr/pkg/session"
	"github.com/bartr-dev/bartr/pkg/shell"
	. "github.com/bartr-dev/bartr/pkg/vdom"
)

type counter struct {
	component.Base
	n int
}

func (c *counter) Render() *VNode {
	return Div(
		Button(ID("inc"), Type("button"), OnClick(func() { c.n++ }), "+"),
		P(fmt.Sprintf("Count: %d", c.n)),
	)
}

type about struct{ component.Base }

func (a *about) Render() *VNode { return P("About Bartr") }
func (a *about) Title() string  { return "About" }

type fixture struct {
	ts  *httptest.Server
	srv *Server

	mu       sync.Mutex
	storages []session.Storage
}

func newFixture(t *testing.T, mutate func(*ServerConfig)) *fixture {
	t.Helper()
	f := &fixture{}
	config := &ServerConfig{
		Setup: func(storage session.Storage) (*shell.Registry, *router.Table) {
			f.mu.Lock()
			f.storages = append(f.storages, storage)
			f.mu.Unlock()
			reg := shell.NewRegistry()
			reg.Register("counter", func(context.Context, component.Host) (component.Component, error) {
				return &counter{}, nil
			})
			reg.Register("about", func(context.Context, component.Host) (component.Component, error) {
				return &about{}, nil
			})
			return reg, router.NewTable(map[string]string{"/": "counter", "/about": "about"})
		},
		Registerer: prometheus.NewRegistry(),
	}
	if mutate != nil {
		mutate(config)
	}
	srv, err := New(config)
	if err != nil {
		t.Fatal(err)
	}
	f.srv = srv
	f.ts = httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		f.ts.Close()
		srv.Close()
	})
	return f
}

var sessionAttr = regexp.MustCompile(`data-session="([^"]+)"`)

// load fetches path and returns the body, the session id and the browser
// cookie in effect.
func (f *fixture) load(t *testing.T, path, browser string) (body, sessionID, cookie string) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, f.ts.URL+path, nil)
	if browser != "" {
		req.AddCookie(&http.Cookie{Name: "bartr_browser", Value: browser})
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s = %d %s", path, resp.StatusCode, data)
	}
	cookie = browser
	for _, c := range resp.Cookies() {
		if c.Name == "bartr_browser" {
			cookie = c.Value
		}
	}
	m := sessionAttr.FindStringSubmatch(string(data))
	if m == nil {
		t.Fatalf("no session id in %s", data)
	}
	return string(data), m[1], cookie
}

func (f *fixture) dial(t *testing.T, sessionID, browser string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + LivePath + "?session=" + sessionID
	header := http.Header{}
	if browser != "" {
		header.Set("Cookie", "bartr_browser="+browser)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

func readMessage(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg serverMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

// readFrame skips intermediate frames, such as the one rendered while a
// view loads, until one contains want.
func readFrame(t *testing.T, conn *websocket.Conn, want string) serverMessage {
	t.Helper()
	for i := 0; i < 5; i++ {
		msg := readMessage(t, conn)
		if msg.T == msgFrame && strings.Contains(msg.HTML, want) {
			return msg
		}
	}
	t.Fatalf("no frame containing %q", want)
	return serverMessage{}
}

func TestPageRender(t *testing.T) {
	f := newFixture(t, nil)

	body, id, browser := f.load(t, "/", "")
	if browser == "" {
		t.Fatal("no browser cookie issued")
	}
	for _, want := range []string{"Count: 0", `<div id="page-content">`, `data-hid="h1"`, `data-seq="`, `src="/_bartr/client.js"`, "<title>Bartr</title>"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if f.srv.Sessions().Get(id) == nil {
		t.Error("session not registered")
	}

	body, _, _ = f.load(t, "/about", browser)
	if !strings.Contains(body, "About Bartr") || !strings.Contains(body, "<title>About | Bartr</title>") {
		t.Errorf("about page = %s", body)
	}
	body, _, _ = f.load(t, "/nowhere", browser)
	if !strings.Contains(body, "Count: 0") {
		t.Error("unknown path did not fall back to the default view")
	}
}

func TestBrowserStorageShared(t *testing.T) {
	f := newFixture(t, nil)
	_, _, browser := f.load(t, "/", "")
	f.load(t, "/", browser)
	f.load(t, "/", "")

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.storages) != 3 {
		t.Fatalf("setups = %d", len(f.storages))
	}
	if f.storages[0] != f.storages[1] {
		t.Error("same browser got different storage")
	}
	if f.storages[0] == f.storages[2] {
		t.Error("different browsers share storage")
	}
}

func TestLiveSession(t *testing.T) {
	f := newFixture(t, nil)
	_, id, browser := f.load(t, "/", "")

	conn, _, err := f.dial(t, id, browser)
	if err != nil {
		t.Fatal(err)
	}
	first := readMessage(t, conn)
	if first.T != msgFrame || !strings.Contains(first.HTML, "Count: 0") || first.Path != "/" {
		t.Fatalf("first = %+v", first)
	}

	send := func(msg clientMessage) {
		t.Helper()
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatal(err)
		}
	}

	send(clientMessage{T: msgEvent, Seq: first.Seq, HID: "h1", Type: "click"})
	second := readMessage(t, conn)
	if !strings.Contains(second.HTML, "Count: 1") || second.Seq <= first.Seq {
		t.Fatalf("after click = %+v", second)
	}

	// An event from the replaced frame is dropped.
	send(clientMessage{T: msgEvent, Seq: first.Seq, HID: "h1", Type: "click"})
	send(clientMessage{T: msgEvent, Seq: second.Seq, HID: "h1", Type: "click"})
	if msg := readMessage(t, conn); !strings.Contains(msg.HTML, "Count: 2") {
		t.Fatalf("after stale and current click = %+v", msg)
	}

	send(clientMessage{T: msgClick, Route: "/about"})
	msg := readFrame(t, conn, "About Bartr")
	if msg.Path != "/about" || msg.Title != "About | Bartr" || !strings.Contains(msg.HTML, "About Bartr") {
		t.Fatalf("after route click = %+v", msg)
	}

	send(clientMessage{T: msgPopstate, Path: "/"})
	msg = readFrame(t, conn, "Count: 0")
	if msg.Path != "/" || !strings.Contains(msg.HTML, "Count: 0") {
		t.Fatalf("after popstate = %+v", msg)
	}

	if !f.srv.Sessions().Get(id).Connected() {
		t.Error("session not connected")
	}
}

func TestLiveRejectsForeignBrowser(t *testing.T) {
	f := newFixture(t, nil)
	_, id, _ := f.load(t, "/", "")

	_, resp, err := f.dial(t, id, "00000000-0000-0000-0000-000000000000")
	if err == nil {
		t.Fatal("foreign browser attached")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("resp = %v", resp)
	}
}

func TestLiveUnknownSessionReloads(t *testing.T) {
	f := newFixture(t, nil)
	conn, _, err := f.dial(t, "gone", "")
	if err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg.T != msgReload {
		t.Errorf("msg = %+v", msg)
	}
}

func TestLiveRateLimit(t *testing.T) {
	f := newFixture(t, func(c *ServerConfig) {
		c.SessionConfig = &SessionConfig{EventRate: 0.001, EventBurst: 1}
	})
	_, id, browser := f.load(t, "/", "")
	conn, _, err := f.dial(t, id, browser)
	if err != nil {
		t.Fatal(err)
	}
	first := readMessage(t, conn)

	conn.WriteJSON(clientMessage{T: msgEvent, Seq: first.Seq, HID: "h1", Type: "click"})
	if msg := readMessage(t, conn); msg.T != msgFrame {
		t.Fatalf("first event = %+v", msg)
	}
	conn.WriteJSON(clientMessage{T: msgEvent, Seq: first.Seq, HID: "h1", Type: "click"})
	if msg := readMessage(t, conn); msg.T != msgError || msg.Message != "Too many events" {
		t.Fatalf("second event = %+v", msg)
	}
}

func TestSessionLimits(t *testing.T) {
	f := newFixture(t, func(c *ServerConfig) { c.MaxSessions = 1 })
	f.load(t, "/", "")

	resp, err := http.Get(f.ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestReap(t *testing.T) {
	f := newFixture(t, func(c *ServerConfig) {
		c.SessionConfig = &SessionConfig{IdleTimeout: time.Minute}
	})
	_, idle, _ := f.load(t, "/", "")
	_, live, browser := f.load(t, "/", "")
	conn, _, err := f.dial(t, live, browser)
	if err != nil {
		t.Fatal(err)
	}
	readMessage(t, conn)

	if n := f.srv.Sessions().Reap(time.Now()); n != 0 {
		t.Errorf("reaped %d fresh sessions", n)
	}
	if n := f.srv.Sessions().Reap(time.Now().Add(time.Hour)); n != 1 {
		t.Errorf("reaped %d, want 1", n)
	}
	if f.srv.Sessions().Get(idle) != nil || f.srv.Sessions().Get(live) == nil {
		t.Error("wrong session reaped")
	}
}

func TestServeClient(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := http.Get(f.ts.URL + ClientPath)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	etag := resp.Header.Get("ETag")
	if resp.StatusCode != http.StatusOK || etag == "" || !strings.Contains(string(body), "/_bartr/live") {
		t.Fatalf("client = %d etag=%q", resp.StatusCode, etag)
	}

	req, _ := http.NewRequest(http.MethodGet, f.ts.URL+ClientPath, nil)
	req.Header.Set("If-None-Match", "W/"+etag)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotModified {
		t.Errorf("revalidate = %d", resp.StatusCode)
	}
}

func TestNewRequiresSetup(t *testing.T) {
	if _, err := New(&ServerConfig{}); err == nil {
		t.Error("New without Setup succeeded")
	}
}
