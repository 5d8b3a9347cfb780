package vtest_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/bartr-dev/bartr/pkg/component"
	. "github.com/bartr-dev/bartr/pkg/vdom"
	"github.com/bartr-dev/bartr/pkg/vtest"
)

type greeter struct {
	component.Base
	name    string
	clicks  int
	fetched bool
}

func (g *greeter) Render() *VNode {
	return Div(
		Form(ID("name-form"), OnSubmit(func(ev Event) { g.name = ev.Field("name") })),
		Input(ID("name"), OnInput(func(v string) { g.name = v })),
		Button(ID("go"), OnClick(func() { g.clicks++; g.Navigate("/hello/" + g.name) })),
		P("Hello, ", g.name),
	)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHostEvents(t *testing.T) {
	host := vtest.NewHost("/hello")
	g := &greeter{}
	g.Init(host)

	vtest.Submit(t, g.Render(), "name-form", map[string]string{"name": "Maya"})
	vtest.ExpectContains(t, g.Render(), "Hello, Maya")

	vtest.Input(t, FindByID(g.Render(), "name"), "Alex")
	vtest.Click(t, FindByID(g.Render(), "go"), Event{})
	vtest.ExpectNotContains(t, g.Render(), "Maya")
	vtest.ExpectNavigated(t, host, "/hello/Alex")

	if host.ActivePath() != "/hello" {
		t.Errorf("ActivePath() = %q", host.ActivePath())
	}
	if vtest.NewHost("").ActivePath() != "/" {
		t.Error("empty host should report /")
	}
}

func TestHostWaitsForTrackedWork(t *testing.T) {
	host := vtest.NewHost("/")
	g := &greeter{}
	g.Init(host)

	g.Go(func(ctx context.Context) func() {
		return func() { g.fetched = true }
	})
	host.Wait()
	if !g.fetched {
		t.Error("tracked work not applied before Wait returned")
	}
	if host.Dispatched() != 1 {
		t.Errorf("Dispatched() = %d, want 1", host.Dispatched())
	}
}

func TestTrackDoneIsIdempotent(t *testing.T) {
	host := vtest.NewHost("/")
	done := host.Track()
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done()
		}()
	}
	wg.Wait()
	host.Wait()
}

func TestRenderToString(t *testing.T) {
	html := vtest.RenderToString(P(Class("note"), "a < b"))
	if !strings.Contains(html, `class="note"`) || !strings.Contains(html, "a &lt; b") {
		t.Errorf("RenderToString() = %q", html)
	}
}
