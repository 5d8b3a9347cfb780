package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bartr-dev/bartr/pkg/vdom"
)

func TestRenderElement(t *testing.T) {
	tests := []struct {
		name string
		node *vdom.VNode
		want string
	}{
		{"empty div", vdom.Div(), "<div></div>"},
		{"attributes sorted", vdom.A(vdom.Href("/marketplace"), vdom.Class("nav-link")), `<a class="nav-link" href="/marketplace"></a>`},
		{"void element", vdom.Input(vdom.Type("text"), vdom.Required()), `<input required type="text">`},
		{"false boolean omitted", vdom.Button(vdom.AttrIf(false, vdom.Disabled()), "Go"), "<button>Go</button>"},
		{"text escaped", vdom.P(vdom.Text(`<b>"hi"</b>`)), "<p>&lt;b&gt;&quot;hi&quot;&lt;/b&gt;</p>"},
		{"raw untouched", vdom.Div(vdom.Raw("<pre>art</pre>")), "<div><pre>art</pre></div>"},
		{"fragment flattens", vdom.Fragment(vdom.Span(), vdom.Span()), "<span></span><span></span>"},
		{"data attribute", vdom.Span(vdom.Data("route", "/login")), `<span data-route="/login"></span>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRenderer(RendererConfig{})
			got, err := r.RenderToString(tt.node)
			if err != nil {
				t.Fatalf("RenderToString failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderRegistersHandlers(t *testing.T) {
	var clicked bool
	tree := vdom.Div(
		vdom.Button(vdom.OnClick(func() { clicked = true }), "Open"),
		vdom.Form(vdom.OnSubmit(func(vdom.Event) {}), vdom.Input(vdom.OnInput(func(string) {}))),
	)

	r := NewRenderer(RendererConfig{})
	html, err := r.RenderToString(tree)
	if err != nil {
		t.Fatalf("RenderToString failed: %v", err)
	}
	if !strings.Contains(html, `<button data-hid="h1" data-on="click">`) {
		t.Errorf("button markup missing hid: %s", html)
	}
	if !strings.Contains(html, `data-hid="h3" data-on="input"`) {
		t.Errorf("input markup missing hid: %s", html)
	}

	handlers := r.Handlers()
	if len(handlers) != 3 {
		t.Fatalf("handlers = %d, want 3", len(handlers))
	}
	if err := vdom.Invoke(handlers[vdom.HandlerKey("h1", "onclick")], vdom.Event{}); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !clicked {
		t.Error("click handler was not invoked")
	}

	r.Reset()
	if len(r.Handlers()) != 0 {
		t.Error("Reset did not clear handlers")
	}
}

func TestRenderPage(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	var buf bytes.Buffer
	err := r.RenderPage(&buf, PageData{
		Title:       "Bartr <beta>",
		StyleSheets: []string{"/css/main.css"},
		SessionID:   "s1",
		Path:        "/marketplace",
		Seq:         4,
		Body:        vdom.Div(vdom.Class("marketplace-container")),
	})
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		`<html lang="en">`,
		"<title>Bartr &lt;beta&gt;</title>",
		`<link rel="stylesheet" href="/css/main.css">`,
		`<div id="page-content"><div class="marketplace-container"></div></div>`,
		`src="/_bartr/client.js" data-session="s1" data-path="/marketplace" data-seq="4"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q\n%s", want, out)
		}
	}
}

func TestEscapeAttr(t *testing.T) {
	if got := escapeAttr("a\"b\nc"); got != "a&quot;b&#10;c" {
		t.Errorf("escapeAttr = %q", got)
	}
	if got := EscapeHTML("Tom & Jerry's"); got != "Tom &amp; Jerry&#39;s" {
		t.Errorf("EscapeHTML = %q", got)
	}
}
