package views

import (
	"context"
	"fmt"

	"github.com/bartr-dev/bartr/pkg/component"
	"github.com/bartr-dev/bartr/pkg/model"
	"github.com/bartr-dev/bartr/pkg/router"
	. "github.com/bartr-dev/bartr/pkg/vdom"
)

type homeOption struct {
	route string
	label string
}

// Home is the landing view with the title art and the main options.
type Home struct {
	component.Base
	deps Deps

	user   *model.User
	unread int64
}

// NewHome creates the home view.
func NewHome(host component.Host, deps Deps) *Home {
	h := &Home{deps: deps, user: deps.currentUser()}
	h.Init(host)
	return h
}

// Title implements component.Titled.
func (h *Home) Title() string { return "Home" }

// Mount loads the unread count for signed-in users.
func (h *Home) Mount() {
	if h.user == nil || h.deps.Messages == nil {
		return
	}
	h.Go(func(ctx context.Context) func() {
		n, err := h.deps.Messages.UnreadCount(ctx)
		if err != nil {
			h.deps.Logger.Warn("unread count failed", "error", err)
			return nil
		}
		return func() { h.unread = n }
	})
}

func (h *Home) options() []homeOption {
	opts := []homeOption{
		{"/marketplace", "Marketplace"},
		{"/profile", "Profile"},
		{"/messages", "Messages"},
	}
	if h.user == nil {
		return append(opts, homeOption{"/login", "Login"}, homeOption{"/register", "Register"})
	}
	if h.unread > 0 {
		opts[2].label = fmt.Sprintf("Messages (%d)", h.unread)
	}
	return opts
}

func (h *Home) logout() {
	h.Go(func(ctx context.Context) func() {
		if err := h.deps.Auth.Logout(ctx); err != nil {
			h.deps.Logger.Warn("logout failed", "error", err)
		}
		return func() {
			h.user = nil
			h.unread = 0
		}
	})
}

// Render implements component.Component.
func (h *Home) Render() *VNode {
	var greeting *VNode
	if h.user != nil {
		greeting = P(Class("homepage-greeting"), "Signed in as ", Strong(h.user.Name))
	}
	return Div(Class("homepage-container"),
		artBlock("bartr-title-container", "bartr-ascii", titleArt),
		greeting,
		Nav(Class("options-grid"),
			Range(h.options(), func(o homeOption, _ int) *VNode {
				return Button(Class("select-button", "nav-link"), ClassIf(router.IsActive(h.ActivePath(), o.route), "active"),
					Type("button"), Data("route", o.route), o.label)
			}),
			When(h.user != nil, func() *VNode {
				return Button(Class("select-button"), Type("button"), ID("logout-button"), OnClick(h.logout), "Logout")
			}),
		),
	)
}
