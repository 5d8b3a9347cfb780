// Package views holds the Bartr route views. Each view is a component the
// shell mounts for one route; views talk to the backend only through the
// services in Deps.
package views

import (
	"context"
	"log/slog"
	"time"

	"github.com/bartr-dev/bartr/pkg/auth"
	"github.com/bartr-dev/bartr/pkg/component"
	"github.com/bartr-dev/bartr/pkg/debounce"
	"github.com/bartr-dev/bartr/pkg/listings"
	"github.com/bartr-dev/bartr/pkg/messages"
	"github.com/bartr-dev/bartr/pkg/model"
	"github.com/bartr-dev/bartr/pkg/router"
	"github.com/bartr-dev/bartr/pkg/session"
	"github.com/bartr-dev/bartr/pkg/shell"
)

// Deps are the services shared by every view of one client.
type Deps struct {
	Session  *session.Store
	Auth     *auth.Service
	Listings *listings.Service
	Messages *messages.Service
	Logger   *slog.Logger
	// SearchDelay is the marketplace search debounce. Zero means
	// debounce.DefaultDelay.
	SearchDelay time.Duration
	Now         func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.SearchDelay <= 0 {
		d.SearchDelay = debounce.DefaultDelay
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func (d Deps) currentUser() *model.User {
	if d.Session == nil || !d.Session.Authenticated() {
		return nil
	}
	return d.Session.CachedUser()
}

// Install adds a loader for every view to reg.
func Install(reg *shell.Registry, deps Deps) {
	deps = deps.withDefaults()
	add := func(name string, build func(component.Host, Deps) component.Component) {
		reg.Register(name, func(ctx context.Context, host component.Host) (component.Component, error) {
			return build(host, deps), nil
		})
	}
	add(router.ComponentHome, func(h component.Host, d Deps) component.Component { return NewHome(h, d) })
	add(router.ComponentMarketplace, func(h component.Host, d Deps) component.Component { return NewMarketplace(h, d) })
	add(router.ComponentProfile, func(h component.Host, d Deps) component.Component { return NewProfile(h, d) })
	add(router.ComponentLogin, func(h component.Host, d Deps) component.Component { return NewLogin(h, d) })
	add(router.ComponentRegister, func(h component.Host, d Deps) component.Component { return NewRegister(h, d) })
	add(router.ComponentMessages, func(h component.Host, d Deps) component.Component { return NewMessages(h, d) })
}
