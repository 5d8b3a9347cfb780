// Package component defines the contract between the shell and the views it
// mounts, and Base, the lifecycle helper views embed.
package component

import (
	"context"
	"sync"

	"github.com/bartr-dev/bartr/pkg/vdom"
)

// Component is a mounted view.
type Component interface {
	// Render returns the view tree for the current state.
	Render() *vdom.VNode
	// Destroy releases resources. It must be safe to call more than once,
	// and on a component that was never rendered.
	Destroy()
}

// Navigator changes the current route.
type Navigator interface {
	NavigateTo(path string)
	ActivePath() string
}

// Scheduler runs state changes on the shell goroutine.
type Scheduler interface {
	// Dispatch queues fn and re-renders the mounted view after it runs.
	Dispatch(fn func())
	// Track registers in-flight work. The returned func marks it done.
	Track() (done func())
}

// Host is what the shell exposes to the component it mounts.
type Host interface {
	Navigator
	Scheduler
}

// Mounter is implemented by components that start work once mounted, such
// as the first data fetch. Mount runs on the shell goroutine.
type Mounter interface {
	Mount()
}

// Titled is implemented by components that set the document title.
type Titled interface {
	Title() string
}

// Base carries the lifecycle context of a component. The zero value is a
// component that was never initialized: Context is already canceled and
// Destroy is a no-op.
type Base struct {
	mu        sync.Mutex
	host      Host
	ctx       context.Context
	cancel    context.CancelFunc
	destroyed bool
	cleanups  []func()
}

// Init binds the component to host and starts its lifecycle context.
// Calling Init twice is a no-op.
func (b *Base) Init(host Host) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx != nil || b.destroyed {
		return
	}
	b.host = host
	b.ctx, b.cancel = context.WithCancel(context.Background())
}

// Host returns the host set by Init.
func (b *Base) Host() Host {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.host
}

// Context returns the lifecycle context. It is canceled by Destroy.
func (b *Base) Context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return canceledContext
	}
	return b.ctx
}

// Alive reports whether the component is initialized and not destroyed.
func (b *Base) Alive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx != nil && !b.destroyed
}

// OnDestroy registers fn to run once on Destroy, in reverse order of
// registration. fn runs immediately if the component is already destroyed.
func (b *Base) OnDestroy(fn func()) {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		fn()
		return
	}
	b.cleanups = append(b.cleanups, fn)
	b.mu.Unlock()
}

// Go runs work in a tracked goroutine with the lifecycle context. The func
// work returns, when non-nil, is applied on the shell goroutine only if the
// component is still alive at that point.
func (b *Base) Go(work func(ctx context.Context) func()) {
	b.mu.Lock()
	host, ctx, alive := b.host, b.ctx, b.ctx != nil && !b.destroyed
	b.mu.Unlock()
	if !alive || host == nil {
		return
	}

	done := host.Track()
	go func() {
		defer done()
		apply := work(ctx)
		if apply == nil {
			return
		}
		host.Dispatch(func() {
			if b.Alive() {
				apply()
			}
		})
	}()
}

// Invalidate queues a re-render of the mounted view.
func (b *Base) Invalidate() {
	if host := b.Host(); host != nil {
		host.Dispatch(func() {})
	}
}

// Navigate asks the host to change route.
func (b *Base) Navigate(path string) {
	if host := b.Host(); host != nil {
		host.NavigateTo(path)
	}
}

// ActivePath returns the host's current location, "/" before Init.
func (b *Base) ActivePath() string {
	if host := b.Host(); host != nil {
		return host.ActivePath()
	}
	return "/"
}

// Destroy cancels the lifecycle context and runs cleanups once.
func (b *Base) Destroy() {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true
	cancel := b.cancel
	cleanups := b.cleanups
	b.cleanups = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

var canceledContext = func() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}()
