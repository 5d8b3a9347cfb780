// Package shell is the application shell. It resolves the current location
// to a view through the route table, loads and mounts that view, and
// re-renders it after every state change.
//
// All state changes run on a single serial queue. NavigateTo, HandleRoute,
// Popstate and HandleEvent may be called from any goroutine; the work they
// describe is queued with Dispatch and applied in order. After each drained
// batch the mounted view is rendered and, when the result changed, handed to
// the configured Output.
//
// Loads are tagged with a generation counter. A load that completes after a
// newer navigation has started is discarded and its component destroyed
// without ever being mounted.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bartr-dev/bartr/pkg/component"
	"github.com/bartr-dev/bartr/pkg/render"
	"github.com/bartr-dev/bartr/pkg/router"
	"github.com/bartr-dev/bartr/pkg/vdom"
)

// State is the load state of the shell.
type State int

const (
	// StateIdle means no load is pending.
	StateIdle State = iota
	// StateLoading means a component load is in flight.
	StateLoading
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Frame is one rendered state of the page content.
type Frame struct {
	// Path is the history location the frame was rendered for.
	Path string
	// Component is the mounted component name, empty while nothing is mounted.
	Component string
	Title     string
	HTML      string
	State     State
	// Failed is set while the error panel is shown.
	Failed bool
	// Seq numbers the frames whose content changed. Events carry the Seq
	// of the frame the client was showing.
	Seq uint64
}

// Output receives rendered frames.
type Output interface {
	Render(Frame)
}

// OutputFunc adapts a function to Output.
type OutputFunc func(Frame)

// Render implements Output.
func (f OutputFunc) Render(fr Frame) { f(fr) }

// Observer is notified of shell activity. All methods may be nil.
type Observer struct {
	// Route is called for every resolved route.
	Route func(component string, matched bool)
	// Load is called when a load finishes. err is nil on success.
	Load func(component string, err error)
}

// Config configures a Shell.
type Config struct {
	Routes   *router.Table
	Registry *Registry
	History  History
	Output   Output
	Logger   *slog.Logger
	Observer Observer
	// Title is the document title when the view does not set one.
	Title string
}

// Shell owns the mounted view of one client.
type Shell struct {
	routes   *router.Table
	registry *Registry
	history  History
	output   Output
	logger   *slog.Logger
	observer Observer
	title    string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []func()
	draining bool
	inflight int
	closed   bool
	// pending holds loaded components, by generation, until finishLoad
	// takes them. Close destroys what is left.
	pending map[uint64]component.Component

	// Owned by the queue.
	gen       uint64
	state     State
	current   component.Component
	name      string
	loadErr   error
	handlers   map[string]any
	handlerSeq uint64
	lastFrame  Frame
}

var _ component.Host = (*Shell)(nil)

// New creates a Shell. Nothing is mounted until HandleRoute or NavigateTo.
func New(config Config) *Shell {
	if config.Routes == nil {
		config.Routes = router.NewTable(router.DefaultRoutes())
	}
	if config.Registry == nil {
		config.Registry = NewRegistry()
	}
	if config.History == nil {
		config.History = NewMemoryHistory("/")
	}
	if config.Output == nil {
		config.Output = OutputFunc(func(Frame) {})
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Title == "" {
		config.Title = "Bartr"
	}

	s := &Shell{
		routes:   config.Routes,
		registry: config.Registry,
		history:  config.History,
		output:   config.Output,
		logger:   config.Logger,
		observer: config.Observer,
		title:    config.Title,
	}
	s.pending = make(map[uint64]component.Component)
	s.cond = sync.NewCond(&s.mu)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Dispatch queues fn on the shell's serial queue. The mounted view is
// re-rendered once the queue drains. Dispatch after Close is a no-op.
func (s *Shell) Dispatch(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, fn)
	start := !s.draining
	s.draining = true
	s.mu.Unlock()

	if start {
		go s.drain()
	}
}

func (s *Shell) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.closed {
			s.queue = nil
			closed := s.closed
			s.mu.Unlock()
			if !closed {
				s.render()
			}
			s.mu.Lock()
			// Work queued during render gets another pass.
			if len(s.queue) > 0 && !s.closed {
				s.mu.Unlock()
				continue
			}
			s.draining = false
			s.cond.Broadcast()
			s.mu.Unlock()
			return
		}
		fn := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.run(fn)
	}
}

func (s *Shell) run(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("shell task panicked", "panic", p, "component", s.name)
		}
	}()
	fn()
}

// Track registers in-flight work for Wait.
func (s *Shell) Track() func() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.inflight--
			s.cond.Broadcast()
			s.mu.Unlock()
		})
	}
}

// Wait blocks until the queue is drained and no tracked work is in flight.
func (s *Shell) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.draining || len(s.queue) > 0 || s.inflight > 0 {
		s.cond.Wait()
	}
}

// NavigateTo pushes path (with a leading "/" ensured) onto the history and
// mounts the view it resolves to.
func (s *Shell) NavigateTo(path string) {
	path = router.Normalize(path)
	s.Dispatch(func() {
		s.history.Push(path)
		s.handleRoute()
	})
}

// HandleRoute mounts the view for the current history location.
func (s *Shell) HandleRoute() {
	s.Dispatch(s.handleRoute)
}

// Popstate handles back and forward navigation to path.
func (s *Shell) Popstate(path string) {
	path = router.Normalize(path)
	s.Dispatch(func() {
		s.history.Replace(path)
		s.handleRoute()
	})
}

// HandleClick applies link interception to a clicked element. It reports
// whether the click was taken over by the shell.
func (s *Shell) HandleClick(target router.ClickTarget) bool {
	path, ok := router.Intercept(target)
	if ok {
		s.NavigateTo(path)
	}
	return ok
}

// HandleEvent runs the handler registered for hid and ev.Type in the frame
// numbered seq. HIDs are positional, so an event from any other frame is
// dropped rather than run against whatever element now holds its hid.
func (s *Shell) HandleEvent(seq uint64, hid string, ev vdom.Event) {
	s.Dispatch(func() {
		if seq != s.handlerSeq {
			s.logger.Debug("dropping event from stale frame", "seq", seq, "current", s.handlerSeq, "hid", hid)
			return
		}
		key := vdom.HandlerKey(hid, ev.Type)
		h, ok := s.handlers[key]
		if !ok {
			s.logger.Debug("no handler for event", "key", key, "component", s.name)
			return
		}
		if err := vdom.Invoke(h, ev); err != nil {
			s.logger.Warn("event handler failed", "key", key, "error", err)
		}
	})
}

// AddRoute maps path to a component name at runtime.
func (s *Shell) AddRoute(path, componentName string) bool {
	return s.routes.AddRoute(path, componentName)
}

// ActivePath returns the current history location.
func (s *Shell) ActivePath() string {
	return s.history.Current()
}

// State returns the load state as of the last drained batch.
func (s *Shell) State() State {
	return s.Frame().State
}

// Frame returns the last rendered frame.
func (s *Shell) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFrame
}

// Close destroys the mounted view and stops accepting work. It must not be
// called from a queued task.
func (s *Shell) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	// Wait for a running task so the view is not destroyed under it.
	s.mu.Lock()
	for s.draining {
		s.cond.Wait()
	}
	cur := s.current
	s.current = nil
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	if cur != nil {
		cur.Destroy()
	}
	for _, c := range pending {
		c.Destroy()
	}
}

func (s *Shell) handleRoute() {
	path := s.history.Current()
	name, matched := s.routes.Resolve(path)
	if !matched {
		s.logger.Debug("route not found, using default", "path", path, "component", name)
	}
	if s.observer.Route != nil {
		s.observer.Route(name, matched)
	}

	s.gen++
	gen := s.gen
	s.state = StateLoading

	done := s.Track()
	go func() {
		defer done()
		c, err := s.registry.Load(s.ctx, name, s)
		if c != nil {
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				c.Destroy()
				return
			}
			s.pending[gen] = c
			s.mu.Unlock()
		}
		s.Dispatch(func() { s.finishLoad(gen, name, c, err) })
	}()
}

func (s *Shell) finishLoad(gen uint64, name string, c component.Component, err error) {
	if c != nil {
		s.mu.Lock()
		_, ok := s.pending[gen]
		delete(s.pending, gen)
		s.mu.Unlock()
		if !ok {
			return
		}
	}
	if gen != s.gen {
		s.logger.Debug("discarding stale load", "component", name)
		if c != nil {
			c.Destroy()
		}
		return
	}
	s.state = StateIdle
	if s.observer.Load != nil {
		s.observer.Load(name, err)
	}

	prev := s.current
	s.current = nil
	if prev != nil {
		prev.Destroy()
	}

	if err != nil {
		s.logger.Error("component load failed", "component", name, "error", err)
		s.name = ""
		s.loadErr = err
		return
	}
	s.name = name
	s.loadErr = nil
	s.current = c
	if m, ok := c.(component.Mounter); ok {
		m.Mount()
	}
}

func (s *Shell) render() {
	node, title, failed := s.view()

	r := render.NewRenderer(render.RendererConfig{})
	html, err := r.RenderToString(node)
	if err != nil {
		s.logger.Error("render failed", "component", s.name, "error", err)
		return
	}
	frame := Frame{
		Path:      s.history.Current(),
		Component: s.name,
		Title:     title,
		HTML:      html,
		State:     s.state,
		Failed:    failed,
	}

	s.mu.Lock()
	frame.Seq = s.lastFrame.Seq
	changed := frame != s.lastFrame
	if changed {
		frame.Seq++
	}
	s.lastFrame = frame
	s.mu.Unlock()

	s.handlers = r.Handlers()
	s.handlerSeq = frame.Seq

	if changed {
		s.output.Render(frame)
	}
}

func (s *Shell) view() (node *vdom.VNode, title string, failed bool) {
	title = s.title
	if s.loadErr != nil {
		msg := s.loadErr.Error()
		var le *LoadError
		if !errors.As(s.loadErr, &le) {
			msg = "Failed to load page"
		}
		return ErrorPanel(msg), title, true
	}
	if s.current == nil {
		return LoadingIndicator(), title, false
	}

	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("component render panicked", "component", s.name, "panic", p)
			node = ErrorPanel(fmt.Sprintf("Failed to load %s component", s.name))
			failed = true
		}
	}()
	if t, ok := s.current.(component.Titled); ok && t.Title() != "" {
		title = t.Title() + " | " + s.title
	}
	return s.current.Render(), title, false
}
