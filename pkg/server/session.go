package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/bartr-dev/bartr/pkg/router"
	"github.com/bartr-dev/bartr/pkg/session"
	"github.com/bartr-dev/bartr/pkg/shell"
	"github.com/bartr-dev/bartr/pkg/vdom"
)

// Session is one page load: a shell with its mounted view and, once the
// browser client connects, the WebSocket it renders to. A session survives
// dropped connections until it has been idle for SessionConfig.IdleTimeout.
type Session struct {
	ID        string
	BrowserID string
	IP        string

	shell   *shell.Shell
	config  *SessionConfig
	limiter *rate.Limiter
	metrics *metrics
	logger  *slog.Logger

	// writeMu serializes writes on conn.
	writeMu sync.Mutex

	mu         sync.Mutex
	conn       *websocket.Conn
	lastActive time.Time
	closed     bool
}

type sessionParams struct {
	id, browserID, ip, path string
	storage                 session.Storage
	setup                   Setup
	title                   string
	config                  *SessionConfig
	metrics                 *metrics
	logger                  *slog.Logger
}

func newSession(p sessionParams) *Session {
	s := &Session{
		ID:         p.id,
		BrowserID:  p.browserID,
		IP:         p.ip,
		config:     p.config,
		limiter:    rate.NewLimiter(rate.Limit(p.config.EventRate), p.config.EventBurst),
		metrics:    p.metrics,
		logger:     p.logger.With("session", p.id),
		lastActive: time.Now(),
	}
	registry, routes := p.setup(p.storage)
	s.shell = shell.New(shell.Config{
		Routes:   routes,
		Registry: registry,
		History:  shell.NewMemoryHistory(router.Normalize(p.path)),
		Output:   shell.OutputFunc(s.deliver),
		Logger:   s.logger,
		Observer: shell.Observer{Route: p.metrics.observer(), Load: p.metrics.loadObserver()},
		Title:    p.title,
	})
	s.shell.HandleRoute()
	return s
}

// Shell returns the session's application shell.
func (s *Session) Shell() *shell.Shell { return s.shell }

// Render waits up to timeout for the mounted view to settle and returns the
// current frame.
func (s *Session) Render(ctx context.Context, timeout time.Duration) shell.Frame {
	settled := make(chan struct{})
	go func() {
		s.shell.Wait()
		close(settled)
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-settled:
	case <-timer.C:
		s.logger.Warn("view did not settle before first paint", "timeout", timeout)
	case <-ctx.Done():
	}
	return s.shell.Frame()
}

// Connected reports whether a client is attached.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

func (s *Session) idleSince(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed || (s.conn == nil && now.Sub(s.lastActive) > timeout)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// Serve attaches conn and runs its read loop until the connection ends.
// A second connection replaces the first.
func (s *Session) Serve(conn *websocket.Conn) {
	if !s.attach(conn) {
		s.sendTo(conn, serverMessage{T: msgReload})
		conn.Close()
		return
	}
	stop := make(chan struct{})
	go s.heartbeat(conn, stop)
	s.readLoop(conn)
	close(stop)
	s.detach(conn)
}

func (s *Session) attach(conn *websocket.Conn) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	old := s.conn
	s.conn = conn
	s.lastActive = time.Now()
	s.mu.Unlock()

	if old != nil {
		old.Close()
	} else {
		s.metrics.connected(1)
	}
	s.logger.Debug("client attached", "ip", s.IP)

	// Queued so it cannot overtake a frame the shell is about to deliver.
	s.shell.Dispatch(func() {
		fr := s.shell.Frame()
		s.sendTo(conn, frameMessage(fr))
	})
	return true
}

func (s *Session) detach(conn *websocket.Conn) {
	s.mu.Lock()
	current := s.conn == conn
	if current {
		s.conn = nil
		s.lastActive = time.Now()
	}
	s.mu.Unlock()

	if current {
		s.metrics.connected(-1)
		s.logger.Debug("client detached")
	}
	conn.Close()
}

func (s *Session) readLoop(conn *websocket.Conn) {
	deadline := 2 * s.config.HeartbeatInterval
	conn.SetReadLimit(s.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		s.touch()
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Warn("read error", "error", err)
			}
			return
		}
		s.touch()
		conn.SetReadDeadline(time.Now().Add(deadline))

		if !s.limiter.Allow() {
			s.metrics.limited()
			s.sendTo(conn, serverMessage{T: msgError, Message: "Too many events"})
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("message decode error", "error", err)
			continue
		}
		s.handle(msg)
	}
}

func (s *Session) handle(msg clientMessage) {
	switch msg.T {
	case msgEvent:
		if msg.HID == "" || msg.Type == "" {
			return
		}
		s.shell.HandleEvent(msg.Seq, msg.HID, vdom.Event{Type: msg.Type, Value: msg.Value, Form: msg.Form})
	case msgClick:
		s.shell.HandleClick(router.ClickTarget{Route: msg.Route, Href: msg.Href, Target: msg.Target})
	case msgPopstate:
		s.shell.Popstate(msg.Path)
	default:
		s.logger.Warn("unknown message", "t", msg.T)
		return
	}
	s.metrics.message(msg.T)
}

func (s *Session) heartbeat(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.WriteTimeout))
			s.writeMu.Unlock()
			if err != nil {
				conn.Close()
				return
			}
		case <-stop:
			return
		}
	}
}

// deliver is the shell output. Frames rendered while no client is attached
// are dropped; attach resends the latest one.
func (s *Session) deliver(fr shell.Frame) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		s.sendTo(conn, frameMessage(fr))
	}
}

func frameMessage(fr shell.Frame) serverMessage {
	return serverMessage{T: msgFrame, Seq: fr.Seq, Path: fr.Path, Title: fr.Title, HTML: fr.HTML}
}

func (s *Session) sendTo(conn *websocket.Conn, msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("encode message", "error", err)
		return
	}
	s.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	err = conn.WriteMessage(websocket.TextMessage, data)
	s.writeMu.Unlock()
	if err != nil {
		s.logger.Debug("write failed", "error", err)
		conn.Close()
		return
	}
	if msg.T == msgFrame {
		s.metrics.frame(len(data))
	}
}

// Close drops the client and destroys the mounted view. Close is
// idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		s.metrics.connected(-1)
		conn.Close()
	}
	s.shell.Close()
}
