package views

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bartr-dev/bartr/pkg/api"
	"github.com/bartr-dev/bartr/pkg/router"
	. "github.com/bartr-dev/bartr/pkg/vdom"
)

// pageHeader is the back button and the section links shown above every
// view but home. The entry for active is marked.
func pageHeader(active string) *VNode {
	return Nav(Class("page-nav"),
		router.Link("/", Class("back-button"), AriaLabel("Back"), "<"),
		router.NavLink(active, "/marketplace", "Marketplace"),
		router.NavLink(active, "/messages", "Messages"),
		router.NavLink(active, "/profile", "Profile"),
	)
}

func artBlock(containerID, preID, art string) *VNode {
	return Div(ID(containerID), Class("art-container"),
		Pre(ID(preID), Class("ascii-art"), AriaHidden(true), art),
	)
}

func formGroup(label, id string, control *VNode) *VNode {
	return Div(Class("form-group"),
		Label(Class("form-label"), For(id), label),
		control,
	)
}

func formError(msg string) *VNode {
	if msg == "" {
		return nil
	}
	return Div(Class("form-error"), Role("alert"), msg)
}

func formNotice(msg string) *VNode {
	if msg == "" {
		return nil
	}
	return Div(Class("auth-success"), AriaLive("polite"), msg)
}

func signInPrompt(message string) *VNode {
	return Div(Class("no-results"),
		P(message),
		Div(Class("auth-links"),
			router.RouteLink("/login", Href("/login"), Class("link-button"), "Sign in"),
			Span(Class("auth-divider"), "or"),
			router.RouteLink("/register", Href("/register"), Class("link-button"), "Create account"),
		),
	)
}

// errorText returns the backend's message for a request error, or fallback.
func errorText(err error, fallback string) string {
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) {
		// Message falls back to Error when the body has no JSON message.
		if msg := reqErr.Message(); msg != "" && msg != reqErr.Error() {
			return msg
		}
	}
	return fallback
}

func initials(name string) string {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "??"
	case 1:
		r := []rune(fields[0])
		if len(r) > 2 {
			r = r[:2]
		}
		return strings.ToUpper(string(r))
	default:
		first := []rune(fields[0])
		last := []rune(fields[len(fields)-1])
		return strings.ToUpper(string(first[0]) + string(last[0]))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// timeAgo renders t relative to now the way listing cards show it.
func timeAgo(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	case d < 7*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	case d < 30*24*time.Hour:
		return plural(int(d/(7*24*time.Hour)), "week") + " ago"
	default:
		return t.Format("Jan 2, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2, 2006 3:04 PM")
}
