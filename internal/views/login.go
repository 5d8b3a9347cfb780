package views

import (
	"context"
	"strings"

	"github.com/bartr-dev/bartr/pkg/component"
	. "github.com/bartr-dev/bartr/pkg/vdom"
)

const (
	loginFailedMsg   = "Unable to sign in. Double check your email and password."
	loginRequiredMsg = "Enter your email and password."
	resetNeedsEmail  = "Enter your email above to reset your password."
	resetFailedMsg   = "Unable to send password reset right now."
	resetSentMsg     = "Password reset email sent. Check your inbox."
)

// Login is the sign-in view.
type Login struct {
	component.Base
	deps Deps

	email     string
	loading   bool
	err       string
	resetSent bool
}

// NewLogin creates the sign-in view.
func NewLogin(host component.Host, deps Deps) *Login {
	l := &Login{deps: deps}
	l.Init(host)
	return l
}

// Title implements component.Titled.
func (l *Login) Title() string { return "Sign In" }

func (l *Login) submit(ev Event) {
	if l.loading {
		return
	}
	email := strings.TrimSpace(ev.Field("email"))
	password := ev.Field("password")
	l.email = email
	if email == "" || password == "" {
		l.err = loginRequiredMsg
		return
	}

	l.loading = true
	l.err = ""
	l.Go(func(ctx context.Context) func() {
		_, err := l.deps.Auth.Login(ctx, email, password)
		return func() {
			l.loading = false
			if err != nil {
				l.deps.Logger.Info("login failed", "error", err)
				l.err = loginFailedMsg
				return
			}
			l.Navigate("/profile")
		}
	})
}

func (l *Login) resetPassword(ev Event) {
	email := strings.TrimSpace(ev.Field("email"))
	if email != "" {
		l.email = email
	}
	if l.email == "" {
		l.err = resetNeedsEmail
		return
	}
	email = l.email
	l.Go(func(ctx context.Context) func() {
		err := l.deps.Auth.RequestPasswordReset(ctx, email)
		return func() {
			if err != nil {
				l.deps.Logger.Warn("password reset failed", "error", err)
				l.err = resetFailedMsg
				return
			}
			l.resetSent = true
			l.err = ""
		}
	})
}

// Render implements component.Component.
func (l *Login) Render() *VNode {
	label := "Sign In"
	if l.loading {
		label = "Signing in..."
	}
	return Div(Class("auth-container"),
		Div(Class("auth-wrapper"),
			pageHeader(l.ActivePath()),
			Div(Class("auth-card"),
				H1(Class("auth-title"), "Welcome Back"),
				P(Class("auth-subtitle"), "Log in to manage your trades"),
				Form(ID("login-form"), Class("auth-form"), Novalidate(), OnSubmit(l.submit),
					formGroup("Email", "login-email", Input(
						Type("email"), ID("login-email"), Name("email"), Class("form-input"),
						Placeholder("you@example.com"), Autocomplete("email"), Required(), Value(l.email),
					)),
					formGroup("Password", "login-password", Input(
						Type("password"), ID("login-password"), Name("password"), Class("form-input"),
						Placeholder("••••••••"), Autocomplete("current-password"), Required(),
					)),
					formError(l.err),
					Button(Type("submit"), Class("form-btn", "form-btn-primary"), AttrIf(l.loading, Disabled()), label),
				),
				Div(Class("auth-actions"),
					Button(ID("forgot-password-btn"), Type("button"), Class("link-button"), OnClick(l.resetPassword), "Forgot password?"),
					Span(Class("auth-divider"), "•"),
					A(Data("route", "/register"), Href("/register"), Class("link-button"), "Create account"),
				),
				If(l.resetSent, formNotice(resetSentMsg)),
			),
		),
	)
}
