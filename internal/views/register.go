package views

import (
	"context"
	"strings"

	"github.com/bartr-dev/bartr/pkg/component"
	"github.com/bartr-dev/bartr/pkg/model"
	. "github.com/bartr-dev/bartr/pkg/vdom"
)

// MinPasswordLength is the shortest password the views accept.
const MinPasswordLength = 8

const (
	registerRequiredMsg = "Name and email are required."
	passwordShortMsg    = "Password must be at least 8 characters."
	passwordMismatchMsg = "Passwords do not match."
	registerFailedMsg   = "Unable to create your account right now."
)

// Register is the account creation view.
type Register struct {
	component.Base
	deps Deps

	form    model.RegisterRequest
	loading bool
	err     string
}

// NewRegister creates the registration view.
func NewRegister(host component.Host, deps Deps) *Register {
	r := &Register{deps: deps}
	r.Init(host)
	return r
}

// Title implements component.Titled.
func (r *Register) Title() string { return "Create Account" }

// validateRegistration returns the first problem with req, or "".
func validateRegistration(req model.RegisterRequest, confirm string) string {
	switch {
	case req.Name == "" || req.Email == "":
		return registerRequiredMsg
	case len(req.Password) < MinPasswordLength:
		return passwordShortMsg
	case req.Password != confirm:
		return passwordMismatchMsg
	}
	return ""
}

func (r *Register) submit(ev Event) {
	if r.loading {
		return
	}
	req := model.RegisterRequest{
		Name:        strings.TrimSpace(ev.Field("name")),
		Email:       strings.TrimSpace(ev.Field("email")),
		Password:    ev.Field("password"),
		PhoneNumber: strings.TrimSpace(ev.Field("phoneNumber")),
		Location:    strings.TrimSpace(ev.Field("location")),
		Bio:         strings.TrimSpace(ev.Field("bio")),
	}
	r.form = req
	r.form.Password = ""
	if msg := validateRegistration(req, ev.Field("confirmPassword")); msg != "" {
		r.err = msg
		return
	}

	r.loading = true
	r.err = ""
	r.Go(func(ctx context.Context) func() {
		_, err := r.deps.Auth.Register(ctx, req)
		return func() {
			r.loading = false
			if err != nil {
				r.deps.Logger.Info("registration failed", "error", err)
				r.err = errorText(err, registerFailedMsg)
				return
			}
			r.Navigate("/profile")
		}
	})
}

func textInput(typ, id, name, placeholder, value string, extra ...any) *VNode {
	args := []any{Type(typ), ID(id), Name(name), Class("form-input"), Placeholder(placeholder), Value(value)}
	return Input(append(args, extra...)...)
}

// Render implements component.Component.
func (r *Register) Render() *VNode {
	label := "Create account"
	if r.loading {
		label = "Creating account..."
	}
	return Div(Class("auth-container"),
		Div(Class("auth-wrapper"),
			pageHeader(r.ActivePath()),
			Div(Class("auth-card"),
				H1(Class("auth-title"), "Join Bartr"),
				P(Class("auth-subtitle"), "Create an account to start trading"),
				Form(ID("register-form"), Class("auth-form"), Novalidate(), OnSubmit(r.submit),
					Div(Class("form-row"),
						formGroup("Name", "register-name", textInput("text", "register-name", "name", "Alex Trader", r.form.Name, Required())),
						formGroup("Location", "register-location", textInput("text", "register-location", "location", "Downtown", r.form.Location)),
					),
					Div(Class("form-row"),
						formGroup("Email", "register-email", textInput("email", "register-email", "email", "you@example.com", r.form.Email, Required())),
						formGroup("Phone", "register-phone", textInput("tel", "register-phone", "phoneNumber", "+1 555 000 0000", r.form.PhoneNumber)),
					),
					Div(Class("form-row"),
						formGroup("Password", "register-password", textInput("password", "register-password", "password", "At least 8 characters", "", Required(), MinLength(MinPasswordLength))),
						formGroup("Confirm Password", "register-confirm", textInput("password", "register-confirm", "confirmPassword", "Repeat your password", "", Required())),
					),
					formGroup("About You", "register-bio", Textarea(
						ID("register-bio"), Name("bio"), Class("form-textarea"), Rows(3),
						Placeholder("What do you love to trade?"), r.form.Bio,
					)),
					formError(r.err),
					Button(Type("submit"), Class("form-btn", "form-btn-primary"), AttrIf(r.loading, Disabled()), label),
				),
				Div(Class("auth-actions"),
					Span("Already trading?"),
					A(Data("route", "/login"), Href("/login"), Class("link-button"), "Sign in"),
				),
			),
		),
	)
}
