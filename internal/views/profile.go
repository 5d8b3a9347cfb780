package views

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bartr-dev/bartr/pkg/api"
	"github.com/bartr-dev/bartr/pkg/component"
	"github.com/bartr-dev/bartr/pkg/model"
	. "github.com/bartr-dev/bartr/pkg/vdom"
)

const recentMessages = 3

// Profile shows the signed-in user's details, listings and recent messages,
// with forms to edit the profile, change the password and manage listings.
type Profile struct {
	component.Base
	deps Deps

	loggedIn bool
	loading  bool
	loadErr  string

	user     *model.User
	listings []model.Listing
	inbox    []model.Message
	index    int

	editing    bool
	profileErr string

	passwordErr    string
	passwordNotice string

	// listingForm is non-nil while the add/edit listing form is open.
	listingForm    *model.CreateListingRequest
	listingEditID  int64
	listingErr     string
	confirmDelete  int64
	listingPending bool
}

// NewProfile creates the profile view.
func NewProfile(host component.Host, deps Deps) *Profile {
	p := &Profile{deps: deps}
	p.loggedIn = deps.Session != nil && deps.Session.Authenticated()
	p.user = deps.currentUser()
	p.Init(host)
	return p
}

// Title implements component.Titled.
func (p *Profile) Title() string { return "Profile" }

// Mount loads the profile, the user's listings and the inbox.
func (p *Profile) Mount() {
	if !p.loggedIn {
		return
	}
	p.loading = true
	p.Go(func(ctx context.Context) func() {
		user, err := p.deps.Auth.FetchProfile(ctx)
		if err != nil {
			return func() {
				p.loading = false
				p.deps.Logger.Warn("profile fetch failed", "error", err)
				var reqErr *api.RequestError
				if errors.As(err, &reqErr) && reqErr.Unauthorized() {
					p.loadErr = "Your session has expired. Please sign in again."
					return
				}
				p.loadErr = "Unable to load your profile."
			}
		}
		mine, lerr := p.deps.Listings.UserListings(ctx)
		if lerr != nil {
			p.deps.Logger.Warn("user listings fetch failed", "error", lerr)
		}
		var inbox []model.Message
		if p.deps.Messages != nil {
			var merr error
			inbox, merr = p.deps.Messages.Inbox(ctx)
			if merr != nil {
				p.deps.Logger.Warn("inbox fetch failed", "error", merr)
			}
		}
		return func() {
			p.loading = false
			p.loadErr = ""
			p.user = user
			p.listings = mine
			p.inbox = inbox
			p.clampIndex()
		}
	})
}

func (p *Profile) clampIndex() {
	if p.index >= len(p.listings) {
		p.index = len(p.listings) - 1
	}
	if p.index < 0 {
		p.index = 0
	}
}

func (p *Profile) move(delta int) {
	next := p.index + delta
	if next >= 0 && next < len(p.listings) {
		p.index = next
	}
}

func (p *Profile) saveProfile(ev Event) {
	name := strings.TrimSpace(ev.Field("name"))
	if name == "" {
		p.profileErr = "Name is required."
		return
	}
	req := model.UpdateProfileRequest{
		Name:            name,
		Location:        strings.TrimSpace(ev.Field("location")),
		PhoneNumber:     strings.TrimSpace(ev.Field("phoneNumber")),
		Bio:             strings.TrimSpace(ev.Field("bio")),
		ProfileImageURL: strings.TrimSpace(ev.Field("profileImageUrl")),
	}
	p.profileErr = ""
	p.Go(func(ctx context.Context) func() {
		user, err := p.deps.Auth.UpdateProfile(ctx, req)
		return func() {
			if err != nil {
				p.deps.Logger.Warn("profile update failed", "error", err)
				p.profileErr = errorText(err, "Unable to save your profile.")
				return
			}
			p.user = user
			p.editing = false
		}
	})
}

func (p *Profile) changePassword(ev Event) {
	pw := ev.Field("newPassword")
	p.passwordNotice = ""
	switch {
	case len(pw) < MinPasswordLength:
		p.passwordErr = passwordShortMsg
		return
	case pw != ev.Field("confirmNewPassword"):
		p.passwordErr = passwordMismatchMsg
		return
	}
	p.passwordErr = ""
	p.Go(func(ctx context.Context) func() {
		err := p.deps.Auth.UpdatePassword(ctx, pw)
		return func() {
			if err != nil {
				p.deps.Logger.Warn("password change failed", "error", err)
				p.passwordErr = errorText(err, "Unable to change your password.")
				return
			}
			p.passwordNotice = "Password updated."
		}
	})
}

func (p *Profile) logout() {
	p.Go(func(ctx context.Context) func() {
		if err := p.deps.Auth.Logout(ctx); err != nil {
			p.deps.Logger.Warn("logout failed", "error", err)
		}
		return func() { p.Navigate("/") }
	})
}

func (p *Profile) openListingForm(l *model.Listing) {
	p.listingErr = ""
	p.confirmDelete = 0
	if l == nil {
		p.listingEditID = 0
		p.listingForm = &model.CreateListingRequest{Location: p.userLocation()}
		return
	}
	p.listingEditID = l.ID
	p.listingForm = &model.CreateListingRequest{
		Title:       l.Title,
		Description: l.Description,
		Image:       l.Image,
		Location:    l.Location,
		TradeFor:    l.TradeFor,
		Category:    l.Category,
	}
}

func (p *Profile) userLocation() string {
	if p.user == nil {
		return ""
	}
	return p.user.Location
}

// validateListing returns the first problem with req, or "".
func validateListing(req model.CreateListingRequest) string {
	if req.Title == "" {
		return "Title is required."
	}
	for _, c := range model.Categories[1:] {
		if c == req.Category {
			return ""
		}
	}
	return "Choose a category."
}

func (p *Profile) saveListing(ev Event) {
	if p.listingPending {
		return
	}
	req := model.CreateListingRequest{
		Title:       strings.TrimSpace(ev.Field("title")),
		Description: strings.TrimSpace(ev.Field("description")),
		Image:       strings.TrimSpace(ev.Field("image")),
		Location:    strings.TrimSpace(ev.Field("listingLocation")),
		TradeFor:    strings.TrimSpace(ev.Field("tradeFor")),
		Category:    ev.Field("category"),
	}
	p.listingForm = &req
	if msg := validateListing(req); msg != "" {
		p.listingErr = msg
		return
	}

	editID := p.listingEditID
	p.listingPending = true
	p.listingErr = ""
	p.Go(func(ctx context.Context) func() {
		var saved *model.Listing
		var err error
		if editID != 0 {
			saved, err = p.deps.Listings.Update(ctx, editID, req)
		} else {
			saved, err = p.deps.Listings.Create(ctx, req)
		}
		return func() {
			p.listingPending = false
			if err != nil {
				p.deps.Logger.Warn("listing save failed", "error", err)
				p.listingErr = errorText(err, "Unable to save this listing.")
				return
			}
			p.listingForm = nil
			p.listingEditID = 0
			if saved == nil {
				return
			}
			for i := range p.listings {
				if p.listings[i].ID == saved.ID {
					p.listings[i] = *saved
					return
				}
			}
			p.listings = append(p.listings, *saved)
			p.index = len(p.listings) - 1
		}
	})
}

func (p *Profile) deleteListing(id int64) {
	p.confirmDelete = 0
	p.Go(func(ctx context.Context) func() {
		err := p.deps.Listings.Delete(ctx, id)
		return func() {
			if err != nil {
				p.deps.Logger.Warn("listing delete failed", "id", id, "error", err)
				p.listingErr = errorText(err, "Unable to delete this listing.")
				return
			}
			kept := p.listings[:0]
			for _, l := range p.listings {
				if l.ID != id {
					kept = append(kept, l)
				}
			}
			p.listings = kept
			p.clampIndex()
		}
	})
}

// Render implements component.Component.
func (p *Profile) Render() *VNode {
	var body *VNode
	switch {
	case !p.loggedIn:
		body = Div(Class("profile-section"), signInPrompt("Sign in to view your profile."))
	case p.loadErr != "":
		body = Div(Class("profile-section"), Div(Class("error"), p.loadErr),
			A(Data("route", "/login"), Href("/login"), Class("link-button"), "Sign in"))
	case p.loading && p.user == nil:
		body = Div(Class("loading"), "Loading profile...")
	default:
		body = Fragment(p.renderUser(), p.renderListings(), p.renderMessages(), p.renderAccount())
	}
	return Div(Class("profile-container"),
		Div(Class("profile-wrapper"),
			pageHeader(p.ActivePath()),
			artBlock("profile-title-container", "profile-ascii", profileArt),
			Div(Class("profile-content"), body),
		),
	)
}

func (p *Profile) renderUser() *VNode {
	u := p.user
	if u == nil {
		u = &model.User{}
	}
	header := Div(Class("section-header"),
		H2(Class("section-title"), "USER PROFILE"),
		If(!p.editing, Button(ID("edit-profile-btn"), Type("button"), Class("edit-btn"), OnClick(func() {
			p.editing = true
			p.profileErr = ""
		}), "EDIT")),
	)
	if p.editing {
		return Div(Class("profile-section"), header,
			Form(ID("user-info-edit"), Class("edit-form"), Novalidate(), OnSubmit(p.saveProfile),
				formGroup("Name", "edit-name", textInput("text", "edit-name", "name", "", u.Name, Required())),
				formGroup("Location", "edit-location", textInput("text", "edit-location", "location", "", u.Location)),
				formGroup("Phone", "edit-phone", textInput("tel", "edit-phone", "phoneNumber", "", u.PhoneNumber)),
				formGroup("Image URL", "edit-image", textInput("url", "edit-image", "profileImageUrl", "https://", u.ProfileImageURL)),
				formGroup("Bio", "edit-bio", Textarea(ID("edit-bio"), Name("bio"), Class("form-textarea"), Rows(4), u.Bio)),
				formError(p.profileErr),
				Div(Class("form-actions"),
					Button(Type("submit"), Class("form-btn", "form-btn-primary"), "SAVE"),
					Button(Type("button"), Class("form-btn", "form-btn-secondary"), OnClick(func() {
						p.editing = false
						p.profileErr = ""
					}), "CANCEL"),
				),
			),
		)
	}

	var avatar *VNode
	if u.ProfileImageURL != "" {
		avatar = Img(Src(u.ProfileImageURL), Alt(u.Name), Class("avatar-image"))
	} else {
		avatar = Div(Class("avatar-placeholder"), initials(u.Name))
	}
	joined := ""
	if !u.JoinedDate.IsZero() {
		joined = u.JoinedDate.Format("January 2006")
	}
	return Div(Class("profile-section"), header,
		Div(ID("user-info"), Class("user-info"),
			Div(Class("user-avatar"), avatar),
			Div(Class("user-details"),
				detailRow("Name:", "display-name", u.Name),
				detailRow("Location:", "display-location", u.Location),
				detailRow("Email:", "display-email", u.Email),
				detailRow("Phone:", "display-phone", u.PhoneNumber),
				detailRow("Member Since:", "display-joined", joined),
				detailRow("Bio:", "display-bio", u.Bio),
			),
		),
	)
}

func detailRow(label, id, value string) *VNode {
	return Div(Class("detail-row"),
		Span(Class("detail-label"), label),
		Span(Class("detail-value"), ID(id), value),
	)
}

func (p *Profile) renderListings() *VNode {
	return Div(Class("profile-section"),
		Div(Class("section-header"),
			H2(Class("section-title"), fmt.Sprintf("MY LISTINGS (%d)", len(p.listings))),
			Button(ID("add-listing-btn"), Type("button"), Class("edit-btn"), OnClick(func() { p.openListingForm(nil) }), "+ ADD"),
		),
		formError(p.listingErr),
		When(p.listingForm != nil, p.renderListingForm),
		Div(Class("listings-carousel"),
			IfElse(len(p.listings) > 0,
				p.renderCarousel(),
				Div(Class("no-listings"), "No listings yet. Add your first listing!"),
			),
		),
	)
}

func (p *Profile) renderCarousel() *VNode {
	if len(p.listings) == 0 {
		return nil
	}
	l := p.listings[p.index]
	single := len(p.listings) <= 1
	id := strconv.FormatInt(l.ID, 10)
	return Fragment(
		Div(Class("carousel-container"),
			Button(Type("button"), Class("carousel-btn", "carousel-prev"), AriaLabel("Previous"), AttrIf(single, Disabled()),
				OnClick(func() { p.move(-1) }), "‹"),
			Div(Class("carousel-content"),
				Div(Class("carousel-image"), StyleAttr(backgroundImage(l.Image))),
				Div(Class("carousel-info"),
					H3(Class("carousel-title"), l.Title),
					P(Class("carousel-description"), l.Description),
					Div(Class("carousel-meta"),
						Span(Class("carousel-category"), l.Category),
						Span(Class("carousel-location"), l.Location),
					),
					Div(Class("carousel-trade"),
						Span(Class("trade-label"), "Trade for:"),
						Span(Class("trade-value"), l.TradeFor),
					),
					IfElse(p.confirmDelete == l.ID,
						Div(Class("carousel-actions", "carousel-confirm"),
							Span("Delete this listing?"),
							Button(Type("button"), Class("carousel-action-btn", "carousel-delete"), Data("action", "confirm-delete"), Data("id", id),
								OnClick(func() { p.deleteListing(l.ID) }), "YES"),
							Button(Type("button"), Class("carousel-action-btn"), OnClick(func() { p.confirmDelete = 0 }), "NO"),
						),
						Div(Class("carousel-actions"),
							Button(Type("button"), Class("carousel-action-btn"), Data("action", "edit"), Data("id", id),
								OnClick(func() { p.openListingForm(&l) }), "EDIT"),
							Button(Type("button"), Class("carousel-action-btn", "carousel-delete"), Data("action", "delete"), Data("id", id),
								OnClick(func() { p.confirmDelete = l.ID }), "DELETE"),
						),
					),
				),
			),
			Button(Type("button"), Class("carousel-btn", "carousel-next"), AriaLabel("Next"), AttrIf(single, Disabled()),
				OnClick(func() { p.move(1) }), "›"),
		),
		Div(Class("carousel-indicators"),
			Range(p.listings, func(_ model.Listing, i int) *VNode {
				return Span(Class("indicator"), ClassIf(i == p.index, "active"), Data("index", strconv.Itoa(i)),
					OnClick(func() { p.index = i }))
			}),
		),
	)
}

func (p *Profile) renderListingForm() *VNode {
	f := p.listingForm
	title := "NEW LISTING"
	if p.listingEditID != 0 {
		title = "EDIT LISTING"
	}
	return Form(ID("listing-form"), Class("edit-form", "listing-form"), Novalidate(), OnSubmit(p.saveListing),
		H3(Class("section-subtitle"), title),
		formGroup("Title", "listing-title", textInput("text", "listing-title", "title", "What are you trading?", f.Title, Required())),
		formGroup("Description", "listing-description", Textarea(ID("listing-description"), Name("description"), Class("form-textarea"), Rows(3), f.Description)),
		formGroup("Image URL", "listing-image", textInput("url", "listing-image", "image", "https://", f.Image)),
		formGroup("Location", "listing-location", textInput("text", "listing-location", "listingLocation", "Downtown", f.Location)),
		formGroup("Trade For", "listing-trade", textInput("text", "listing-trade", "tradeFor", "What would you take in exchange?", f.TradeFor)),
		formGroup("Category", "listing-category",
			Select(ID("listing-category"), Name("category"), Class("form-input"),
				Option(Value(""), "Choose..."),
				Range(model.Categories[1:], func(c string, _ int) *VNode {
					return Option(Value(c), AttrIf(c == f.Category, Selected()), c)
				}),
			),
		),
		Div(Class("form-actions"),
			Button(Type("submit"), Class("form-btn", "form-btn-primary"), AttrIf(p.listingPending, Disabled()), "SAVE"),
			Button(Type("button"), Class("form-btn", "form-btn-secondary"), OnClick(func() {
				p.listingForm = nil
				p.listingErr = ""
			}), "CANCEL"),
		),
	)
}

func (p *Profile) renderMessages() *VNode {
	recent := p.inbox
	if len(recent) > recentMessages {
		recent = recent[:recentMessages]
	}
	var list *VNode
	if len(recent) == 0 {
		list = Div(Class("no-messages"), "No messages yet.")
	} else {
		now := p.deps.Now()
		list = Fragment(Range(recent, func(m model.Message, _ int) *VNode {
			return Div(Class("message-item"), ClassIf(!m.Read, "unread"),
				Div(Class("message-header"),
					Span(Class("message-from"), m.SenderName),
					Span(Class("message-time"), timeAgo(m.SentAt, now)),
				),
				Div(Class("message-subject"), "RE: "+m.ListingTitle),
				Div(Class("message-preview"), truncate(m.Content, 120)),
				Button(Type("button"), Class("message-reply-btn"), Data("route", "/messages"), "REPLY"),
			)
		}))
	}
	return Div(Class("profile-section"),
		Div(Class("section-header"),
			H2(Class("section-title"), fmt.Sprintf("MESSAGES (%d)", len(p.inbox))),
			A(Data("route", "/messages"), Href("/messages"), Class("edit-btn"), "VIEW ALL"),
		),
		Div(Class("messages-list"), list),
	)
}

func (p *Profile) renderAccount() *VNode {
	return Div(Class("profile-section"),
		Div(Class("section-header"),
			H2(Class("section-title"), "ACCOUNT"),
			Button(ID("logout-btn"), Type("button"), Class("edit-btn"), OnClick(p.logout), "LOG OUT"),
		),
		Form(ID("password-form"), Class("edit-form"), Novalidate(), OnSubmit(p.changePassword),
			formGroup("New Password", "new-password", textInput("password", "new-password", "newPassword", "At least 8 characters", "", Autocomplete("new-password"))),
			formGroup("Confirm Password", "confirm-new-password", textInput("password", "confirm-new-password", "confirmNewPassword", "", "", Autocomplete("new-password"))),
			formError(p.passwordErr),
			formNotice(p.passwordNotice),
			Button(Type("submit"), Class("form-btn", "form-btn-primary"), "CHANGE PASSWORD"),
		),
	)
}
