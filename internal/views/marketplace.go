package views

import (
	"context"
	"strconv"
	"strings"

	"github.com/bartr-dev/bartr/pkg/component"
	"github.com/bartr-dev/bartr/pkg/debounce"
	"github.com/bartr-dev/bartr/pkg/model"
	. "github.com/bartr-dev/bartr/pkg/vdom"
)

const (
	emptyMessageMsg = "Message cannot be empty."
	messageSentMsg  = "Message sent! The owner will see it in their inbox."
	sendFailedMsg   = "Unable to send your message right now. Please try again."
)

// Marketplace lists listings with a category filter, a debounced search box
// and a detail modal for contacting the owner.
type Marketplace struct {
	component.Base
	deps Deps

	category string
	search   string
	listings []model.Listing
	loading  bool
	err      string
	// gen tags listing requests; only the newest response is applied.
	gen uint64

	searcher    *debounce.Debouncer[string]
	searchTrack func()

	selected   *model.Listing
	myListings []model.Listing
	draft      string
	offerID    int64
	sending    bool
	sendErr    string
	sendNotice string
}

// NewMarketplace creates the marketplace view.
func NewMarketplace(host component.Host, deps Deps) *Marketplace {
	m := &Marketplace{deps: deps, category: model.CategoryAll}
	m.Init(host)
	m.searcher = debounce.New(deps.SearchDelay, func(string) {
		// Timer goroutine: hop back onto the shell queue.
		host.Dispatch(func() {
			m.releaseSearch()
			if m.Alive() {
				m.fetch()
			}
		})
	})
	m.OnDestroy(func() {
		m.searcher.Stop()
		m.releaseSearch()
	})
	return m
}

// Title implements component.Titled.
func (m *Marketplace) Title() string { return "Marketplace" }

// Mount loads the first page of listings.
func (m *Marketplace) Mount() {
	m.fetch()
}

func (m *Marketplace) releaseSearch() {
	if m.searchTrack != nil {
		m.searchTrack()
		m.searchTrack = nil
	}
}

func (m *Marketplace) fetch() {
	m.gen++
	gen := m.gen
	category, search := m.category, m.search
	m.loading = true
	m.Go(func(ctx context.Context) func() {
		items, err := m.deps.Listings.List(ctx, category, search)
		return func() {
			if gen != m.gen {
				return
			}
			m.loading = false
			if err != nil {
				m.deps.Logger.Warn("listings fetch failed", "error", err)
				m.err = "Unable to load listings."
				m.listings = nil
				return
			}
			m.err = ""
			m.listings = items
		}
	})
}

func (m *Marketplace) onSearch(value string) {
	m.search = value
	if m.searchTrack == nil {
		if host := m.Host(); host != nil {
			m.searchTrack = host.Track()
		}
	}
	m.searcher.Trigger(value)
}

func (m *Marketplace) selectCategory(category string) {
	if category == m.category {
		return
	}
	m.category = category
	m.searcher.Cancel()
	m.releaseSearch()
	m.fetch()
}

func (m *Marketplace) open(l model.Listing) {
	m.selected = &l
	m.draft = ""
	m.offerID = 0
	m.sendErr = ""
	m.sendNotice = ""

	user := m.deps.currentUser()
	if user == nil || user.ID == l.OwnerID || m.myListings != nil {
		return
	}
	m.Go(func(ctx context.Context) func() {
		mine, err := m.deps.Listings.UserListings(ctx)
		if err != nil {
			m.deps.Logger.Warn("user listings fetch failed", "error", err)
			return nil
		}
		if mine == nil {
			mine = []model.Listing{}
		}
		return func() { m.myListings = mine }
	})
}

func (m *Marketplace) closeModal() {
	m.selected = nil
}

func (m *Marketplace) sendMessage(ev Event) {
	if m.selected == nil || m.sending {
		return
	}
	content := strings.TrimSpace(ev.Field("message"))
	offer, _ := strconv.ParseInt(ev.Field("offer"), 10, 64)
	m.draft = ev.Field("message")
	m.offerID = offer
	if content == "" {
		m.sendErr = emptyMessageMsg
		return
	}

	req := model.SendMessageRequest{
		ListingID:      m.selected.ID,
		ReceiverID:     m.selected.OwnerID,
		Content:        content,
		OfferListingID: offer,
	}
	m.sending = true
	m.sendErr = ""
	m.Go(func(ctx context.Context) func() {
		_, err := m.deps.Messages.Send(ctx, req)
		return func() {
			m.sending = false
			if err != nil {
				m.deps.Logger.Warn("send message failed", "error", err)
				m.sendErr = errorText(err, sendFailedMsg)
				return
			}
			m.draft = ""
			m.offerID = 0
			m.sendNotice = messageSentMsg
		}
	})
}

// Render implements component.Component.
func (m *Marketplace) Render() *VNode {
	return Div(Class("marketplace-container"),
		Div(Class("marketplace-wrapper"),
			pageHeader(m.ActivePath()),
			artBlock("marketplace-title-container", "marketplace-ascii", marketplaceArt),
			Div(Class("marketplace-content"),
				Div(Class("search-container"),
					Input(Type("text"), ID("marketplace-search"), Name("search"), Class("search-input"),
						Placeholder("Search marketplace..."), Autocomplete("off"), Value(m.search), OnInput(m.onSearch)),
				),
				Div(Class("filters-container"),
					Range(model.Categories, func(c string, _ int) *VNode {
						return Button(Type("button"), Class("filter-btn"), ClassIf(c == m.category, "active"),
							Data("category", c), OnClick(func() { m.selectCategory(c) }), c)
					}),
				),
				Div(ID("listings-grid"), Class("listings-grid"), AriaLive("polite"), m.renderGrid()),
			),
		),
		When(m.selected != nil, m.renderModal),
	)
}

func (m *Marketplace) renderGrid() *VNode {
	switch {
	case m.err != "":
		return Div(Class("error"), m.err)
	case m.loading && len(m.listings) == 0:
		return Div(Class("loading"), "Loading listings...")
	case len(m.listings) == 0:
		return Div(Class("no-results"), "No listings found")
	}
	now := m.deps.Now()
	return Fragment(Range(m.listings, func(l model.Listing, _ int) *VNode {
		return Div(Class("listing-card"), Key(strconv.FormatInt(l.ID, 10)), Data("id", strconv.FormatInt(l.ID, 10)),
			OnClick(func() { m.open(l) }),
			Div(Class("listing-image"), StyleAttr(backgroundImage(l.Image))),
			Div(Class("listing-info"),
				H3(Class("listing-title"), l.Title),
				P(Class("listing-description"), l.Description),
				Div(Class("listing-meta"),
					Span(Class("listing-location"), l.Location),
					Span(Class("listing-date"), timeAgo(l.PostedDate, now)),
				),
				Div(Class("listing-trade"),
					Span(Class("trade-label"), "Trade for:"),
					Span(Class("trade-value"), l.TradeFor),
				),
			),
		)
	}))
}

func (m *Marketplace) renderModal() *VNode {
	l := m.selected
	return Div(Class("listing-modal", "modal-open"), Role("dialog"), AriaLabel(l.Title),
		Div(Class("modal-overlay"), OnClick(m.closeModal)),
		Div(Class("modal-content"),
			Button(Type("button"), Class("modal-close"), AriaLabel("Close"), OnClick(m.closeModal), "×"),
			Div(Class("modal-body"),
				Div(Class("modal-image"), StyleAttr(backgroundImage(l.Image))),
				Div(Class("modal-info"),
					H2(Class("modal-title"), l.Title),
					Div(Class("modal-meta"),
						Span(Class("modal-location"), l.Location),
						Span(Class("modal-date"), timeAgo(l.PostedDate, m.deps.Now())),
					),
					modalSection("Description", "modal-description", l.Description),
					modalSection("Trade For", "modal-trade", l.TradeFor),
					modalSection("Category", "modal-category", l.Category),
					If(l.OwnerName != "", P(Class("modal-owner"), "Listed by ", Strong(l.OwnerName))),
					m.renderContact(),
				),
			),
		),
	)
}

func modalSection(title, class, body string) *VNode {
	return Div(Class("modal-section"),
		H3(Class("modal-section-title"), title),
		P(Class(class), body),
	)
}

func (m *Marketplace) renderContact() *VNode {
	user := m.deps.currentUser()
	switch {
	case user == nil:
		return Div(Class("modal-actions"), signInPrompt("Sign in to contact the trader."))
	case user.ID == m.selected.OwnerID:
		return Div(Class("modal-actions"), P(Class("modal-own-listing"), "This is your listing."))
	}

	label := "Message owner"
	if m.sending {
		label = "Sending..."
	}
	return Form(ID("contact-form"), Class("modal-actions", "contact-form"), Novalidate(), OnSubmit(m.sendMessage),
		Textarea(ID("contact-message"), Name("message"), Class("form-textarea"), Rows(3),
			Placeholder("Write a message to the owner..."), m.draft),
		When(len(m.myListings) > 0, func() *VNode {
			return formGroup("Offer one of your listings", "contact-offer",
				Select(ID("contact-offer"), Name("offer"), Class("form-input"),
					Option(Value(""), "No offer"),
					Range(m.myListings, func(o model.Listing, _ int) *VNode {
						id := strconv.FormatInt(o.ID, 10)
						return Option(Value(id), AttrIf(o.ID == m.offerID, Selected()), o.Title)
					}),
				),
			)
		}),
		formError(m.sendErr),
		formNotice(m.sendNotice),
		Button(Type("submit"), Class("modal-btn", "modal-btn-primary"), AttrIf(m.sending, Disabled()), label),
	)
}

func backgroundImage(url string) string {
	if url == "" {
		return ""
	}
	return "background-image: url('" + strings.ReplaceAll(url, "'", "%27") + "')"
}
