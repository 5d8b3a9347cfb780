package views

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bartr-dev/bartr/pkg/component"
	"github.com/bartr-dev/bartr/pkg/model"
	. "github.com/bartr-dev/bartr/pkg/vdom"
)

const previewLength = 120

// thread identifies the open conversation.
type thread struct {
	ListingID       int64
	ListingTitle    string
	CounterpartID   int64
	CounterpartName string
}

// Messages shows the inbox, sent messages and one conversation with a
// reply form.
type Messages struct {
	component.Base
	deps Deps

	user *model.User

	loading bool
	listErr string
	inbox   []model.Message
	sent    []model.Message

	active       *thread
	conversation []model.Message
	convLoading  bool
	convErr      string
	// convGen tags thread requests; only the newest response is applied.
	convGen uint64

	// marking holds ids with a read request issued, so each message is
	// marked at most once.
	marking map[int64]bool

	draft    string
	replying bool
	replyErr string
}

// NewMessages creates the messages view.
func NewMessages(host component.Host, deps Deps) *Messages {
	m := &Messages{deps: deps, user: deps.currentUser(), marking: make(map[int64]bool)}
	m.Init(host)
	return m
}

// Title implements component.Titled.
func (m *Messages) Title() string { return "Messages" }

// Mount loads the inbox and sent lists.
func (m *Messages) Mount() {
	if m.user != nil {
		m.loadLists()
	}
}

func (m *Messages) loadLists() {
	m.loading = true
	m.Go(func(ctx context.Context) func() {
		inbox, err := m.deps.Messages.Inbox(ctx)
		var sent []model.Message
		if err == nil {
			sent, err = m.deps.Messages.Sent(ctx)
		}
		return func() {
			m.loading = false
			if err != nil {
				m.deps.Logger.Warn("messages fetch failed", "error", err)
				m.listErr = "Unable to load messages."
				return
			}
			m.listErr = ""
			m.inbox = inbox
			m.sent = sent
		}
	})
}

// counterpart returns the other participant of msg.
func (m *Messages) counterpart(msg model.Message) (int64, string) {
	if m.user != nil && msg.SenderID == m.user.ID {
		return msg.ReceiverID, msg.ReceiverName
	}
	return msg.SenderID, msg.SenderName
}

func (m *Messages) isUnread(msg model.Message) bool {
	return !msg.Read && m.user != nil && msg.ReceiverID == m.user.ID
}

func (m *Messages) unreadCount() int {
	n := 0
	for _, msg := range m.inbox {
		if m.isUnread(msg) {
			n++
		}
	}
	return n
}

func (m *Messages) open(msg model.Message) {
	id, name := m.counterpart(msg)
	title := msg.ListingTitle
	if title == "" {
		title = "Listing"
	}
	m.active = &thread{ListingID: msg.ListingID, ListingTitle: title, CounterpartID: id, CounterpartName: name}
	m.replyErr = ""
	m.loadThread()
	if m.isUnread(msg) && !m.marking[msg.ID] {
		m.markRead(msg.ID)
	}
}

func (m *Messages) loadThread() {
	if m.active == nil {
		return
	}
	m.convGen++
	gen := m.convGen
	t := *m.active
	m.convLoading = true
	m.Go(func(ctx context.Context) func() {
		conv, err := m.deps.Messages.Thread(ctx, t.ListingID, t.CounterpartID)
		return func() {
			if gen != m.convGen {
				return
			}
			m.convLoading = false
			if err != nil {
				m.deps.Logger.Warn("conversation fetch failed", "listing", t.ListingID, "error", err)
				m.convErr = "Unable to load conversation."
				return
			}
			m.convErr = ""
			m.conversation = conv
		}
	})
}

func (m *Messages) markRead(id int64) {
	m.marking[id] = true
	m.Go(func(ctx context.Context) func() {
		_, err := m.deps.Messages.MarkAsRead(ctx, id)
		if err != nil {
			m.deps.Logger.Warn("mark as read failed", "id", id, "error", err)
			return nil
		}
		return func() { m.setRead(id) }
	})
}

// setRead clears the unread marker in place.
func (m *Messages) setRead(id int64) {
	for _, list := range [][]model.Message{m.inbox, m.conversation} {
		for i := range list {
			if list[i].ID == id {
				list[i].Read = true
			}
		}
	}
}

func (m *Messages) remove(id int64) {
	m.Go(func(ctx context.Context) func() {
		err := m.deps.Messages.Delete(ctx, id)
		return func() {
			if err != nil {
				m.deps.Logger.Warn("delete message failed", "id", id, "error", err)
				m.convErr = "Unable to delete this message."
				return
			}
			m.inbox = without(m.inbox, id)
			m.sent = without(m.sent, id)
			m.conversation = without(m.conversation, id)
		}
	})
}

func without(list []model.Message, id int64) []model.Message {
	out := list[:0]
	for _, msg := range list {
		if msg.ID != id {
			out = append(out, msg)
		}
	}
	return out
}

func (m *Messages) reply(ev Event) {
	if m.active == nil || m.replying {
		return
	}
	m.draft = ev.Field("reply")
	content := strings.TrimSpace(m.draft)
	if content == "" {
		return
	}
	req := model.SendMessageRequest{
		ListingID:  m.active.ListingID,
		ReceiverID: m.active.CounterpartID,
		Content:    content,
	}
	m.replying = true
	m.replyErr = ""
	m.Go(func(ctx context.Context) func() {
		_, err := m.deps.Messages.Send(ctx, req)
		return func() {
			m.replying = false
			if err != nil {
				m.deps.Logger.Warn("reply failed", "error", err)
				m.replyErr = sendFailedMsg
				return
			}
			m.draft = ""
			m.loadThread()
			m.loadLists()
		}
	})
}

// Render implements component.Component.
func (m *Messages) Render() *VNode {
	var content *VNode
	if m.user == nil {
		content = Div(Class("messages-content"),
			Div(Class("messages-sidebar"),
				Div(ID("messages-inbox"), Class("messages-list"),
					signInPrompt("Sign in to view and manage your messages."))),
		)
	} else {
		inboxTitle := "Inbox"
		if n := m.unreadCount(); n > 0 {
			inboxTitle = fmt.Sprintf("Inbox (%d)", n)
		}
		content = Div(Class("messages-content"),
			Div(Class("messages-sidebar"),
				H2(Class("messages-section-title"), inboxTitle),
				Div(ID("messages-inbox"), Class("messages-list"), m.renderList(m.inbox, "inbox", "No messages yet.", "Loading inbox...")),
				H2(Class("messages-section-title"), "Sent"),
				Div(ID("messages-sent"), Class("messages-list"), m.renderList(m.sent, "sent", "No sent messages yet.", "Loading sent messages...")),
			),
			Div(Class("messages-thread-panel"),
				Div(ID("messages-thread"), Class("messages-thread"), m.renderThread()),
				When(m.active != nil, m.renderReply),
			),
		)
	}
	return Div(Class("messages-container"),
		Div(Class("messages-wrapper"),
			pageHeader(m.ActivePath()),
			artBlock("messages-title-container", "messages-ascii", messagesArt),
			content,
		),
	)
}

func (m *Messages) renderList(list []model.Message, kind, empty, loading string) *VNode {
	switch {
	case m.listErr != "":
		return Div(Class("error"), m.listErr)
	case m.loading && list == nil:
		return Div(Class("loading"), loading)
	case len(list) == 0:
		return Div(Class("no-results"), empty)
	}
	return Fragment(Range(list, func(msg model.Message, _ int) *VNode {
		return m.renderCard(msg, kind)
	}))
}

func (m *Messages) renderCard(msg model.Message, kind string) *VNode {
	title := msg.ListingTitle
	if title == "" {
		title = "Listing"
	}
	who := "From: " + msg.SenderName
	if kind == "sent" {
		who = "To: " + msg.ReceiverName
	}
	cid, _ := m.counterpart(msg)
	active := m.active != nil && m.active.ListingID == msg.ListingID && m.active.CounterpartID == cid
	return Div(Class("message-card"), ClassIf(!msg.Read, "unread"), ClassIf(active, "active"),
		Key(kind+"-"+strconv.FormatInt(msg.ID, 10)), Data("id", strconv.FormatInt(msg.ID, 10)),
		OnClick(func() { m.open(msg) }),
		Div(Class("message-card-header"),
			Span(Class("message-card-title"), title),
			Span(Class("message-card-date"), formatStamp(msg.SentAt)),
		),
		Div(Class("message-card-meta"),
			Span(Class("message-card-counterpart"), who),
			If(m.isUnread(msg), Span(Class("message-card-unread"), "Unread")),
		),
		If(msg.OfferListingTitle != "", Div(Class("message-card-offer"), "Offer: "+msg.OfferListingTitle)),
		Div(Class("message-card-preview"), truncate(msg.Content, previewLength)),
	)
}

func (m *Messages) renderThread() *VNode {
	switch {
	case m.active == nil:
		return Div(Class("no-results"), "Select a message to view the conversation.")
	case m.convErr != "":
		return Div(Class("error"), m.convErr)
	case m.convLoading && len(m.conversation) == 0:
		return Div(Class("loading"), "Loading conversation...")
	case len(m.conversation) == 0:
		return Div(Class("no-results"), "No messages in this conversation yet.")
	}
	return Fragment(
		Div(Class("conversation-header"),
			H2(m.active.ListingTitle),
			P("Conversation with "+m.active.CounterpartName),
		),
		Div(Class("conversation-messages"),
			Range(m.conversation, func(msg model.Message, _ int) *VNode {
				outgoing := m.user != nil && msg.SenderID == m.user.ID
				dir := "incoming"
				if outgoing {
					dir = "outgoing"
				}
				return Div(Class("conversation-message", dir), Key(strconv.FormatInt(msg.ID, 10)),
					Div(Class("conversation-message-meta"),
						Span(Class("conversation-message-author"), msg.SenderName),
						Span(Class("conversation-message-date"), formatStamp(msg.SentAt)),
						Button(Type("button"), Class("conversation-message-delete"), AriaLabel("Delete message"),
							OnClick(func() { m.remove(msg.ID) }), "Delete"),
					),
					If(msg.OfferListingTitle != "", Div(Class("conversation-message-offer"), "Offered: "+msg.OfferListingTitle)),
					Div(Class("conversation-message-body"), msg.Content),
				)
			}),
		),
	)
}

func (m *Messages) renderReply() *VNode {
	return Form(ID("messages-reply-form"), Class("messages-reply-form"), Novalidate(), OnSubmit(m.reply),
		Textarea(ID("messages-reply-input"), Name("reply"), Class("form-textarea"), Rows(3), Placeholder("Write a reply..."), m.draft),
		formError(m.replyErr),
		Div(Class("messages-reply-actions"),
			Button(Type("submit"), Class("form-btn", "form-btn-primary"), AttrIf(m.replying, Disabled()),
				IfElse(m.replying, Text("Sending..."), Text("Send Reply"))),
		),
	)
}
