package backend

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bartr-dev/bartr/pkg/model"
)

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req model.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	msg, err := s.validateMessage(r, req)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	created, err := s.store.CreateMessage(r.Context(), msg)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// validateMessage applies the send rules: content is required, the receiver
// defaults to the listing owner, nobody messages themselves and one side of
// the conversation owns the listing.
func (s *Server) validateMessage(r *http.Request, req model.SendMessageRequest) (NewMessage, error) {
	ctx := r.Context()
	sender := userID(ctx)
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return NewMessage{}, badRequest("Message content cannot be blank")
	}
	listing, err := s.store.ListingByID(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewMessage{}, notFound("Listing not found")
		}
		return NewMessage{}, err
	}

	receiver := req.ReceiverID
	if receiver == 0 {
		if listing.OwnerID == sender {
			return NewMessage{}, badRequest("Receiver must be provided when the sender is the listing owner")
		}
		receiver = listing.OwnerID
	} else if _, err := s.store.UserByID(ctx, receiver); err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewMessage{}, notFound("User not found")
		}
		return NewMessage{}, err
	}

	if receiver == sender {
		return NewMessage{}, badRequest("Cannot send a message to yourself")
	}
	if listing.OwnerID != sender && listing.OwnerID != receiver {
		return NewMessage{}, badRequest("At least one participant must be the listing owner")
	}

	if req.OfferListingID != 0 {
		offer, err := s.store.ListingByID(ctx, req.OfferListingID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return NewMessage{}, err
		}
		if offer == nil || offer.OwnerID != sender {
			return NewMessage{}, badRequest("You can only offer your own listings")
		}
	}

	return NewMessage{
		ListingID:      listing.ID,
		SenderID:       sender,
		ReceiverID:     receiver,
		OfferListingID: req.OfferListingID,
		Content:        content,
	}, nil
}

func (s *Server) inbox(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.Inbox(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) sent(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.Sent(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.UnreadCount(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// thread returns the caller's messages on a listing, narrowed to one
// counterpart when participantId is set.
func (s *Server) thread(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	listingID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if _, err := s.store.ListingByID(ctx, listingID); err != nil {
		if errors.Is(err, ErrNotFound) {
			err = notFound("Listing not found")
		}
		writeError(w, r, s.logger, err)
		return
	}

	me := userID(ctx)
	var out []model.Message
	if raw := r.URL.Query().Get("participantId"); raw != "" {
		other, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			writeError(w, r, s.logger, badRequest("Invalid participantId"))
			return
		}
		if _, err := s.store.UserByID(ctx, other); err != nil {
			if errors.Is(err, ErrNotFound) {
				err = notFound("User not found")
			}
			writeError(w, r, s.logger, err)
			return
		}
		out, err = s.store.Conversation(ctx, listingID, me, other)
	} else {
		out, err = s.store.ListingMessages(ctx, listingID, me)
	}
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// participantMessage loads message id and checks the caller sent or
// received it.
func (s *Server) participantMessage(r *http.Request) (*model.Message, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	msg, err := s.store.MessageByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("Message not found")
		}
		return nil, err
	}
	me := userID(r.Context())
	if msg.SenderID != me && msg.ReceiverID != me {
		return nil, forbidden("You do not have access to this message")
	}
	return msg, nil
}

func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := s.participantMessage(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	msg, err := s.participantMessage(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if msg.ReceiverID != userID(r.Context()) {
		writeError(w, r, s.logger, forbidden("Only the recipient can mark this message as read"))
		return
	}
	updated, err := s.store.MarkRead(r.Context(), msg.ID)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := s.participantMessage(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if err := s.store.DeleteMessage(r.Context(), msg.ID); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
