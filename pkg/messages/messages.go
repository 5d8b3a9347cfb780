// Package messages is the client-side messaging service.
package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bartr-dev/bartr/pkg/api"
	"github.com/bartr-dev/bartr/pkg/model"
)

// Service talks to the /messages endpoints.
type Service struct {
	client api.Doer
}

// NewService creates a Service.
func NewService(client api.Doer) *Service {
	return &Service{client: client}
}

// Send posts a message about a listing.
func (s *Service) Send(ctx context.Context, req model.SendMessageRequest) (*model.Message, error) {
	var out model.Message
	if err := s.client.Do(ctx, http.MethodPost, "/messages", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Inbox returns messages received by the signed-in user, newest first.
func (s *Service) Inbox(ctx context.Context) ([]model.Message, error) {
	return s.list(ctx, "/messages/inbox")
}

// Sent returns messages sent by the signed-in user, newest first.
func (s *Service) Sent(ctx context.Context) ([]model.Message, error) {
	return s.list(ctx, "/messages/sent")
}

// Thread returns the conversation about listingID, oldest first. A zero
// participantID lets the backend pick the counterpart.
func (s *Service) Thread(ctx context.Context, listingID, participantID int64) ([]model.Message, error) {
	path := fmt.Sprintf("/messages/listing/%d", listingID)
	if participantID != 0 {
		q := url.Values{}
		q.Set("participantId", strconv.FormatInt(participantID, 10))
		path += "?" + q.Encode()
	}
	return s.list(ctx, path)
}

func (s *Service) list(ctx context.Context, path string) ([]model.Message, error) {
	var out []model.Message
	if err := s.client.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkAsRead marks a received message read.
func (s *Service) MarkAsRead(ctx context.Context, id int64) (*model.Message, error) {
	var out model.Message
	if err := s.client.Do(ctx, http.MethodPut, fmt.Sprintf("/messages/%d/read", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a message the signed-in user participates in.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.client.Do(ctx, http.MethodDelete, fmt.Sprintf("/messages/%d", id), nil, nil)
}

// UnreadCount returns the number of unread received messages.
func (s *Service) UnreadCount(ctx context.Context) (int64, error) {
	var raw json.Number
	if err := s.client.Do(ctx, http.MethodGet, "/messages/unread/count", nil, &raw); err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	n, err := raw.Int64()
	if err != nil {
		return 0, fmt.Errorf("unread count %q: %w", raw, err)
	}
	return n, nil
}
