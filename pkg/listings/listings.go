// Package listings is the client-side listings service.
package listings

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bartr-dev/bartr/pkg/api"
	"github.com/bartr-dev/bartr/pkg/model"
)

// Service talks to the /listings endpoints.
type Service struct {
	client api.Doer
}

// NewService creates a Service.
func NewService(client api.Doer) *Service {
	return &Service{client: client}
}

// Query builds the listings query string. The "All" category and empty
// values are omitted.
func Query(category, search string) string {
	q := url.Values{}
	if c := strings.TrimSpace(category); c != "" && !strings.EqualFold(c, model.CategoryAll) {
		q.Set("category", c)
	}
	if s := strings.TrimSpace(search); s != "" {
		q.Set("search", s)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// List returns listings filtered by category and search term.
func (s *Service) List(ctx context.Context, category, search string) ([]model.Listing, error) {
	var out []model.Listing
	if err := s.client.Do(ctx, http.MethodGet, "/listings"+Query(category, search), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a single listing.
func (s *Service) Get(ctx context.Context, id int64) (*model.Listing, error) {
	var out model.Listing
	if err := s.client.Do(ctx, http.MethodGet, fmt.Sprintf("/listings/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserListings returns the signed-in user's listings.
func (s *Service) UserListings(ctx context.Context) ([]model.Listing, error) {
	var out []model.Listing
	if err := s.client.Do(ctx, http.MethodGet, "/user/listings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create publishes a listing owned by the signed-in user.
func (s *Service) Create(ctx context.Context, req model.CreateListingRequest) (*model.Listing, error) {
	var out model.Listing
	if err := s.client.Do(ctx, http.MethodPost, "/listings", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update edits a listing of the signed-in user.
func (s *Service) Update(ctx context.Context, id int64, req model.CreateListingRequest) (*model.Listing, error) {
	var out model.Listing
	if err := s.client.Do(ctx, http.MethodPut, fmt.Sprintf("/listings/%d", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a listing of the signed-in user.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.client.Do(ctx, http.MethodDelete, fmt.Sprintf("/listings/%d", id), nil, nil)
}

// ByUser returns the public listings of another user.
func (s *Service) ByUser(ctx context.Context, userID int64) ([]model.Listing, error) {
	var out []model.Listing
	if err := s.client.Do(ctx, http.MethodGet, fmt.Sprintf("/listings/user/%d", userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
