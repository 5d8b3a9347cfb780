package backend

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bartr-dev/bartr/pkg/model"
)

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("Invalid id")
	}
	return id, nil
}

func validCategory(c string) bool {
	for _, known := range model.Categories[1:] {
		if known == c {
			return true
		}
	}
	return false
}

func cleanListing(req model.CreateListingRequest) (model.CreateListingRequest, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Image = strings.TrimSpace(req.Image)
	req.Location = strings.TrimSpace(req.Location)
	req.TradeFor = strings.TrimSpace(req.TradeFor)
	req.Category = strings.TrimSpace(req.Category)
	switch {
	case req.Title == "":
		return req, badRequest("Title is required")
	case !validCategory(req.Category):
		return req, badRequest("Invalid category")
	}
	return req, nil
}

func (s *Server) listListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := s.store.ListListings(r.Context(), ListingFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	})
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getListing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	l, err := s.store.ListingByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = notFound("Listing not found")
		}
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) listingsByUser(w http.ResponseWriter, r *http.Request) {
	owner, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	out, err := s.store.ListListings(r.Context(), ListingFilter{OwnerID: owner})
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) myListings(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.ListListings(r.Context(), ListingFilter{OwnerID: userID(r.Context())})
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createListing(w http.ResponseWriter, r *http.Request) {
	var req model.CreateListingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	req, err := cleanListing(req)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	l, err := s.store.CreateListing(r.Context(), userID(r.Context()), req)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// ownedListing loads listing id and checks the caller owns it.
func (s *Server) ownedListing(r *http.Request) (*model.Listing, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	l, err := s.store.ListingByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("Listing not found")
		}
		return nil, err
	}
	if l.OwnerID != userID(r.Context()) {
		return nil, forbidden("You can only modify your own listings")
	}
	return l, nil
}

func (s *Server) updateListing(w http.ResponseWriter, r *http.Request) {
	l, err := s.ownedListing(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	var req model.CreateListingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if req, err = cleanListing(req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	updated, err := s.store.UpdateListing(r.Context(), l.ID, req)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteListing(w http.ResponseWriter, r *http.Request) {
	l, err := s.ownedListing(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if err := s.store.DeleteListing(r.Context(), l.ID); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
