package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/bartr-dev/bartr/pkg/model"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "bartr-demo"

type seedListing struct {
	owner int
	age   time.Duration
	req   model.CreateListingRequest
}

var seedUsers = []model.User{
	{Name: "Alex Johnson", Email: "alex@example.com", Location: "Downtown", Bio: "Gadget enthusiast looking for creative trades.", PhoneNumber: "+11234567890"},
	{Name: "Maya Lee", Email: "maya@example.com", Location: "Midtown", Bio: "Designer with a love for sustainable fashion.", PhoneNumber: "+11234567891"},
	{Name: "Jordan Smith", Email: "jordan@example.com", Location: "West End", Bio: "Home barista and weekend handyman.", PhoneNumber: "+11234567892"},
}

const day = 24 * time.Hour

var seedListings = []seedListing{
	{0, 2 * day, model.CreateListingRequest{
		Title: "Vintage Camera", Description: "Classic 35mm film camera in excellent condition",
		Image:    "https://images.unsplash.com/photo-1526170375885-4d8ecf77b99f?w=400&h=300&fit=crop",
		Location: "Downtown", TradeFor: "Laptop or bicycle", Category: "Electronics",
	}},
	{2, 7 * day, model.CreateListingRequest{
		Title: "Mountain Bike", Description: "21-speed mountain bike, great for trails",
		Image:    "https://images.unsplash.com/photo-1576435728678-68d0fbf94e91?w=400&h=300&fit=crop",
		Location: "North Side", TradeFor: "Gaming console", Category: "Sports",
	}},
	{0, 3 * day, model.CreateListingRequest{
		Title: "Acoustic Guitar", Description: "Yamaha acoustic guitar with case and picks",
		Image:    "https://images.unsplash.com/photo-1510915361894-db8b60106cb1?w=400&h=300&fit=crop",
		Location: "West End", TradeFor: "Keyboard or audio equipment", Category: "Electronics",
	}},
	{1, 5 * day, model.CreateListingRequest{
		Title: "Designer Handbag", Description: "Authentic leather handbag, barely used",
		Image:    "https://images.unsplash.com/photo-1584917865442-de89df76afd3?w=400&h=300&fit=crop",
		Location: "East Side", TradeFor: "Jewelry or accessories", Category: "Clothing",
	}},
	{2, 1 * day, model.CreateListingRequest{
		Title: "Coffee Maker", Description: "Espresso machine with milk frother",
		Image:    "https://images.unsplash.com/photo-1517668808822-9ebb02f2a0e6?w=400&h=300&fit=crop",
		Location: "South Bay", TradeFor: "Blender or kitchen appliances", Category: "Home",
	}},
	{1, 4 * day, model.CreateListingRequest{
		Title: "Book Collection", Description: "50+ classic novels and modern fiction",
		Image:    "https://images.unsplash.com/photo-1495446815901-a7297e633e8d?w=400&h=300&fit=crop",
		Location: "Central", TradeFor: "Board games or vinyl records", Category: "Home",
	}},
	{2, 7 * day, model.CreateListingRequest{
		Title: "Lawn Mowing Service", Description: "Professional lawn care and maintenance",
		Image:    "https://images.unsplash.com/photo-1558618666-fcd25c85cd64?w=400&h=300&fit=crop",
		Location: "Citywide", TradeFor: "Handyman services or tools", Category: "Services",
	}},
	{1, 2 * day, model.CreateListingRequest{
		Title: "Winter Jacket", Description: "North Face jacket, size medium, like new",
		Image:    "https://images.unsplash.com/photo-1551028719-00167b16eac5?w=400&h=300&fit=crop",
		Location: "Downtown", TradeFor: "Hiking boots or camping gear", Category: "Clothing",
	}},
}

// Seed fills an empty database with the demo accounts and the marketplace
// sample listings. It does nothing when any listing exists.
func (s *Store) Seed(ctx context.Context) (bool, error) {
	n, err := s.CountListings(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	hash, err := HashPassword(DemoPassword)
	if err != nil {
		return false, err
	}
	ids := make([]int64, len(seedUsers))
	for i, u := range seedUsers {
		user := u
		if err := s.CreateUser(ctx, &user, hash); err != nil {
			return false, fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		ids[i] = user.ID
	}

	now := s.now()
	for _, l := range seedListings {
		if _, err := s.insertListing(ctx, ids[l.owner], l.req, now.Add(-l.age)); err != nil {
			return false, fmt.Errorf("seed listing %q: %w", l.req.Title, err)
		}
	}
	return true, nil
}
