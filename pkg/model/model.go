// Package model holds the JSON wire types shared by the Bartr API clients
// and the backend.
package model

import "time"

// User is the public profile of an account.
type User struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	PhoneNumber     string    `json:"phoneNumber,omitempty"`
	Location        string    `json:"location,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
	JoinedDate      time.Time `json:"joinedDate"`
}

// Listing is an item or service offered for trade.
type Listing struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image,omitempty"`
	Location    string    `json:"location,omitempty"`
	TradeFor    string    `json:"tradeFor,omitempty"`
	Category    string    `json:"category"`
	PostedDate  time.Time `json:"postedDate"`
	OwnerID     int64     `json:"ownerId"`
	OwnerName   string    `json:"ownerName,omitempty"`
}

// Message is one message of a conversation about a listing.
type Message struct {
	ID            int64     `json:"id"`
	ListingID     int64     `json:"listingId"`
	ListingTitle  string    `json:"listingTitle"`
	SenderID      int64     `json:"senderId"`
	SenderName    string    `json:"senderName"`
	SenderEmail   string    `json:"senderEmail"`
	ReceiverID    int64     `json:"receiverId"`
	ReceiverName  string    `json:"receiverName"`
	ReceiverEmail string    `json:"receiverEmail"`
	Content       string    `json:"content"`
	Read          bool      `json:"read"`
	SentAt        time.Time `json:"sentAt"`
	// OfferListingID references a listing of the sender offered in exchange.
	OfferListingID    int64  `json:"offerListingId,omitempty"`
	OfferListingTitle string `json:"offerListingTitle,omitempty"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn"`
	User         *User  `json:"user"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Location    string `json:"location,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

// UpdateProfileRequest is the body of PUT /auth/me. Empty fields are left
// unchanged.
type UpdateProfileRequest struct {
	Name            string `json:"name,omitempty"`
	PhoneNumber     string `json:"phoneNumber,omitempty"`
	Location        string `json:"location,omitempty"`
	Bio             string `json:"bio,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// PasswordResetRequest is the body of POST /auth/password-reset.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// SendMessageRequest is the body of POST /messages. ReceiverID defaults to
// the listing owner when zero.
type SendMessageRequest struct {
	ListingID      int64  `json:"listingId"`
	ReceiverID     int64  `json:"receiverId,omitempty"`
	Content        string `json:"content"`
	OfferListingID int64  `json:"offerListingId,omitempty"`
}

// CreateListingRequest is the body of POST /listings and PUT /listings/{id}.
type CreateListingRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	Location    string `json:"location,omitempty"`
	TradeFor    string `json:"tradeFor,omitempty"`
	Category    string `json:"category"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Message string `json:"message"`
}

// UploadResponse is returned by POST /uploads.
type UploadResponse struct {
	URL string `json:"url"`
}

// Categories lists the marketplace filter values in display order. "All"
// disables category filtering.
var Categories = []string{"All", "Electronics", "Sports", "Clothing", "Home", "Services"}

// CategoryAll is the filter value that matches every category.
const CategoryAll = "All"
