package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bartr-dev/bartr/pkg/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	phone_number TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	profile_image_url TEXT NOT NULL DEFAULT '',
	joined_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS listings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	image TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	trade_for TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	posted_at INTEGER NOT NULL,
	owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_listings_owner ON listings(owner_id);
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	listing_id INTEGER NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
	sender_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	receiver_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	offer_listing_id INTEGER REFERENCES listings(id) ON DELETE SET NULL,
	content TEXT NOT NULL,
	is_read INTEGER NOT NULL DEFAULT 0,
	sent_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);
CREATE TABLE IF NOT EXISTS revoked_tokens (
	jti TEXT PRIMARY KEY,
	expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS refresh_tokens (
	token TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	expires_at INTEGER NOT NULL
);
`

// Store is the SQL repository of the backend.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens the SQLite database at dsn and applies the schema. Use
// ":memory:" for a throwaway database.
func OpenStore(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func millis(t time.Time) int64      { return t.UnixMilli() }
func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

type scanner interface {
	Scan(dest ...any) error
}

// Users

const userColumns = `id, name, email, phone_number, location, bio, profile_image_url, joined_at`

func scanUser(row scanner, extra ...any) (*model.User, error) {
	var u model.User
	var joined int64
	dest := append([]any{&u.ID, &u.Name, &u.Email, &u.PhoneNumber, &u.Location, &u.Bio, &u.ProfileImageURL, &joined}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.JoinedDate = fromMillis(joined)
	return &u, nil
}

// CreateUser inserts u and sets its ID and join date.
func (s *Store) CreateUser(ctx context.Context, u *model.User, passwordHash string) error {
	u.JoinedDate = s.now().UTC().Truncate(time.Millisecond)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, phone_number, location, bio, profile_image_url, joined_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, passwordHash, u.PhoneNumber, u.Location, u.Bio, u.ProfileImageURL, millis(u.JoinedDate))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

// UserByID loads one user.
func (s *Store) UserByID(ctx context.Context, id int64) (*model.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// UserByEmail loads a user and the password hash.
func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, string, error) {
	var hash string
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+`, password_hash FROM users WHERE email = ?`, email), &hash)
	if err != nil {
		return nil, "", err
	}
	return u, hash, nil
}

// UpdateUser applies the non-empty fields of req.
func (s *Store) UpdateUser(ctx context.Context, id int64, req model.UpdateProfileRequest) (*model.User, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET
			name = COALESCE(NULLIF(?, ''), name),
			phone_number = COALESCE(NULLIF(?, ''), phone_number),
			location = COALESCE(NULLIF(?, ''), location),
			bio = COALESCE(NULLIF(?, ''), bio),
			profile_image_url = COALESCE(NULLIF(?, ''), profile_image_url)
		 WHERE id = ?`,
		req.Name, req.PhoneNumber, req.Location, req.Bio, req.ProfileImageURL, id)
	if err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return s.UserByID(ctx, id)
}

// SetPassword replaces the password hash of a user.
func (s *Store) SetPassword(ctx context.Context, id int64, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return fmt.Errorf("set password %d: %w", id, err)
	}
	return affected(res)
}

// Tokens

// RevokeToken records a revoked access token id until it would expire.
func (s *Store) RevokeToken(ctx context.Context, jti string, expires time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`, jti, millis(expires))
	return err
}

// TokenRevoked reports whether jti was revoked.
func (s *Store) TokenRevoked(ctx context.Context, jti string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti).Scan(&n)
	return n > 0, err
}

// SaveRefreshToken stores an opaque refresh token.
func (s *Store) SaveRefreshToken(ctx context.Context, token string, userID int64, expires time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (token, user_id, expires_at) VALUES (?, ?, ?)`, token, userID, millis(expires))
	return err
}

// DeleteRefreshTokens drops every refresh token of a user.
func (s *Store) DeleteRefreshTokens(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	return err
}

// PurgeExpired removes revoked and refresh tokens past their expiry.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := millis(s.now())
	var total int64
	for _, table := range []string{"revoked_tokens", "refresh_tokens"} {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE expires_at < ?`, cutoff)
		if err != nil {
			return total, fmt.Errorf("purge %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// Listings

// ListingFilter narrows ListListings. Zero values match everything.
type ListingFilter struct {
	Category string
	Search   string
	OwnerID  int64
}

const listingSelect = `
SELECT l.id, l.title, l.description, l.image, l.location, l.trade_for, l.category, l.posted_at, l.owner_id, u.name
FROM listings l JOIN users u ON u.id = l.owner_id`

func scanListing(row scanner) (*model.Listing, error) {
	var l model.Listing
	var posted int64
	err := row.Scan(&l.ID, &l.Title, &l.Description, &l.Image, &l.Location, &l.TradeFor, &l.Category, &posted, &l.OwnerID, &l.OwnerName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	l.PostedDate = fromMillis(posted)
	return &l, nil
}

// ListListings returns listings newest first.
func (s *Store) ListListings(ctx context.Context, f ListingFilter) ([]model.Listing, error) {
	var where []string
	var args []any
	if f.Category != "" && !strings.EqualFold(f.Category, model.CategoryAll) {
		where = append(where, `LOWER(l.category) = LOWER(?)`)
		args = append(args, f.Category)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		where = append(where, `(LOWER(l.title) LIKE ? OR LOWER(l.description) LIKE ? OR LOWER(l.trade_for) LIKE ? OR LOWER(l.location) LIKE ?)`)
		args = append(args, like, like, like, like)
	}
	if f.OwnerID != 0 {
		where = append(where, `l.owner_id = ?`)
		args = append(args, f.OwnerID)
	}
	query := listingSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY l.posted_at DESC, l.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()
	out := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// ListingByID loads one listing.
func (s *Store) ListingByID(ctx context.Context, id int64) (*model.Listing, error) {
	return scanListing(s.db.QueryRowContext(ctx, listingSelect+` WHERE l.id = ?`, id))
}

// CreateListing inserts a listing owned by ownerID.
func (s *Store) CreateListing(ctx context.Context, ownerID int64, req model.CreateListingRequest) (*model.Listing, error) {
	return s.insertListing(ctx, ownerID, req, s.now())
}

func (s *Store) insertListing(ctx context.Context, ownerID int64, req model.CreateListingRequest, posted time.Time) (*model.Listing, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO listings (title, description, image, location, trade_for, category, posted_at, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.Title, req.Description, req.Image, req.Location, req.TradeFor, req.Category, millis(posted), ownerID)
	if err != nil {
		return nil, fmt.Errorf("insert listing: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.ListingByID(ctx, id)
}

// UpdateListing replaces the editable fields of a listing.
func (s *Store) UpdateListing(ctx context.Context, id int64, req model.CreateListingRequest) (*model.Listing, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET title = ?, description = ?, image = ?, location = ?, trade_for = ?, category = ? WHERE id = ?`,
		req.Title, req.Description, req.Image, req.Location, req.TradeFor, req.Category, id)
	if err != nil {
		return nil, fmt.Errorf("update listing %d: %w", id, err)
	}
	if err := affected(res); err != nil {
		return nil, err
	}
	return s.ListingByID(ctx, id)
}

// DeleteListing removes a listing and its messages.
func (s *Store) DeleteListing(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete listing %d: %w", id, err)
	}
	return affected(res)
}

// CountListings returns the number of listings.
func (s *Store) CountListings(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n)
	return n, err
}

// Messages

const messageSelect = `
SELECT m.id, m.listing_id, l.title, m.sender_id, s.name, s.email, m.receiver_id, r.name, r.email,
	m.content, m.is_read, m.sent_at, COALESCE(m.offer_listing_id, 0), COALESCE(o.title, '')
FROM messages m
JOIN listings l ON l.id = m.listing_id
JOIN users s ON s.id = m.sender_id
JOIN users r ON r.id = m.receiver_id
LEFT JOIN listings o ON o.id = m.offer_listing_id`

func scanMessage(row scanner) (*model.Message, error) {
	var m model.Message
	var sent int64
	err := row.Scan(&m.ID, &m.ListingID, &m.ListingTitle, &m.SenderID, &m.SenderName, &m.SenderEmail,
		&m.ReceiverID, &m.ReceiverName, &m.ReceiverEmail, &m.Content, &m.Read, &sent,
		&m.OfferListingID, &m.OfferListingTitle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m.SentAt = fromMillis(sent)
	return &m, nil
}

func (s *Store) queryMessages(ctx context.Context, where string, args ...any) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, messageSelect+" WHERE "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	out := []model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// NewMessage is a message ready to insert.
type NewMessage struct {
	ListingID      int64
	SenderID       int64
	ReceiverID     int64
	OfferListingID int64
	Content        string
}

// CreateMessage inserts an unread message.
func (s *Store) CreateMessage(ctx context.Context, m NewMessage) (*model.Message, error) {
	var offer any
	if m.OfferListingID != 0 {
		offer = m.OfferListingID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (listing_id, sender_id, receiver_id, offer_listing_id, content, is_read, sent_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		m.ListingID, m.SenderID, m.ReceiverID, offer, m.Content, millis(s.now()))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.MessageByID(ctx, id)
}

// MessageByID loads one message.
func (s *Store) MessageByID(ctx context.Context, id int64) (*model.Message, error) {
	return scanMessage(s.db.QueryRowContext(ctx, messageSelect+` WHERE m.id = ?`, id))
}

// Inbox returns messages received by userID, newest first.
func (s *Store) Inbox(ctx context.Context, userID int64) ([]model.Message, error) {
	return s.queryMessages(ctx, `m.receiver_id = ? ORDER BY m.sent_at DESC, m.id DESC`, userID)
}

// Sent returns messages sent by userID, newest first.
func (s *Store) Sent(ctx context.Context, userID int64) ([]model.Message, error) {
	return s.queryMessages(ctx, `m.sender_id = ? ORDER BY m.sent_at DESC, m.id DESC`, userID)
}

// ListingMessages returns the messages of a listing that userID took part
// in, oldest first.
func (s *Store) ListingMessages(ctx context.Context, listingID, userID int64) ([]model.Message, error) {
	return s.queryMessages(ctx,
		`m.listing_id = ? AND (m.sender_id = ? OR m.receiver_id = ?) ORDER BY m.sent_at ASC, m.id ASC`,
		listingID, userID, userID)
}

// Conversation returns the messages between two users about a listing,
// oldest first.
func (s *Store) Conversation(ctx context.Context, listingID, a, b int64) ([]model.Message, error) {
	return s.queryMessages(ctx,
		`m.listing_id = ? AND ((m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?))
		 ORDER BY m.sent_at ASC, m.id ASC`,
		listingID, a, b, b, a)
}

// MarkRead flags a message as read.
func (s *Store) MarkRead(ctx context.Context, id int64) (*model.Message, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("mark read %d: %w", id, err)
	}
	if err := affected(res); err != nil {
		return nil, err
	}
	return s.MessageByID(ctx, id)
}

// DeleteMessage removes a message.
func (s *Store) DeleteMessage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message %d: %w", id, err)
	}
	return affected(res)
}

// UnreadCount counts unread messages received by userID.
func (s *Store) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE receiver_id = ? AND is_read = 0`, userID).Scan(&n)
	return n, err
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
