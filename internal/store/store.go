package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/tourhubapp/tourhub-server/internal/domain"
)

// Store wraps a Badger database instance.
//
// It is the only point of concurrency control in the system: every
// read-then-write sequence (uniqueness check before create, existence check
// before update) runs inside a single Badger transaction.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Generic entities
	Users    *Entity[domain.User]
	Tours    *Entity[domain.Tour]
	Reviews  *Entity[domain.Review]
	Bookings *Entity[domain.Booking]
	Tokens   *Entity[domain.TokenRecord]
}

// New creates a new Store instance with the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}

	store.initUsers()
	store.initTours()
	store.initReviews()
	store.initBookings()
	store.initTokens()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// initUsers initializes the Users entity on the store.
// Uses case-insensitive email indexing via normalizeEmail transformation.
func (s *Store) initUsers() {
	s.Users = NewEntity[domain.User](s, "user:").
		WithUniqueIndexTransform("email",
			func(u *domain.User) []string {
				return []string{normalizeEmail(u.Email)}
			},
			normalizeEmail, // Transform lookups to be case-insensitive
		)
}

// initTours initializes the Tours entity. Slugs are unique.
func (s *Store) initTours() {
	s.Tours = NewEntity[domain.Tour](s, "tour:").
		WithUniqueIndex("slug", func(t *domain.Tour) []string {
			return []string{t.Slug}
		})
}

// initReviews initializes the Reviews entity.
// One review per user per tour, plus lookups by tour and by user.
func (s *Store) initReviews() {
	s.Reviews = NewEntity[domain.Review](s, "review:").
		WithUniqueIndex("tour_user", func(r *domain.Review) []string {
			return []string{r.TourID + ":" + r.UserID}
		}).
		WithLookupIndex("tour", func(r *domain.Review) []string {
			return []string{r.TourID}
		}).
		WithLookupIndex("user", func(r *domain.Review) []string {
			return []string{r.UserID}
		})
}

// initBookings initializes the Bookings entity with tour and user lookups.
func (s *Store) initBookings() {
	s.Bookings = NewEntity[domain.Booking](s, "booking:").
		WithLookupIndex("tour", func(b *domain.Booking) []string {
			return []string{b.TourID}
		}).
		WithLookupIndex("user", func(b *domain.Booking) []string {
			return []string{b.UserID}
		})
}

// initTokens initializes the Tokens entity.
// The signed value is the unique handle used at verification time;
// the owner lookup supports revoking all of a user's tokens.
func (s *Store) initTokens() {
	s.Tokens = NewEntity[domain.TokenRecord](s, "token:").
		WithUniqueIndex("value", func(t *domain.TokenRecord) []string {
			return []string{t.Value}
		}).
		WithLookupIndex("owner", func(t *domain.TokenRecord) []string {
			return []string{t.OwnerID}
		})
}

// normalizeEmail lowercases and trims an email for index storage and lookup.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
