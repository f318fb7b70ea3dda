package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/tourhubapp/tourhub-server/internal/domain"
	domainerrors "github.com/tourhubapp/tourhub-server/internal/errors"
	"github.com/tourhubapp/tourhub-server/internal/id"
	"github.com/tourhubapp/tourhub-server/internal/query"
	"github.com/tourhubapp/tourhub-server/internal/store"
)

// BookingService manages tour bookings. The price of a booking is captured
// from the tour at booking time.
type BookingService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewBookingService creates a new booking service.
func NewBookingService(s *store.Store, logger *slog.Logger) *BookingService {
	return &BookingService{store: s, logger: logger}
}

// CreateBookingRequest books a spot on a tour for a user.
type CreateBookingRequest struct {
	TourID string `json:"tour_id" validate:"required"`
	UserID string `json:"user_id" validate:"required"`
	Paid   bool   `json:"paid,omitempty"`
}

// UpdateBookingRequest contains a partial booking update.
type UpdateBookingRequest struct {
	Paid *bool `json:"paid,omitempty"`
}

// Create records a booking, snapshotting the tour's discounted price.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	tour, err := s.store.Tours.Get(ctx, req.TourID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("tour not found")
		}
		return nil, fmt.Errorf("get tour: %w", err)
	}
	if _, err := s.store.Users.Get(ctx, req.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	bookingID, err := id.Generate("booking")
	if err != nil {
		return nil, fmt.Errorf("generate booking ID: %w", err)
	}

	booking := &domain.Booking{
		Record: domain.Record{ID: bookingID},
		TourID: req.TourID,
		UserID: req.UserID,
		Price:  tour.EffectivePrice(),
		Paid:   req.Paid,
	}
	booking.InitTimestamps()

	if err := s.store.Bookings.Create(ctx, bookingID, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.logger.Info("booking created", "booking_id", bookingID,
		"tour_id", req.TourID, "user_id", req.UserID, "price", booking.Price)
	return booking, nil
}

// Get returns a booking by ID.
func (s *BookingService) Get(ctx context.Context, bookingID string) (*domain.Booking, error) {
	booking, err := s.store.Bookings.Get(ctx, bookingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("booking not found")
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return booking, nil
}

// List returns a page of all bookings selected by query parameters.
func (s *BookingService) List(ctx context.Context, params url.Values) (*query.Result, error) {
	q, err := query.Parse(params)
	if err != nil {
		return nil, err
	}
	bookings, err := s.store.Bookings.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return query.Run(q, bookings)
}

// ListByTour returns every booking of one tour.
func (s *BookingService) ListByTour(ctx context.Context, tourID string) ([]*domain.Booking, error) {
	bookings, err := s.store.Bookings.ListByIndex(ctx, "tour", tourID)
	if err != nil {
		return nil, fmt.Errorf("list tour bookings: %w", err)
	}
	return bookings, nil
}

// ListByUser returns every booking made by one user.
func (s *BookingService) ListByUser(ctx context.Context, userID string) ([]*domain.Booking, error) {
	bookings, err := s.store.Bookings.ListByIndex(ctx, "user", userID)
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}
	return bookings, nil
}

// Update changes a booking's payment state.
func (s *BookingService) Update(ctx context.Context, bookingID string, req UpdateBookingRequest) (*domain.Booking, error) {
	booking, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if req.Paid != nil {
		booking.Paid = *req.Paid
	}
	booking.Touch()

	if err := s.store.Bookings.Update(ctx, bookingID, booking); err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}
	return booking, nil
}

// Delete removes a booking.
func (s *BookingService) Delete(ctx context.Context, bookingID string) error {
	if err := s.store.Bookings.Delete(ctx, bookingID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("booking not found")
		}
		return fmt.Errorf("delete booking: %w", err)
	}
	return nil
}
