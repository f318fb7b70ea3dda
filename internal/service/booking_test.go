package service

import (
	"context"
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourhubapp/tourhub-server/internal/domain"
	domainerrors "github.com/tourhubapp/tourhub-server/internal/errors"
	"github.com/tourhubapp/tourhub-server/internal/store"
)

func newTestBookingService(t *testing.T) (*BookingService, *TourService, *store.Store) {
	t.Helper()
	tours, s := newTestTourService(t)
	logger := slog.New(slog.DiscardHandler)
	return NewBookingService(s, logger), tours, s
}

func TestBookingService_Create_SnapshotsPrice(t *testing.T) {
	bookings, tours, s := newTestBookingService(t)
	ctx := context.Background()

	req := validTourRequest("The Sea Explorer")
	req.Price = 500
	req.PriceDiscount = 100
	tour, err := tours.Create(ctx, req)
	require.NoError(t, err)

	user := seedUser(t, s, "user_1", domain.RoleUser)

	booking, err := bookings.Create(ctx, CreateBookingRequest{TourID: tour.ID, UserID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, 400.0, booking.Price)
	assert.False(t, booking.Paid)

	// A later price change does not touch the existing booking
	newPrice := 900.0
	_, err = tours.Update(ctx, tour.ID, UpdateTourRequest{Price: &newPrice})
	require.NoError(t, err)

	got, err := bookings.Get(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, 400.0, got.Price)
}

func TestBookingService_Create_MissingReferences(t *testing.T) {
	bookings, tours, s := newTestBookingService(t)
	ctx := context.Background()

	tour, err := tours.Create(ctx, validTourRequest("The Sea Explorer"))
	require.NoError(t, err)
	seedUser(t, s, "user_1", domain.RoleUser)

	_, err = bookings.Create(ctx, CreateBookingRequest{TourID: "tour_missing", UserID: "user_1"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = bookings.Create(ctx, CreateBookingRequest{TourID: tour.ID, UserID: "user_missing"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = bookings.Create(ctx, CreateBookingRequest{TourID: tour.ID})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestBookingService_UpdatePaid(t *testing.T) {
	bookings, tours, s := newTestBookingService(t)
	ctx := context.Background()

	tour, err := tours.Create(ctx, validTourRequest("The Sea Explorer"))
	require.NoError(t, err)
	user := seedUser(t, s, "user_1", domain.RoleUser)

	booking, err := bookings.Create(ctx, CreateBookingRequest{TourID: tour.ID, UserID: user.ID})
	require.NoError(t, err)

	paid := true
	updated, err := bookings.Update(ctx, booking.ID, UpdateBookingRequest{Paid: &paid})
	require.NoError(t, err)
	assert.True(t, updated.Paid)

	_, err = bookings.Update(ctx, "booking_missing", UpdateBookingRequest{Paid: &paid})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestBookingService_Listing(t *testing.T) {
	bookings, tours, s := newTestBookingService(t)
	ctx := context.Background()

	first, err := tours.Create(ctx, validTourRequest("The Sea Explorer"))
	require.NoError(t, err)
	second, err := tours.Create(ctx, validTourRequest("The Forest Hiker"))
	require.NoError(t, err)

	alice := seedUser(t, s, "user_alice", domain.RoleUser)
	bob := seedUser(t, s, "user_bob", domain.RoleUser)

	_, err = bookings.Create(ctx, CreateBookingRequest{TourID: first.ID, UserID: alice.ID, Paid: true})
	require.NoError(t, err)
	_, err = bookings.Create(ctx, CreateBookingRequest{TourID: second.ID, UserID: alice.ID})
	require.NoError(t, err)
	_, err = bookings.Create(ctx, CreateBookingRequest{TourID: first.ID, UserID: bob.ID})
	require.NoError(t, err)

	byTour, err := bookings.ListByTour(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, byTour, 2)

	byUser, err := bookings.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	page, err := bookings.List(ctx, url.Values{"paid": {"true"}})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestBookingService_Delete(t *testing.T) {
	bookings, tours, s := newTestBookingService(t)
	ctx := context.Background()

	tour, err := tours.Create(ctx, validTourRequest("The Sea Explorer"))
	require.NoError(t, err)
	user := seedUser(t, s, "user_1", domain.RoleUser)

	booking, err := bookings.Create(ctx, CreateBookingRequest{TourID: tour.ID, UserID: user.ID})
	require.NoError(t, err)

	require.NoError(t, bookings.Delete(ctx, booking.ID))
	_, err = bookings.Get(ctx, booking.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	err = bookings.Delete(ctx, booking.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
