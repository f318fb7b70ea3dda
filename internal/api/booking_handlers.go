package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tourhubapp/tourhub-server/internal/domain"
	domainerrors "github.com/tourhubapp/tourhub-server/internal/errors"
	"github.com/tourhubapp/tourhub-server/internal/service"
)

func (s *Server) registerBookingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createBooking",
		Method:      http.MethodPost,
		Path:        "/api/v1/bookings",
		Summary:     "Create booking",
		Description: "Books a tour. Users book for themselves; admins may book on behalf of anyone.",
		Tags:        []string{"Bookings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateBooking)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookings",
		Method:      http.MethodGet,
		Path:        "/api/v1/bookings",
		Summary:     "List bookings",
		Description: "Returns a filtered, sorted, paginated page of bookings. Admins only.",
		Tags:        []string{"Bookings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBookings)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBooking",
		Method:      http.MethodGet,
		Path:        "/api/v1/bookings/{id}",
		Summary:     "Get booking",
		Description: "Returns a booking. Admins or the booking owner only.",
		Tags:        []string{"Bookings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBooking)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBooking",
		Method:      http.MethodPatch,
		Path:        "/api/v1/bookings/{id}",
		Summary:     "Update booking",
		Description: "Updates a booking's paid flag. Admins only.",
		Tags:        []string{"Bookings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateBooking)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBooking",
		Method:      http.MethodDelete,
		Path:        "/api/v1/bookings/{id}",
		Summary:     "Delete booking",
		Description: "Deletes a booking. Admins only.",
		Tags:        []string{"Bookings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteBooking)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMyBookings",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me/bookings",
		Summary:     "List my bookings",
		Description: "Returns the authenticated user's bookings",
		Tags:        []string{"Bookings", "Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListMyBookings)

	huma.Register(s.api, huma.Operation{
		OperationID: "listTourBookings",
		Method:      http.MethodGet,
		Path:        "/api/v1/tours/{id}/bookings",
		Summary:     "List tour bookings",
		Description: "Returns all bookings for a tour. Admins and lead guides only.",
		Tags:        []string{"Bookings", "Tours"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListTourBookings)
}

// === DTOs ===

// BookingResponse contains booking data in API responses.
type BookingResponse struct {
	ID        string    `json:"id" doc:"Booking ID"`
	TourID    string    `json:"tour_id" doc:"Booked tour ID"`
	UserID    string    `json:"user_id" doc:"Booking owner user ID"`
	Price     float64   `json:"price" doc:"Price at booking time"`
	Paid      bool      `json:"paid" doc:"Whether the booking has been paid"`
	CreatedAt time.Time `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update timestamp"`
}

// BookingOutput wraps a single booking response for Huma.
type BookingOutput struct {
	Body BookingResponse
}

// BookingListOutput wraps a plain booking list for Huma.
type BookingListOutput struct {
	Body []BookingResponse
}

// CreateBookingRequest is the request body for booking a tour.
type CreateBookingRequest struct {
	TourID string `json:"tour_id" validate:"required" doc:"Tour to book"`
	UserID string `json:"user_id,omitempty" doc:"Booking owner, defaults to the caller. Admins only."`
	Paid   bool   `json:"paid,omitempty" doc:"Mark as already paid. Admins only."`
}

// CreateBookingInput wraps the create request for Huma.
type CreateBookingInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateBookingRequest
}

// ListBookingsInput contains parameters for listing bookings.
type ListBookingsInput struct {
	Authorization string `header:"Authorization"`
	filterParams
}

// GetBookingInput contains parameters for fetching one booking.
type GetBookingInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Booking ID"`
}

// UpdateBookingRequest is the request body for booking updates.
type UpdateBookingRequest struct {
	Paid *bool `json:"paid,omitempty" doc:"Whether the booking has been paid"`
}

// UpdateBookingInput wraps the update request for Huma.
type UpdateBookingInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Booking ID"`
	Body          UpdateBookingRequest
}

// DeleteBookingInput contains parameters for deleting a booking.
type DeleteBookingInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Booking ID"`
}

// ListMyBookingsInput carries the caller's credentials.
type ListMyBookingsInput struct {
	Authorization string `header:"Authorization"`
}

// ListTourBookingsInput contains the tour whose bookings to list.
type ListTourBookingsInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tour ID"`
}

// === Handlers ===

func (s *Server) handleCreateBooking(ctx context.Context, input *CreateBookingInput) (*BookingOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	req := service.CreateBookingRequest{
		TourID: input.Body.TourID,
		UserID: user.ID,
	}
	if user.IsAdmin() {
		if input.Body.UserID != "" {
			req.UserID = input.Body.UserID
		}
		req.Paid = input.Body.Paid
	} else if input.Body.UserID != "" && input.Body.UserID != user.ID {
		return nil, domainerrors.Forbidden("you may only book tours for yourself")
	}

	booking, err := s.services.Booking.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	return &BookingOutput{Body: mapBooking(booking)}, nil
}

func (s *Server) handleListBookings(ctx context.Context, input *ListBookingsInput) (*ListResultOutput, error) {
	if _, err := s.requireRoles(ctx, input.Authorization, domain.RoleAdmin); err != nil {
		return nil, err
	}

	result, err := s.services.Booking.List(ctx, input.values)
	if err != nil {
		return nil, err
	}

	return &ListResultOutput{Body: *result}, nil
}

func (s *Server) handleGetBooking(ctx context.Context, input *GetBookingInput) (*BookingOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	booking, err := s.services.Booking.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != user.ID && !user.IsAdmin() {
		return nil, domainerrors.Forbidden("you may only view your own bookings")
	}

	return &BookingOutput{Body: mapBooking(booking)}, nil
}

func (s *Server) handleUpdateBooking(ctx context.Context, input *UpdateBookingInput) (*BookingOutput, error) {
	if _, err := s.requireRoles(ctx, input.Authorization, domain.RoleAdmin); err != nil {
		return nil, err
	}

	booking, err := s.services.Booking.Update(ctx, input.ID, service.UpdateBookingRequest{
		Paid: input.Body.Paid,
	})
	if err != nil {
		return nil, err
	}

	return &BookingOutput{Body: mapBooking(booking)}, nil
}

func (s *Server) handleDeleteBooking(ctx context.Context, input *DeleteBookingInput) (*MessageOutput, error) {
	if _, err := s.requireRoles(ctx, input.Authorization, domain.RoleAdmin); err != nil {
		return nil, err
	}

	if err := s.services.Booking.Delete(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Booking deleted"}}, nil
}

func (s *Server) handleListMyBookings(ctx context.Context, input *ListMyBookingsInput) (*BookingListOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	bookings, err := s.services.Booking.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &BookingListOutput{Body: mapBookings(bookings)}, nil
}

func (s *Server) handleListTourBookings(ctx context.Context, input *ListTourBookingsInput) (*BookingListOutput, error) {
	if _, err := s.requireRoles(ctx, input.Authorization,
		domain.RoleAdmin, domain.RoleLeadGuide); err != nil {
		return nil, err
	}

	bookings, err := s.services.Booking.ListByTour(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &BookingListOutput{Body: mapBookings(bookings)}, nil
}

// === Helpers ===

func mapBooking(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:        b.ID,
		TourID:    b.TourID,
		UserID:    b.UserID,
		Price:     b.Price,
		Paid:      b.Paid,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func mapBookings(bookings []*domain.Booking) []BookingResponse {
	resp := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = mapBooking(b)
	}
	return resp
}
