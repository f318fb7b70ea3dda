package api

import (
	"github.com/tourhubapp/tourhub-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth    *service.AuthService
	Tour    *service.TourService
	Review  *service.ReviewService
	Booking *service.BookingService
	User    *service.UserService
}
