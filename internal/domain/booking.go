package domain

// Booking records a user purchasing a spot on a tour.
// The price is captured at booking time; later tour price changes
// do not affect existing bookings.
type Booking struct {
	Record
	TourID string  `json:"tour_id"`
	UserID string  `json:"user_id"`
	Price  float64 `json:"price"`
	Paid   bool    `json:"paid"`
}
