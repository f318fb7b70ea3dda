package domain

// Review is a user's rating of a tour. One review per user per tour.
type Review struct {
	Record
	Text   string  `json:"text"`
	Rating float64 `json:"rating"` // 1..5
	TourID string  `json:"tour_id"`
	UserID string  `json:"user_id"`
}
