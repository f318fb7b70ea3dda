package domain

import "time"

// Difficulty classifies how demanding a tour is.
type Difficulty string

const (
	// DifficultyEasy is suitable for everyone.
	DifficultyEasy Difficulty = "easy"
	// DifficultyMedium requires reasonable fitness.
	DifficultyMedium Difficulty = "medium"
	// DifficultyDifficult requires experience.
	DifficultyDifficult Difficulty = "difficult"
)

// DefaultRatingsAverage is the rating shown for tours without reviews.
const DefaultRatingsAverage = 4.5

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location describes a stop on a tour itinerary.
type Location struct {
	GeoPoint
	Description string `json:"description,omitempty"`
	Address     string `json:"address,omitempty"`
	Day         int    `json:"day,omitempty"` // Itinerary day this stop belongs to
}

// Tour represents a bookable tour offering.
type Tour struct {
	Record
	Name          string      `json:"name"`
	Slug          string      `json:"slug"`
	Duration      int         `json:"duration"` // Days
	MaxGroupSize  int         `json:"max_group_size"`
	Difficulty    Difficulty  `json:"difficulty"`
	Price         float64     `json:"price"`
	PriceDiscount float64     `json:"price_discount,omitempty"`
	Summary       string      `json:"summary"`
	Description   string      `json:"description,omitempty"`
	CoverImageKey string      `json:"cover_image_key,omitempty"`
	CoverImageURL string      `json:"cover_image_url,omitempty"`
	ImageKeys     []string    `json:"image_keys,omitempty"`
	StartDates    []time.Time `json:"start_dates,omitempty"`
	StartLocation Location    `json:"start_location"`
	Locations     []Location  `json:"locations,omitempty"`
	GuideIDs      []string    `json:"guide_ids,omitempty"` // User references
	Secret        bool        `json:"secret,omitempty"`    // Hidden from public listings

	// Aggregate rating, recomputed after every review mutation.
	RatingsAverage float64 `json:"ratings_average"`
	RatingsCount   int     `json:"ratings_count"`
}

// EffectivePrice returns the price after any discount.
func (t *Tour) EffectivePrice() float64 {
	if t.PriceDiscount > 0 && t.PriceDiscount < t.Price {
		return t.Price - t.PriceDiscount
	}
	return t.Price
}
