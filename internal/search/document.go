// Package search provides full-text and geospatial tour search using Bleve.
package search

import (
	"github.com/tourhubapp/tourhub-server/internal/domain"
)

// TourDocument is the indexed projection of a tour.
// Only the fields search cares about are carried; the store remains the
// source of truth and results are re-fetched by id.
type TourDocument struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Summary        string   `json:"summary"`
	Description    string   `json:"description"`
	Difficulty     string   `json:"difficulty"`
	Price          float64  `json:"price"`
	RatingsAverage float64  `json:"ratings_average"`
	Lat            float64  `json:"lat"`
	Lng            float64  `json:"lng"`
	CreatedAt      int64    `json:"created_at"` // Unix millis
}

// NewTourDocument projects a tour into its indexed form.
func NewTourDocument(t *domain.Tour) *TourDocument {
	return &TourDocument{
		ID:             t.ID,
		Name:           t.Name,
		Summary:        t.Summary,
		Description:    t.Description,
		Difficulty:     string(t.Difficulty),
		Price:          t.Price,
		RatingsAverage: t.RatingsAverage,
		Lat:            t.StartLocation.Lat,
		Lng:            t.StartLocation.Lng,
		CreatedAt:      t.CreatedAt.UnixMilli(),
	}
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly. The start
// location becomes a geopoint sub-document.
func (d *TourDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"name":       d.Name,
		"difficulty": d.Difficulty,
		"price":      d.Price,
		"created_at": d.CreatedAt,
		"start_location": map[string]interface{}{
			"lat": d.Lat,
			"lon": d.Lng,
		},
	}

	if d.Summary != "" {
		m["summary"] = d.Summary
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.RatingsAverage > 0 {
		m["ratings_average"] = d.RatingsAverage
	}

	return m
}
