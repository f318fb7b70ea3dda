package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourhubapp/tourhub-server/internal/domain"
)

func setupIndex(t *testing.T) *Index {
	t.Helper()

	idx, err := NewIndex(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func seedTours(t *testing.T, idx *Index) {
	t.Helper()

	tours := []*domain.Tour{
		{
			Record:     domain.Record{ID: "tour-forest", CreatedAt: time.Now()},
			Name:       "The Forest Hiker",
			Summary:    "Breathtaking hike through the Canadian Banff National Park",
			Difficulty: domain.DifficultyEasy,
			Price:      397,
			StartLocation: domain.Location{
				GeoPoint: domain.GeoPoint{Lat: 51.178, Lng: -115.571}, // Banff
			},
		},
		{
			Record:     domain.Record{ID: "tour-sea", CreatedAt: time.Now()},
			Name:       "The Sea Explorer",
			Summary:    "Exploring the jaw-dropping US east coast by yacht",
			Difficulty: domain.DifficultyMedium,
			Price:      497,
			StartLocation: domain.Location{
				GeoPoint: domain.GeoPoint{Lat: 25.762, Lng: -80.191}, // Miami
			},
		},
		{
			Record:     domain.Record{ID: "tour-snow", CreatedAt: time.Now()},
			Name:       "The Snow Adventurer",
			Summary:    "Exciting adventure in the snow with snowboarding and skiing",
			Difficulty: domain.DifficultyDifficult,
			Price:      997,
			StartLocation: domain.Location{
				GeoPoint: domain.GeoPoint{Lat: 40.017, Lng: -105.282}, // Boulder
			},
		},
	}

	docs := make([]*TourDocument, 0, len(tours))
	for _, tour := range tours {
		docs = append(docs, NewTourDocument(tour))
	}
	require.NoError(t, idx.IndexTours(docs))
}

func TestSearch_TextMatch(t *testing.T) {
	idx := setupIndex(t)
	seedTours(t, idx)

	result, err := idx.Search(Params{Query: "forest hike", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "tour-forest", result.Hits[0].ID)
	assert.Equal(t, "The Forest Hiker", result.Hits[0].Name)
}

func TestSearch_DifficultyFilter(t *testing.T) {
	idx := setupIndex(t)
	seedTours(t, idx)

	result, err := idx.Search(Params{Difficulty: "difficult", Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "tour-snow", result.Hits[0].ID)
}

func TestSearch_PriceRange(t *testing.T) {
	idx := setupIndex(t)
	seedTours(t, idx)

	result, err := idx.Search(Params{MinPrice: 400, MaxPrice: 600, Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "tour-sea", result.Hits[0].ID)
}

func TestSearch_MatchAll(t *testing.T) {
	idx := setupIndex(t)
	seedTours(t, idx)

	result, err := idx.Search(Params{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), result.Total)
}

func TestToursWithin(t *testing.T) {
	idx := setupIndex(t)
	seedTours(t, idx)

	// 300km around Calgary catches Banff but not Miami or Boulder.
	ids, err := idx.ToursWithin(51.044, -114.07, 300_000)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "tour-forest", ids[0])

	// A continent-sized radius finds everything, nearest first.
	ids, err = idx.ToursWithin(51.044, -114.07, 5_000_000)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, "tour-forest", ids[0])
}

func TestToursWithin_InvalidRadius(t *testing.T) {
	idx := setupIndex(t)

	_, err := idx.ToursWithin(0, 0, 0)
	require.Error(t, err)
}

func TestDeleteTour(t *testing.T) {
	idx := setupIndex(t)
	seedTours(t, idx)

	require.NoError(t, idx.DeleteTour("tour-sea"))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestRebuild(t *testing.T) {
	idx := setupIndex(t)
	seedTours(t, idx)

	require.NoError(t, idx.Rebuild())

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)

	// The rebuilt index accepts new documents.
	require.NoError(t, idx.IndexTour(&TourDocument{ID: "tour-x", Name: "X"}))
}

func TestHaversine(t *testing.T) {
	// Paris to London is roughly 344 km.
	d := Haversine(48.8566, 2.3522, 51.5074, -0.1278)
	assert.InDelta(t, 344_000, d, 5_000)

	// Zero distance.
	assert.Zero(t, Haversine(10, 20, 10, 20))
}
