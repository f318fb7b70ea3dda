package search

import (
	"fmt"
	"math"

	"github.com/blevesearch/bleve/v2"
	bleveSearch "github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
)

// maxGeoResults bounds geo queries; a radius covering every tour should
// still return a complete answer.
const maxGeoResults = 1000

// Params configures a text search.
type Params struct {
	Query      string  // User's search query
	Difficulty string  // Exact difficulty filter (empty = all)
	MinPrice   float64 // Minimum price (0 = unbounded)
	MaxPrice   float64 // Maximum price (0 = unbounded)
	Limit      int
	Offset     int
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{Limit: 20}
}

// Hit is a single search result.
type Hit struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Name    string  `json:"name"`
	Summary string  `json:"summary,omitempty"`
}

// SearchResult holds search results.
type SearchResult struct {
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Search runs a full-text query over tour names, summaries and descriptions,
// optionally narrowed by difficulty and price range.
func (s *Index) Search(params Params) (*SearchResult, error) {
	if params.Limit <= 0 {
		params.Limit = 20
	}

	var must []bleveQuery

	if params.Query != "" {
		nameQuery := bleve.NewMatchQuery(params.Query)
		nameQuery.SetField("name")
		nameQuery.SetBoost(3.0)

		summaryQuery := bleve.NewMatchQuery(params.Query)
		summaryQuery.SetField("summary")
		summaryQuery.SetBoost(2.0)

		descQuery := bleve.NewMatchQuery(params.Query)
		descQuery.SetField("description")

		must = append(must, bleve.NewDisjunctionQuery(nameQuery, summaryQuery, descQuery))
	}

	if params.Difficulty != "" {
		difficultyQuery := bleve.NewTermQuery(params.Difficulty)
		difficultyQuery.SetField("difficulty")
		must = append(must, difficultyQuery)
	}

	if params.MinPrice > 0 || params.MaxPrice > 0 {
		var minPrice, maxPrice *float64
		if params.MinPrice > 0 {
			minPrice = &params.MinPrice
		}
		if params.MaxPrice > 0 {
			maxPrice = &params.MaxPrice
		}
		priceQuery := bleve.NewNumericRangeQuery(minPrice, maxPrice)
		priceQuery.SetField("price")
		must = append(must, priceQuery)
	}

	var q bleveQuery
	switch len(must) {
	case 0:
		q = bleve.NewMatchAllQuery()
	case 1:
		q = must[0]
	default:
		q = bleve.NewConjunctionQuery(must...)
	}

	req := bleve.NewSearchRequestOptions(q, params.Limit, params.Offset, false)
	req.Fields = []string{"name", "summary"}

	s.mu.RLock()
	res, err := s.index.Search(req)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	result := &SearchResult{
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		h := Hit{ID: hit.ID, Score: hit.Score}
		if name, ok := hit.Fields["name"].(string); ok {
			h.Name = name
		}
		if summary, ok := hit.Fields["summary"].(string); ok {
			h.Summary = summary
		}
		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// ToursWithin returns the ids of tours whose start location lies within
// radiusMeters of the given point, nearest first.
func (s *Index) ToursWithin(lat, lng, radiusMeters float64) ([]string, error) {
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %f", radiusMeters)
	}

	q := bleve.NewGeoDistanceQuery(lng, lat, fmt.Sprintf("%fm", radiusMeters))
	q.SetField("start_location")

	req := bleve.NewSearchRequestOptions(q, maxGeoResults, 0, false)
	req.SortByCustom(bleveSearch.SortOrder{
		&bleveSearch.SortGeoDistance{
			Field: "start_location",
			Lon:   lng,
			Lat:   lat,
			Unit:  "m",
		},
	})

	s.mu.RLock()
	res, err := s.index.Search(req)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("geo search: %w", err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// bleveQuery aliases the bleve query interface for local readability.
type bleveQuery = query.Query

// earthRadiusMeters is the mean Earth radius used for haversine distances.
const earthRadiusMeters = 6371008.8

// Haversine returns the great-circle distance in meters between two points.
// Used for the distances endpoint, where every tour gets a distance rather
// than a radius cutoff.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}
