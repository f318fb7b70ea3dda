package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tourhubapp/tourhub-server/internal/blob"
	"github.com/tourhubapp/tourhub-server/internal/domain"
	domainerrors "github.com/tourhubapp/tourhub-server/internal/errors"
	"github.com/tourhubapp/tourhub-server/internal/id"
	"github.com/tourhubapp/tourhub-server/internal/media/images"
	"github.com/tourhubapp/tourhub-server/internal/query"
	"github.com/tourhubapp/tourhub-server/internal/search"
	"github.com/tourhubapp/tourhub-server/internal/store"
	"github.com/tourhubapp/tourhub-server/internal/util"
)

const (
	metersPerKilometer = 1000.0
	metersPerMile      = 1609.344

	// maxTourImages caps the gallery size per tour.
	maxTourImages = 3
)

// TourService manages the tour catalog, its search index and tour imagery.
type TourService struct {
	store  *store.Store
	search *search.Index
	blob   blob.Storage
	images *images.Processor
	logger *slog.Logger
}

// NewTourService creates a new tour service.
func NewTourService(
	s *store.Store,
	idx *search.Index,
	storage blob.Storage,
	proc *images.Processor,
	logger *slog.Logger,
) *TourService {
	return &TourService{
		store:  s,
		search: idx,
		blob:   storage,
		images: proc,
		logger: logger,
	}
}

// CreateTourRequest contains the data for a new tour.
type CreateTourRequest struct {
	Name          string            `json:"name" validate:"required,max=100"`
	Duration      int               `json:"duration" validate:"required,gte=1"`
	MaxGroupSize  int               `json:"max_group_size" validate:"required,gte=1"`
	Difficulty    domain.Difficulty `json:"difficulty" validate:"required,oneof=easy medium difficult"`
	Price         float64           `json:"price" validate:"required,gt=0"`
	PriceDiscount float64           `json:"price_discount,omitempty" validate:"gte=0"`
	Summary       string            `json:"summary" validate:"required,max=500"`
	Description   string            `json:"description,omitempty"`
	StartDates    []time.Time       `json:"start_dates,omitempty"`
	StartLocation domain.Location   `json:"start_location"`
	Locations     []domain.Location `json:"locations,omitempty"`
	GuideIDs      []string          `json:"guide_ids,omitempty"`
	Secret        bool              `json:"secret,omitempty"`
}

// UpdateTourRequest contains a partial tour update. Nil fields are left
// unchanged.
type UpdateTourRequest struct {
	Name          *string            `json:"name,omitempty" validate:"omitempty,max=100"`
	Duration      *int               `json:"duration,omitempty" validate:"omitempty,gte=1"`
	MaxGroupSize  *int               `json:"max_group_size,omitempty" validate:"omitempty,gte=1"`
	Difficulty    *domain.Difficulty `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium difficult"`
	Price         *float64           `json:"price,omitempty" validate:"omitempty,gt=0"`
	PriceDiscount *float64           `json:"price_discount,omitempty" validate:"omitempty,gte=0"`
	Summary       *string            `json:"summary,omitempty" validate:"omitempty,max=500"`
	Description   *string            `json:"description,omitempty"`
	StartDates    []time.Time        `json:"start_dates,omitempty"`
	StartLocation *domain.Location   `json:"start_location,omitempty"`
	Locations     []domain.Location  `json:"locations,omitempty"`
	GuideIDs      []string           `json:"guide_ids,omitempty"`
	Secret        *bool              `json:"secret,omitempty"`
}

// Create adds a new tour to the catalog and indexes it for search.
func (s *TourService) Create(ctx context.Context, req CreateTourRequest) (*domain.Tour, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}
	if err := validateLocation(req.StartLocation, "start_location"); err != nil {
		return nil, err
	}
	for i, loc := range req.Locations {
		if err := validateLocation(loc, fmt.Sprintf("locations[%d]", i)); err != nil {
			return nil, err
		}
	}
	if req.PriceDiscount >= req.Price && req.PriceDiscount != 0 {
		return nil, domainerrors.Validation("price_discount must be below price")
	}
	if err := s.validateGuides(ctx, req.GuideIDs); err != nil {
		return nil, err
	}

	tourID, err := id.Generate("tour")
	if err != nil {
		return nil, fmt.Errorf("generate tour ID: %w", err)
	}

	tour := &domain.Tour{
		Record:         domain.Record{ID: tourID},
		Name:           req.Name,
		Slug:           util.Slugify(req.Name),
		Duration:       req.Duration,
		MaxGroupSize:   req.MaxGroupSize,
		Difficulty:     req.Difficulty,
		Price:          req.Price,
		PriceDiscount:  req.PriceDiscount,
		Summary:        req.Summary,
		Description:    req.Description,
		StartDates:     req.StartDates,
		StartLocation:  req.StartLocation,
		Locations:      req.Locations,
		GuideIDs:       req.GuideIDs,
		Secret:         req.Secret,
		RatingsAverage: domain.DefaultRatingsAverage,
	}
	tour.InitTimestamps()

	if err := s.store.Tours.Create(ctx, tourID, tour); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("a tour with this name already exists")
		}
		return nil, fmt.Errorf("create tour: %w", err)
	}

	s.indexTour(tour)
	s.logger.Info("tour created", "tour_id", tourID, "slug", tour.Slug)
	return tour, nil
}

// Get returns a tour by ID.
func (s *TourService) Get(ctx context.Context, tourID string) (*domain.Tour, error) {
	tour, err := s.store.Tours.Get(ctx, tourID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("tour not found")
		}
		return nil, fmt.Errorf("get tour: %w", err)
	}
	return tour, nil
}

// GetBySlug returns a tour by its URL slug.
func (s *TourService) GetBySlug(ctx context.Context, slug string) (*domain.Tour, error) {
	tour, err := s.store.Tours.GetByIndex(ctx, "slug", slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("tour not found")
		}
		return nil, fmt.Errorf("get tour by slug: %w", err)
	}
	return tour, nil
}

// List returns a page of tours selected by the request's query parameters.
// Secret tours only appear when includeSecret is set.
func (s *TourService) List(ctx context.Context, params url.Values, includeSecret bool) (*query.Result, error) {
	q, err := query.Parse(params)
	if err != nil {
		return nil, err
	}
	tours, err := s.visibleTours(ctx, includeSecret)
	if err != nil {
		return nil, err
	}
	return query.Run(q, tours)
}

// TopCheap returns the five best-rated tours ordered by price, a canned
// variant of List for the landing page.
func (s *TourService) TopCheap(ctx context.Context) (*query.Result, error) {
	params := url.Values{
		"limit":  {"5"},
		"sort":   {"-ratings_average,price"},
		"fields": {"name,slug,price,ratings_average,summary,difficulty,duration"},
	}
	return s.List(ctx, params, false)
}

// Update applies a partial update to a tour. A name change also changes
// the slug.
func (s *TourService) Update(ctx context.Context, tourID string, req UpdateTourRequest) (*domain.Tour, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}
	if req.StartLocation != nil {
		if err := validateLocation(*req.StartLocation, "start_location"); err != nil {
			return nil, err
		}
	}
	for i, loc := range req.Locations {
		if err := validateLocation(loc, fmt.Sprintf("locations[%d]", i)); err != nil {
			return nil, err
		}
	}
	if req.GuideIDs != nil {
		if err := s.validateGuides(ctx, req.GuideIDs); err != nil {
			return nil, err
		}
	}

	tour, err := s.Get(ctx, tourID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		tour.Name = *req.Name
		tour.Slug = util.Slugify(*req.Name)
	}
	if req.Duration != nil {
		tour.Duration = *req.Duration
	}
	if req.MaxGroupSize != nil {
		tour.MaxGroupSize = *req.MaxGroupSize
	}
	if req.Difficulty != nil {
		tour.Difficulty = *req.Difficulty
	}
	if req.Price != nil {
		tour.Price = *req.Price
	}
	if req.PriceDiscount != nil {
		tour.PriceDiscount = *req.PriceDiscount
	}
	if req.Summary != nil {
		tour.Summary = *req.Summary
	}
	if req.Description != nil {
		tour.Description = *req.Description
	}
	if req.StartDates != nil {
		tour.StartDates = req.StartDates
	}
	if req.StartLocation != nil {
		tour.StartLocation = *req.StartLocation
	}
	if req.Locations != nil {
		tour.Locations = req.Locations
	}
	if req.GuideIDs != nil {
		tour.GuideIDs = req.GuideIDs
	}
	if req.Secret != nil {
		tour.Secret = *req.Secret
	}
	if tour.PriceDiscount >= tour.Price && tour.PriceDiscount != 0 {
		return nil, domainerrors.Validation("price_discount must be below price")
	}
	tour.Touch()

	if err := s.store.Tours.Update(ctx, tourID, tour); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("a tour with this name already exists")
		}
		return nil, fmt.Errorf("update tour: %w", err)
	}

	s.indexTour(tour)
	return tour, nil
}

// Delete removes a tour along with its reviews, bookings, stored images and
// search document.
func (s *TourService) Delete(ctx context.Context, tourID string) error {
	if _, err := s.Get(ctx, tourID); err != nil {
		return err
	}

	reviews, err := s.store.Reviews.ListByIndex(ctx, "tour", tourID)
	if err != nil {
		return fmt.Errorf("list tour reviews: %w", err)
	}
	for _, r := range reviews {
		if err := s.store.Reviews.Delete(ctx, r.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("delete review %s: %w", r.ID, err)
		}
	}

	bookings, err := s.store.Bookings.ListByIndex(ctx, "tour", tourID)
	if err != nil {
		return fmt.Errorf("list tour bookings: %w", err)
	}
	for _, b := range bookings {
		if err := s.store.Bookings.Delete(ctx, b.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("delete booking %s: %w", b.ID, err)
		}
	}

	if err := s.blob.DeletePrefix(ctx, "tours/"+tourID); err != nil {
		s.logger.Warn("failed to delete tour images", "tour_id", tourID, "error", err)
	}
	if err := s.search.DeleteTour(tourID); err != nil {
		s.logger.Warn("failed to remove tour from search index", "tour_id", tourID, "error", err)
	}

	if err := s.store.Tours.Delete(ctx, tourID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("tour not found")
		}
		return fmt.Errorf("delete tour: %w", err)
	}

	s.logger.Info("tour deleted", "tour_id", tourID,
		"reviews_removed", len(reviews), "bookings_removed", len(bookings))
	return nil
}

// TourStats aggregates catalog numbers per difficulty.
type TourStats struct {
	Difficulty domain.Difficulty `json:"difficulty"`
	Count      int               `json:"count"`
	AvgRating  float64           `json:"avg_rating"`
	AvgPrice   float64           `json:"avg_price"`
	MinPrice   float64           `json:"min_price"`
	MaxPrice   float64           `json:"max_price"`
}

// Stats computes per-difficulty aggregates over the public catalog,
// ordered by average price.
func (s *TourService) Stats(ctx context.Context) ([]TourStats, error) {
	tours, err := s.visibleTours(ctx, false)
	if err != nil {
		return nil, err
	}

	type acc struct {
		count               int
		ratingSum, priceSum float64
		minPrice, maxPrice  float64
	}
	groups := make(map[domain.Difficulty]*acc)
	for _, t := range tours {
		g, ok := groups[t.Difficulty]
		if !ok {
			g = &acc{minPrice: t.Price, maxPrice: t.Price}
			groups[t.Difficulty] = g
		}
		g.count++
		g.ratingSum += t.RatingsAverage
		g.priceSum += t.Price
		g.minPrice = min(g.minPrice, t.Price)
		g.maxPrice = max(g.maxPrice, t.Price)
	}

	stats := make([]TourStats, 0, len(groups))
	for difficulty, g := range groups {
		stats = append(stats, TourStats{
			Difficulty: difficulty,
			Count:      g.count,
			AvgRating:  g.ratingSum / float64(g.count),
			AvgPrice:   g.priceSum / float64(g.count),
			MinPrice:   g.minPrice,
			MaxPrice:   g.maxPrice,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].AvgPrice < stats[j].AvgPrice })
	return stats, nil
}

// MonthlyPlanEntry lists the tours starting in one month of a year.
type MonthlyPlanEntry struct {
	Month      time.Month `json:"month"`
	TourStarts int        `json:"tour_starts"`
	Tours      []string   `json:"tours"` // Tour names
}

// MonthlyPlan reports how many tours start in each month of the given year,
// busiest months first.
func (s *TourService) MonthlyPlan(ctx context.Context, year int) ([]MonthlyPlanEntry, error) {
	if year < 1970 || year > 2100 {
		return nil, domainerrors.Validationf("invalid year %d", year)
	}
	tours, err := s.visibleTours(ctx, false)
	if err != nil {
		return nil, err
	}

	byMonth := make(map[time.Month][]string)
	for _, t := range tours {
		for _, start := range t.StartDates {
			if start.Year() == year {
				byMonth[start.Month()] = append(byMonth[start.Month()], t.Name)
			}
		}
	}

	plan := make([]MonthlyPlanEntry, 0, len(byMonth))
	for month, names := range byMonth {
		sort.Strings(names)
		plan = append(plan, MonthlyPlanEntry{Month: month, TourStarts: len(names), Tours: names})
	}
	sort.Slice(plan, func(i, j int) bool {
		if plan[i].TourStarts != plan[j].TourStarts {
			return plan[i].TourStarts > plan[j].TourStarts
		}
		return plan[i].Month < plan[j].Month
	})
	return plan, nil
}

// Within returns all public tours whose start location lies within the given
// distance of a point. Unit is "km" or "mi".
func (s *TourService) Within(ctx context.Context, lat, lng, distance float64, unit string) ([]*domain.Tour, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if distance <= 0 {
		return nil, domainerrors.Validation("distance must be positive")
	}
	factor, err := unitToMeters(unit)
	if err != nil {
		return nil, err
	}

	ids, err := s.search.ToursWithin(lat, lng, distance*factor)
	if err != nil {
		return nil, fmt.Errorf("geo search: %w", err)
	}

	tours := make([]*domain.Tour, 0, len(ids))
	for _, tourID := range ids {
		tour, err := s.store.Tours.Get(ctx, tourID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Index briefly lags the store after deletes.
				continue
			}
			return nil, fmt.Errorf("get tour %s: %w", tourID, err)
		}
		if tour.Secret {
			continue
		}
		tours = append(tours, tour)
	}
	return tours, nil
}

// TourDistance pairs a tour with its distance from a reference point.
type TourDistance struct {
	TourID   string  `json:"tour_id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"` // In the requested unit
}

// Distances returns every public tour's distance from a point, nearest
// first. Unit is "km" or "mi".
func (s *TourService) Distances(ctx context.Context, lat, lng float64, unit string) ([]TourDistance, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	factor, err := unitToMeters(unit)
	if err != nil {
		return nil, err
	}

	tours, err := s.visibleTours(ctx, false)
	if err != nil {
		return nil, err
	}

	distances := make([]TourDistance, 0, len(tours))
	for _, t := range tours {
		meters := search.Haversine(lat, lng, t.StartLocation.Lat, t.StartLocation.Lng)
		distances = append(distances, TourDistance{
			TourID:   t.ID,
			Name:     t.Name,
			Distance: meters / factor,
		})
	}
	sort.Slice(distances, func(i, j int) bool { return distances[i].Distance < distances[j].Distance })
	return distances, nil
}

// UploadCover replaces a tour's cover image. The payload is re-encoded to a
// fixed-size JPEG before storage.
func (s *TourService) UploadCover(ctx context.Context, tourID string, data []byte) (*domain.Tour, error) {
	tour, err := s.Get(ctx, tourID)
	if err != nil {
		return nil, err
	}

	processed, err := s.images.Process(data, images.TourImage)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tours/%s/cover.jpg", tourID)
	obj, err := s.blob.Upload(ctx, key, processed)
	if err != nil {
		return nil, fmt.Errorf("upload cover image: %w", err)
	}

	tour.CoverImageKey = obj.Key
	tour.CoverImageURL = obj.Location
	tour.Touch()
	if err := s.store.Tours.Update(ctx, tourID, tour); err != nil {
		return nil, fmt.Errorf("update tour: %w", err)
	}
	return tour, nil
}

// UploadImages replaces a tour's gallery with up to three images.
func (s *TourService) UploadImages(ctx context.Context, tourID string, payloads [][]byte) (*domain.Tour, error) {
	if len(payloads) == 0 {
		return nil, domainerrors.Validation("at least one image is required")
	}
	if len(payloads) > maxTourImages {
		return nil, domainerrors.Validationf("at most %d images are allowed", maxTourImages)
	}

	tour, err := s.Get(ctx, tourID)
	if err != nil {
		return nil, err
	}

	// Gallery keys are immutable: clients cache image URLs for a week,
	// so replaced galleries get fresh names under a cleared prefix.
	prefix := fmt.Sprintf("tours/%s/gallery/", tourID)
	if err := s.blob.DeletePrefix(ctx, prefix); err != nil {
		return nil, fmt.Errorf("clear tour gallery: %w", err)
	}

	keys := make([]string, 0, len(payloads))
	for i, data := range payloads {
		processed, err := s.images.Process(data, images.TourImage)
		if err != nil {
			return nil, err
		}
		key := prefix + uuid.NewString() + ".jpg"
		obj, err := s.blob.Upload(ctx, key, processed)
		if err != nil {
			return nil, fmt.Errorf("upload tour image %d: %w", i+1, err)
		}
		keys = append(keys, obj.Key)
	}

	tour.ImageKeys = keys
	tour.Touch()
	if err := s.store.Tours.Update(ctx, tourID, tour); err != nil {
		return nil, fmt.Errorf("update tour: %w", err)
	}
	return tour, nil
}

// SyncSearch rebuilds the search index from the store. Called at startup so
// the index reflects writes that may have been lost to a crash.
// Search runs a full-text query over the tour index and drops hits for
// secret tours or tours the index has not yet caught up on.
func (s *TourService) Search(ctx context.Context, params search.Params) (*search.SearchResult, error) {
	result, err := s.search.Search(params)
	if err != nil {
		return nil, fmt.Errorf("search tours: %w", err)
	}

	hits := make([]search.Hit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		tour, err := s.store.Tours.Get(ctx, hit.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get tour %s: %w", hit.ID, err)
		}
		if tour.Secret {
			continue
		}
		hits = append(hits, hit)
	}
	result.Hits = hits
	return result, nil
}

func (s *TourService) SyncSearch(ctx context.Context) error {
	tours, err := s.store.Tours.All(ctx)
	if err != nil {
		return fmt.Errorf("load tours: %w", err)
	}
	docs := make([]*search.TourDocument, 0, len(tours))
	for _, t := range tours {
		docs = append(docs, search.NewTourDocument(t))
	}
	if err := s.search.IndexTours(docs); err != nil {
		return fmt.Errorf("index tours: %w", err)
	}
	s.logger.Info("search index synced", "tours", len(docs))
	return nil
}

// SearchDocumentCount reports how many tours the search index holds. Used
// by health checks.
func (s *TourService) SearchDocumentCount() (uint64, error) {
	return s.search.DocumentCount()
}

// visibleTours loads all tours, filtering out secret ones unless asked.
func (s *TourService) visibleTours(ctx context.Context, includeSecret bool) ([]*domain.Tour, error) {
	all, err := s.store.Tours.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	if includeSecret {
		return all, nil
	}
	tours := make([]*domain.Tour, 0, len(all))
	for _, t := range all {
		if !t.Secret {
			tours = append(tours, t)
		}
	}
	return tours, nil
}

// indexTour writes a tour into the search index. Index failures are logged
// rather than returned; the store remains the source of truth and SyncSearch
// repairs the index on the next start.
func (s *TourService) indexTour(tour *domain.Tour) {
	if err := s.search.IndexTour(search.NewTourDocument(tour)); err != nil {
		s.logger.Warn("failed to index tour", "tour_id", tour.ID, "error", err)
	}
}

// validateGuides checks that every referenced guide exists and holds a
// guide role.
func (s *TourService) validateGuides(ctx context.Context, guideIDs []string) error {
	for _, guideID := range guideIDs {
		user, err := s.store.Users.Get(ctx, guideID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domainerrors.Validationf("guide %s does not exist", guideID)
			}
			return fmt.Errorf("get guide %s: %w", guideID, err)
		}
		if user.Role != domain.RoleGuide && user.Role != domain.RoleLeadGuide {
			return domainerrors.Validationf("user %s is not a guide", guideID)
		}
	}
	return nil
}

func validateLocation(loc domain.Location, field string) error {
	if err := validateCoordinates(loc.Lat, loc.Lng); err != nil {
		return domainerrors.Validationf("%s: %s", field, err.Error())
	}
	return nil
}

func validateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return domainerrors.Validation("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return domainerrors.Validation("longitude must be between -180 and 180")
	}
	return nil
}

func unitToMeters(unit string) (float64, error) {
	switch unit {
	case "km":
		return metersPerKilometer, nil
	case "mi":
		return metersPerMile, nil
	default:
		return 0, domainerrors.Validationf("unit must be km or mi, got %q", unit)
	}
}
