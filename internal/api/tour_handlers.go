package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/tourhubapp/tourhub-server/internal/domain"
	"github.com/tourhubapp/tourhub-server/internal/http/response"
	"github.com/tourhubapp/tourhub-server/internal/search"
	"github.com/tourhubapp/tourhub-server/internal/service"
)

func (s *Server) registerTourRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTours",
		Method:      http.MethodGet,
		Path:        "/api/v1/tours",
		Summary:     "List tours",
		Description: "Returns a filtered, sorted, paginated page of tours",
		Tags:        []string{"Tours"},
	}, s.handleListTours)

	huma.Register(s.api, huma.Operation{
		OperationID: "topCheapTours",
		Method:      http.MethodGet,
		Path:        "/api/v1/tours/top-5-cheap",
		Summary:     "Top five cheap tours",
		Description: "Returns the five best-rated tours ordered by price",
		Tags:        []string{"Tours"},
	}, s.handleTopCheapTours)

	huma.Register(s.api, huma.Operation{
		OperationID: "tourStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/tours/stats",
		Summary:     "Tour statistics",
		Description: "Returns per-difficulty aggregates over the catalog",
		Tags:        []string{"Tours"},
	}, s.handleTourStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "monthlyPlan",
		Method:      http.MethodGet,
		Path:        "/api/v1/tours/monthly-plan/{year}",
		Summary:     "Monthly plan",
		Description: "Returns tour start counts per month for a year. Guides and admins only.",
		Tags:        []string{"Tours"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMonthlyPlan)

	huma.Register(s.api, huma.Operation{
		OperationID: "toursWithin",
		Method:      http.MethodGet,
		Path:        "/api/v1/tours/within/{distance}/center/{lat},{lng}/unit/{unit}",
		Summary:     "Tours within radius",
		Description: "Returns tours starting within a distance of a point",
		Tags:        []string{"Tours", "Geo"},
	}, s.handleToursWithin)

	huma.Register(s.api, huma.Operation{
		OperationID: "tourDistances",
		Method:      http.MethodGet,
		Path:        "/api/v1/tours/distances/{lat},{lng}/unit/{unit}",
		Summary:     "Tour distances",
		Description: "Returns every tour's distance from a point, nearest first",
		Tags:        []string{"Tours", "Geo"},
	}, s.handleTourDistances)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchTours",
		Method:      http.MethodGet,
		Path:        "/api/v1/tours/search",
		Summary:     "Search tours",
		Description: "Full-text search over tour names, summaries and descriptions",
		Tags:        []string{"Tours"},
	}, s.handleSearchTours)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTour",
		Method:      http.MethodGet,
		Path:        "/api/v1/tours/{id}",
		Summary:     "Get tour",
		Description: "Returns a tour by ID or slug",
		Tags:        []string{"Tours"},
	}, s.handleGetTour)

	huma.Register(s.api, huma.Operation{
		OperationID: "createTour",
		Method:      http.MethodPost,
		Path:        "/api/v1/tours",
		Summary:     "Create tour",
		Description: "Creates a new tour. Admins and lead guides only.",
		Tags:        []string{"Tours"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateTour)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTour",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tours/{id}",
		Summary:     "Update tour",
		Description: "Applies a partial update to a tour. Admins and lead guides only.",
		Tags:        []string{"Tours"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateTour)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteTour",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tours/{id}",
		Summary:     "Delete tour",
		Description: "Removes a tour and its reviews and bookings. Admins and lead guides only.",
		Tags:        []string{"Tours"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteTour)

	// Image uploads use chi directly for multipart form handling.
	s.router.Put("/api/v1/tours/{id}/cover", s.handleUploadTourCover)
	s.router.Put("/api/v1/tours/{id}/images", s.handleUploadTourImages)
}

// === DTOs ===

// TourResponse contains tour data in API responses.
type TourResponse struct {
	ID             string            `json:"id" doc:"Tour ID"`
	Name           string            `json:"name" doc:"Tour name"`
	Slug           string            `json:"slug" doc:"URL-safe slug"`
	Duration       int               `json:"duration" doc:"Duration in days"`
	MaxGroupSize   int               `json:"max_group_size" doc:"Maximum group size"`
	Difficulty     string            `json:"difficulty" doc:"Difficulty (easy, medium, difficult)"`
	Price          float64           `json:"price" doc:"Price"`
	PriceDiscount  float64           `json:"price_discount,omitempty" doc:"Discount off the price"`
	Summary        string            `json:"summary" doc:"Short summary"`
	Description    string            `json:"description,omitempty" doc:"Full description"`
	CoverImageURL  string            `json:"cover_image_url,omitempty" doc:"Cover image URL"`
	ImageKeys      []string          `json:"image_keys,omitempty" doc:"Gallery image keys"`
	StartDates     []time.Time       `json:"start_dates,omitempty" doc:"Departure dates"`
	StartLocation  domain.Location   `json:"start_location" doc:"Starting point"`
	Locations      []domain.Location `json:"locations,omitempty" doc:"Itinerary stops"`
	GuideIDs       []string          `json:"guide_ids,omitempty" doc:"Assigned guide user IDs"`
	Secret         bool              `json:"secret,omitempty" doc:"Hidden from public listings"`
	RatingsAverage float64           `json:"ratings_average" doc:"Average review rating"`
	RatingsCount   int               `json:"ratings_count" doc:"Number of reviews"`
	CreatedAt      time.Time         `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt      time.Time         `json:"updated_at" doc:"Last update timestamp"`
}

// TourOutput wraps a single tour response for Huma.
type TourOutput struct {
	Body TourResponse
}

// ListToursInput contains parameters for listing tours.
type ListToursInput struct {
	Authorization string `header:"Authorization"`
	filterParams
}

// GetTourInput contains parameters for fetching one tour.
type GetTourInput struct {
	ID string `path:"id" doc:"Tour ID or slug"`
}

// CreateTourRequest is the request body for creating a tour.
type CreateTourRequest struct {
	Name          string            `json:"name" validate:"required,max=100" doc:"Tour name"`
	Duration      int               `json:"duration" validate:"required,gte=1" doc:"Duration in days"`
	MaxGroupSize  int               `json:"max_group_size" validate:"required,gte=1" doc:"Maximum group size"`
	Difficulty    string            `json:"difficulty" validate:"required,oneof=easy medium difficult" doc:"Difficulty"`
	Price         float64           `json:"price" validate:"required,gt=0" doc:"Price"`
	PriceDiscount float64           `json:"price_discount,omitempty" validate:"gte=0" doc:"Discount off the price"`
	Summary       string            `json:"summary" validate:"required,max=500" doc:"Short summary"`
	Description   string            `json:"description,omitempty" doc:"Full description"`
	StartDates    []time.Time       `json:"start_dates,omitempty" doc:"Departure dates"`
	StartLocation domain.Location   `json:"start_location" doc:"Starting point"`
	Locations     []domain.Location `json:"locations,omitempty" doc:"Itinerary stops"`
	GuideIDs      []string          `json:"guide_ids,omitempty" doc:"Assigned guide user IDs"`
	Secret        bool              `json:"secret,omitempty" doc:"Hide from public listings"`
}

// CreateTourInput wraps the create request for Huma.
type CreateTourInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateTourRequest
}

// UpdateTourRequest is the request body for partial tour updates.
type UpdateTourRequest struct {
	Name          *string           `json:"name,omitempty" validate:"omitempty,max=100" doc:"Tour name"`
	Duration      *int              `json:"duration,omitempty" validate:"omitempty,gte=1" doc:"Duration in days"`
	MaxGroupSize  *int              `json:"max_group_size,omitempty" validate:"omitempty,gte=1" doc:"Maximum group size"`
	Difficulty    *string           `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium difficult" doc:"Difficulty"`
	Price         *float64          `json:"price,omitempty" validate:"omitempty,gt=0" doc:"Price"`
	PriceDiscount *float64          `json:"price_discount,omitempty" validate:"omitempty,gte=0" doc:"Discount off the price"`
	Summary       *string           `json:"summary,omitempty" validate:"omitempty,max=500" doc:"Short summary"`
	Description   *string           `json:"description,omitempty" doc:"Full description"`
	StartDates    []time.Time       `json:"start_dates,omitempty" doc:"Departure dates"`
	StartLocation *domain.Location  `json:"start_location,omitempty" doc:"Starting point"`
	Locations     []domain.Location `json:"locations,omitempty" doc:"Itinerary stops"`
	GuideIDs      []string          `json:"guide_ids,omitempty" doc:"Assigned guide user IDs"`
	Secret        *bool             `json:"secret,omitempty" doc:"Hide from public listings"`
}

// UpdateTourInput wraps the update request for Huma.
type UpdateTourInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tour ID"`
	Body          UpdateTourRequest
}

// DeleteTourInput contains parameters for deleting a tour.
type DeleteTourInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tour ID"`
}

// TourStatsOutput wraps the stats response for Huma.
type TourStatsOutput struct {
	Body []service.TourStats
}

// MonthlyPlanInput contains the year for the monthly plan.
type MonthlyPlanInput struct {
	Authorization string `header:"Authorization"`
	Year          int    `path:"year" doc:"Calendar year"`
}

// MonthlyPlanOutput wraps the monthly plan response for Huma.
type MonthlyPlanOutput struct {
	Body []service.MonthlyPlanEntry
}

// ToursWithinInput contains the geo radius query.
type ToursWithinInput struct {
	Distance float64 `path:"distance" doc:"Radius"`
	Lat      float64 `path:"lat" doc:"Center latitude"`
	Lng      float64 `path:"lng" doc:"Center longitude"`
	Unit     string  `path:"unit" doc:"Distance unit (km or mi)"`
}

// ToursListOutput wraps a plain tour list for Huma.
type ToursListOutput struct {
	Body []TourResponse
}

// TourDistancesInput contains the geo distances query.
type TourDistancesInput struct {
	Lat  float64 `path:"lat" doc:"Reference latitude"`
	Lng  float64 `path:"lng" doc:"Reference longitude"`
	Unit string  `path:"unit" doc:"Distance unit (km or mi)"`
}

// TourDistancesOutput wraps the distances response for Huma.
type TourDistancesOutput struct {
	Body []service.TourDistance
}

// SearchToursInput contains full-text search parameters.
type SearchToursInput struct {
	Query      string  `query:"q" doc:"Search terms"`
	Difficulty string  `query:"difficulty" doc:"Filter by difficulty"`
	MinPrice   float64 `query:"min_price" doc:"Minimum price"`
	MaxPrice   float64 `query:"max_price" doc:"Maximum price"`
	Limit      int     `query:"limit" doc:"Maximum hits to return"`
	Offset     int     `query:"offset" doc:"Hits to skip"`
}

// SearchToursOutput wraps the search result for Huma.
type SearchToursOutput struct {
	Body search.SearchResult
}

// === Handlers ===

func (s *Server) handleListTours(ctx context.Context, input *ListToursInput) (*ListResultOutput, error) {
	includeSecret := false
	if input.Authorization != "" {
		if user, err := s.authenticateRequest(ctx, input.Authorization); err == nil {
			includeSecret = user.Role == domain.RoleAdmin || user.Role == domain.RoleLeadGuide
		}
	}

	result, err := s.services.Tour.List(ctx, input.values, includeSecret)
	if err != nil {
		return nil, err
	}

	return &ListResultOutput{Body: *result}, nil
}

func (s *Server) handleTopCheapTours(ctx context.Context, _ *struct{}) (*ListResultOutput, error) {
	result, err := s.services.Tour.TopCheap(ctx)
	if err != nil {
		return nil, err
	}

	return &ListResultOutput{Body: *result}, nil
}

func (s *Server) handleTourStats(ctx context.Context, _ *struct{}) (*TourStatsOutput, error) {
	stats, err := s.services.Tour.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &TourStatsOutput{Body: stats}, nil
}

func (s *Server) handleMonthlyPlan(ctx context.Context, input *MonthlyPlanInput) (*MonthlyPlanOutput, error) {
	if _, err := s.requireRoles(ctx, input.Authorization,
		domain.RoleAdmin, domain.RoleLeadGuide, domain.RoleGuide); err != nil {
		return nil, err
	}

	plan, err := s.services.Tour.MonthlyPlan(ctx, input.Year)
	if err != nil {
		return nil, err
	}

	return &MonthlyPlanOutput{Body: plan}, nil
}

func (s *Server) handleToursWithin(ctx context.Context, input *ToursWithinInput) (*ToursListOutput, error) {
	tours, err := s.services.Tour.Within(ctx, input.Lat, input.Lng, input.Distance, input.Unit)
	if err != nil {
		return nil, err
	}

	resp := make([]TourResponse, len(tours))
	for i, t := range tours {
		resp[i] = mapTour(t)
	}
	return &ToursListOutput{Body: resp}, nil
}

func (s *Server) handleTourDistances(ctx context.Context, input *TourDistancesInput) (*TourDistancesOutput, error) {
	distances, err := s.services.Tour.Distances(ctx, input.Lat, input.Lng, input.Unit)
	if err != nil {
		return nil, err
	}

	return &TourDistancesOutput{Body: distances}, nil
}

func (s *Server) handleSearchTours(ctx context.Context, input *SearchToursInput) (*SearchToursOutput, error) {
	result, err := s.services.Tour.Search(ctx, search.Params{
		Query:      input.Query,
		Difficulty: input.Difficulty,
		MinPrice:   input.MinPrice,
		MaxPrice:   input.MaxPrice,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
	if err != nil {
		return nil, err
	}

	return &SearchToursOutput{Body: *result}, nil
}

func (s *Server) handleGetTour(ctx context.Context, input *GetTourInput) (*TourOutput, error) {
	tour, err := s.services.Tour.Get(ctx, input.ID)
	if err != nil {
		// Fall back to slug lookup so pretty URLs work.
		tour, err = s.services.Tour.GetBySlug(ctx, input.ID)
		if err != nil {
			return nil, err
		}
	}

	return &TourOutput{Body: mapTour(tour)}, nil
}

func (s *Server) handleCreateTour(ctx context.Context, input *CreateTourInput) (*TourOutput, error) {
	if _, err := s.requireRoles(ctx, input.Authorization,
		domain.RoleAdmin, domain.RoleLeadGuide); err != nil {
		return nil, err
	}

	tour, err := s.services.Tour.Create(ctx, service.CreateTourRequest{
		Name:          input.Body.Name,
		Duration:      input.Body.Duration,
		MaxGroupSize:  input.Body.MaxGroupSize,
		Difficulty:    domain.Difficulty(input.Body.Difficulty),
		Price:         input.Body.Price,
		PriceDiscount: input.Body.PriceDiscount,
		Summary:       input.Body.Summary,
		Description:   input.Body.Description,
		StartDates:    input.Body.StartDates,
		StartLocation: input.Body.StartLocation,
		Locations:     input.Body.Locations,
		GuideIDs:      input.Body.GuideIDs,
		Secret:        input.Body.Secret,
	})
	if err != nil {
		return nil, err
	}

	return &TourOutput{Body: mapTour(tour)}, nil
}

func (s *Server) handleUpdateTour(ctx context.Context, input *UpdateTourInput) (*TourOutput, error) {
	if _, err := s.requireRoles(ctx, input.Authorization,
		domain.RoleAdmin, domain.RoleLeadGuide); err != nil {
		return nil, err
	}

	req := service.UpdateTourRequest{
		Name:          input.Body.Name,
		Duration:      input.Body.Duration,
		MaxGroupSize:  input.Body.MaxGroupSize,
		Price:         input.Body.Price,
		PriceDiscount: input.Body.PriceDiscount,
		Summary:       input.Body.Summary,
		Description:   input.Body.Description,
		StartDates:    input.Body.StartDates,
		StartLocation: input.Body.StartLocation,
		Locations:     input.Body.Locations,
		GuideIDs:      input.Body.GuideIDs,
		Secret:        input.Body.Secret,
	}
	if input.Body.Difficulty != nil {
		difficulty := domain.Difficulty(*input.Body.Difficulty)
		req.Difficulty = &difficulty
	}

	tour, err := s.services.Tour.Update(ctx, input.ID, req)
	if err != nil {
		return nil, err
	}

	return &TourOutput{Body: mapTour(tour)}, nil
}

func (s *Server) handleDeleteTour(ctx context.Context, input *DeleteTourInput) (*MessageOutput, error) {
	if _, err := s.requireRoles(ctx, input.Authorization,
		domain.RoleAdmin, domain.RoleLeadGuide); err != nil {
		return nil, err
	}

	if err := s.services.Tour.Delete(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Tour deleted"}}, nil
}

// handleUploadTourCover handles cover image uploads for a tour.
// PUT /api/v1/tours/{id}/cover
// Content-Type: multipart/form-data with "file" field
func (s *Server) handleUploadTourCover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := s.requireRoles(ctx, r.Header.Get("Authorization"),
		domain.RoleAdmin, domain.RoleLeadGuide); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	tourID := chi.URLParam(r, "id")
	data, err := readUploadedFile(r)
	if err != nil {
		response.BadRequest(w, err.Error(), s.logger)
		return
	}

	tour, err := s.services.Tour.UploadCover(ctx, tourID, data)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, mapTour(tour), s.logger)
}

// handleUploadTourImages handles gallery uploads for a tour.
// PUT /api/v1/tours/{id}/images
// Content-Type: multipart/form-data with repeated "images" fields
func (s *Server) handleUploadTourImages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := s.requireRoles(ctx, r.Header.Get("Authorization"),
		domain.RoleAdmin, domain.RoleLeadGuide); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	tourID := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		response.BadRequest(w, "failed to parse form data", s.logger)
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["images"]) == 0 {
		response.BadRequest(w, "no files uploaded, use repeated 'images' fields in multipart form", s.logger)
		return
	}

	payloads := make([][]byte, 0, len(r.MultipartForm.File["images"]))
	for _, header := range r.MultipartForm.File["images"] {
		if header.Size > MaxUploadSize {
			response.BadRequest(w, "file too large, maximum size is 10MB", s.logger)
			return
		}
		file, err := header.Open()
		if err != nil {
			response.InternalError(w, "failed to read uploaded file", s.logger)
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
		file.Close()
		if err != nil {
			response.InternalError(w, "failed to read uploaded file", s.logger)
			return
		}
		payloads = append(payloads, data)
	}

	tour, err := s.services.Tour.UploadImages(ctx, tourID, payloads)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, mapTour(tour), s.logger)
}

// === Helpers ===

func mapTour(t *domain.Tour) TourResponse {
	return TourResponse{
		ID:             t.ID,
		Name:           t.Name,
		Slug:           t.Slug,
		Duration:       t.Duration,
		MaxGroupSize:   t.MaxGroupSize,
		Difficulty:     string(t.Difficulty),
		Price:          t.Price,
		PriceDiscount:  t.PriceDiscount,
		Summary:        t.Summary,
		Description:    t.Description,
		CoverImageURL:  t.CoverImageURL,
		ImageKeys:      t.ImageKeys,
		StartDates:     t.StartDates,
		StartLocation:  t.StartLocation,
		Locations:      t.Locations,
		GuideIDs:       t.GuideIDs,
		Secret:         t.Secret,
		RatingsAverage: t.RatingsAverage,
		RatingsCount:   t.RatingsCount,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}
