// Package main provides a tool to seed the database with sample tour data.
//
// This creates test users, tours with itineraries and start dates, and
// realistic reviews and bookings to exercise stats, search, and geo features.
//
// Usage:
//
//	DATA_PATH=~/tourhub/data go run ./cmd/seed
//	DATA_PATH=~/tourhub/data go run ./cmd/seed --create-users  # Also create test users
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/tourhubapp/tourhub-server/internal/auth"
	"github.com/tourhubapp/tourhub-server/internal/domain"
	"github.com/tourhubapp/tourhub-server/internal/id"
	"github.com/tourhubapp/tourhub-server/internal/store"
	"github.com/tourhubapp/tourhub-server/internal/util"
)

var createUsers = flag.Bool("create-users", false, "Create test users for review and booking seeding")

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/tourhub/data")
	}
	storePath := filepath.Join(dataPath, "store")

	fmt.Printf("Opening store at: %s\n", storePath)

	s, err := store.New(storePath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	if *createUsers {
		createTestUsers(ctx, s)
	}

	users, err := s.Users.All(ctx)
	if err != nil {
		log.Fatalf("Failed to get users: %v", err)
	}

	if len(users) == 0 {
		log.Fatal("No users found. Run with --create-users or register a user first.")
	}

	fmt.Printf("Found %d users\n", len(users))

	tours := createSampleTours(ctx, s, users)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Customers review and book a random subset of tours.
	var customers []*domain.User
	for _, u := range users {
		if u.Role == domain.RoleUser {
			customers = append(customers, u)
		}
	}

	for _, user := range customers {
		fmt.Printf("\nSeeding activity for user: %s (%s)\n", user.Name, user.ID)

		numTours := min(2+rng.Intn(3), len(tours))
		shuffled := make([]*domain.Tour, len(tours))
		copy(shuffled, tours)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		for _, tour := range shuffled[:numTours] {
			if err := createBooking(ctx, s, user, tour, rng); err != nil {
				log.Printf("  Failed to book %s: %v", tour.Name, err)
				continue
			}
			fmt.Printf("  Booked: %s ($%.0f)\n", tour.Name, tour.EffectivePrice())

			// 70% of bookings leave a review.
			if rng.Float32() > 0.7 {
				continue
			}
			if err := createReview(ctx, s, user, tour, rng); err != nil {
				log.Printf("  Failed to review %s: %v", tour.Name, err)
				continue
			}
			fmt.Printf("  Reviewed: %s\n", tour.Name)
		}
	}

	// Recompute rating aggregates from the reviews we just wrote.
	for _, tour := range tours {
		if err := recomputeRatings(ctx, s, tour.ID); err != nil {
			log.Printf("Failed to recompute ratings for %s: %v", tour.Name, err)
		}
	}

	fmt.Println("\nSeeding complete!")
}

// sampleTours are the tours created by the seeder, loosely modeled on
// real mountain and coastal destinations so geo queries return
// meaningful distances.
var sampleTours = []domain.Tour{
	{
		Name:         "The Forest Hiker",
		Duration:     5,
		MaxGroupSize: 25,
		Difficulty:   domain.DifficultyEasy,
		Price:        397,
		Summary:      "Breathtaking hike through the Canadian Rockies",
		Description:  "Five days of guided hiking with nights in backcountry lodges.",
		StartDates: []time.Time{
			time.Date(2026, time.June, 19, 10, 0, 0, 0, time.UTC),
			time.Date(2026, time.July, 20, 10, 0, 0, 0, time.UTC),
			time.Date(2026, time.October, 5, 10, 0, 0, 0, time.UTC),
		},
		StartLocation: domain.Location{
			GeoPoint:    domain.GeoPoint{Lat: 51.1784, Lng: -115.5708},
			Description: "Banff, CAN",
			Address:     "224 Banff Ave, Banff, AB",
		},
		Locations: []domain.Location{
			{GeoPoint: domain.GeoPoint{Lat: 51.4254, Lng: -116.1773}, Description: "Lake Louise", Day: 2},
			{GeoPoint: domain.GeoPoint{Lat: 51.3217, Lng: -116.1860}, Description: "Moraine Lake", Day: 3},
		},
	},
	{
		Name:         "The Sea Explorer",
		Duration:     7,
		MaxGroupSize: 15,
		Difficulty:   domain.DifficultyMedium,
		Price:        497,
		Summary:      "Exploring the jaw-dropping US east coast by foot and by boat",
		StartDates: []time.Time{
			time.Date(2026, time.June, 19, 10, 0, 0, 0, time.UTC),
			time.Date(2026, time.August, 2, 10, 0, 0, 0, time.UTC),
		},
		StartLocation: domain.Location{
			GeoPoint:    domain.GeoPoint{Lat: 25.7617, Lng: -80.1918},
			Description: "Miami, USA",
			Address:     "301 Biscayne Blvd, Miami, FL",
		},
	},
	{
		Name:          "The Snow Adventurer",
		Duration:      4,
		MaxGroupSize:  10,
		Difficulty:    domain.DifficultyDifficult,
		Price:         997,
		PriceDiscount: 100,
		Summary:       "Exciting adventure in the snow with snowboarding and skiing",
		StartDates: []time.Time{
			time.Date(2027, time.January, 5, 10, 0, 0, 0, time.UTC),
		},
		StartLocation: domain.Location{
			GeoPoint:    domain.GeoPoint{Lat: 39.1911, Lng: -106.8175},
			Description: "Aspen, USA",
		},
	},
	{
		Name:         "The City Wanderer",
		Duration:     9,
		MaxGroupSize: 20,
		Difficulty:   domain.DifficultyEasy,
		Price:        1197,
		Summary:      "Living the life of Wanderlust in the US' most beautiful cities",
		StartDates: []time.Time{
			time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC),
			time.Date(2026, time.May, 2, 10, 0, 0, 0, time.UTC),
		},
		StartLocation: domain.Location{
			GeoPoint:    domain.GeoPoint{Lat: 40.7128, Lng: -74.0060},
			Description: "NYC, USA",
		},
	},
	{
		Name:         "The Park Camper",
		Duration:     10,
		MaxGroupSize: 15,
		Difficulty:   domain.DifficultyMedium,
		Price:        1497,
		Summary:      "Breathing in Nature in America's most spectacular National Parks",
		Secret:       true,
		StartDates: []time.Time{
			time.Date(2026, time.August, 12, 10, 0, 0, 0, time.UTC),
		},
		StartLocation: domain.Location{
			GeoPoint:    domain.GeoPoint{Lat: 37.7456, Lng: -119.5936},
			Description: "Yosemite Valley, USA",
		},
	},
}

// createSampleTours writes the sample tours, skipping any whose slug
// already exists, and returns every tour now in the store.
func createSampleTours(ctx context.Context, s *store.Store, users []*domain.User) []*domain.Tour {
	fmt.Println("\n=== Creating Sample Tours ===")

	// Assign guides round-robin from non-customer users.
	var guides []*domain.User
	for _, u := range users {
		if u.Role == domain.RoleGuide || u.Role == domain.RoleLeadGuide {
			guides = append(guides, u)
		}
	}

	now := time.Now()
	for i := range sampleTours {
		tour := sampleTours[i]
		tour.Slug = util.Slugify(tour.Name)

		if existing, err := s.Tours.GetByIndex(ctx, "slug", tour.Slug); err == nil && existing != nil {
			fmt.Printf("  Tour %q already exists, skipping\n", tour.Name)
			continue
		}

		tour.ID = id.MustGenerate("tour")
		tour.CreatedAt = now
		tour.UpdatedAt = now
		tour.RatingsAverage = domain.DefaultRatingsAverage
		if len(guides) > 0 {
			tour.GuideIDs = []string{guides[i%len(guides)].ID}
		}

		if err := s.Tours.Create(ctx, tour.ID, &tour); err != nil {
			log.Printf("  Failed to create tour %q: %v", tour.Name, err)
			continue
		}
		fmt.Printf("  Created tour: %s (%s)\n", tour.Name, tour.Slug)
	}

	all, err := s.Tours.All(ctx)
	if err != nil {
		log.Fatalf("Failed to list tours: %v", err)
	}
	return all
}

func createBooking(ctx context.Context, s *store.Store, user *domain.User, tour *domain.Tour, rng *rand.Rand) error {
	now := time.Now()
	booking := &domain.Booking{
		Record: domain.Record{
			ID:        id.MustGenerate("booking"),
			CreatedAt: now.AddDate(0, 0, -rng.Intn(60)),
			UpdatedAt: now,
		},
		TourID: tour.ID,
		UserID: user.ID,
		Price:  tour.EffectivePrice(),
		Paid:   rng.Float32() < 0.8,
	}
	return s.Bookings.Create(ctx, booking.ID, booking)
}

// reviewPhrases keeps seeded review text varied without being random noise.
var reviewPhrases = []string{
	"Absolutely loved every minute of it.",
	"Great guides, stunning scenery.",
	"Good value, though the pace was brisk.",
	"Would happily go again next season.",
	"The itinerary delivered exactly what it promised.",
}

func createReview(ctx context.Context, s *store.Store, user *domain.User, tour *domain.Tour, rng *rand.Rand) error {
	now := time.Now()
	review := &domain.Review{
		Record: domain.Record{
			ID:        id.MustGenerate("review"),
			CreatedAt: now.AddDate(0, 0, -rng.Intn(30)),
			UpdatedAt: now,
		},
		Text:   reviewPhrases[rng.Intn(len(reviewPhrases))],
		Rating: float64(3 + rng.Intn(3)), // Skew positive, like real review data
		TourID: tour.ID,
		UserID: user.ID,
	}
	return s.Reviews.Create(ctx, review.ID, review)
}

// recomputeRatings rebuilds a tour's review aggregates from the store.
func recomputeRatings(ctx context.Context, s *store.Store, tourID string) error {
	reviews, err := s.Reviews.ListByIndex(ctx, "tour", tourID)
	if err != nil {
		return err
	}

	tour, err := s.Tours.Get(ctx, tourID)
	if err != nil {
		return err
	}

	if len(reviews) == 0 {
		tour.RatingsAverage = domain.DefaultRatingsAverage
		tour.RatingsCount = 0
	} else {
		var sum float64
		for _, r := range reviews {
			sum += r.Rating
		}
		tour.RatingsAverage = sum / float64(len(reviews))
		tour.RatingsCount = len(reviews)
	}
	tour.Touch()

	return s.Tours.Update(ctx, tour.ID, tour)
}

// testUserNames are display names for generated test users.
var testUserNames = []string{
	"Alex Rivera",
	"Jordan Chen",
	"Sam Taylor",
	"Casey Morgan",
	"Riley Kim",
}

// createTestUsers creates an admin, two guides, and a set of customers.
func createTestUsers(ctx context.Context, s *store.Store) {
	fmt.Println("\n=== Creating Test Users ===")

	passwordHash, err := auth.HashPassword("testpass123")
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		return
	}

	staff := []struct {
		name  string
		email string
		role  domain.Role
	}{
		{"Ada Admin", "admin@tourhub.test", domain.RoleAdmin},
		{"Lena Leader", "lead@tourhub.test", domain.RoleLeadGuide},
		{"Gus Guide", "guide@tourhub.test", domain.RoleGuide},
	}

	now := time.Now()

	for _, m := range staff {
		createSeedUser(ctx, s, m.name, m.email, m.role, passwordHash, now)
	}

	for i, name := range testUserNames {
		email := fmt.Sprintf("test%d@example.com", i+1)
		createSeedUser(ctx, s, name, email, domain.RoleUser, passwordHash, now)
	}

	fmt.Println("=== Test Users Created ===")
}

func createSeedUser(ctx context.Context, s *store.Store, name, email string, role domain.Role, passwordHash string, now time.Time) {
	if existing, _ := s.Users.GetByIndex(ctx, "email", email); existing != nil {
		fmt.Printf("  User %s already exists, skipping\n", email)
		return
	}

	user := &domain.User{
		Record: domain.Record{
			ID:        id.MustGenerate("user"),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:         email,
		Name:          name,
		Role:          role,
		PasswordHash:  passwordHash,
		EmailVerified: true,
		Active:        true,
	}

	if err := s.Users.Create(ctx, user.ID, user); err != nil {
		log.Printf("  Failed to create user %s: %v", name, err)
		return
	}

	fmt.Printf("  Created user: %s (%s, %s)\n", name, email, role)
}
