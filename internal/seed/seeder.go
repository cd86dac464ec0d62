// Package seed populates the database with realistic development data.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/dalilsuez/backend/internal/logger"
	"github.com/dalilsuez/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Directory categories used across seeded data
var placeCategories = []string{"restaurants", "cafes", "pharmacies", "workshops", "schools"}

// Marketplace categories
var listingCategories = []string{"electronics", "furniture", "vehicles", "clothing", "appliances"}

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	logger.Log.Info("creating users...")
	users, err := s.seedUsers(50)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("creating places...")
	places, err := s.seedPlaces(100)
	if err != nil {
		return fmt.Errorf("failed to seed places: %w", err)
	}

	logger.Log.Info("creating listings...")
	listings, err := s.seedListings(users, 200)
	if err != nil {
		return fmt.Errorf("failed to seed listings: %w", err)
	}

	logger.Log.Info("creating reviews...")
	if err := s.seedReviews(users, places, 300); err != nil {
		return fmt.Errorf("failed to seed reviews: %w", err)
	}

	logger.Log.Info("creating user events...")
	if err := s.seedEvents(users, places, listings, 2000); err != nil {
		return fmt.Errorf("failed to seed events: %w", err)
	}

	logger.Log.Info("seed complete",
		zap.Int("users", len(users)),
		zap.Int("places", len(places)),
		zap.Int("listings", len(listings)),
	)
	return nil
}

// SeedTest seeds a minimal fixture set for integration testing
func (s *Seeder) SeedTest() error {
	users, err := s.seedUsers(3)
	if err != nil {
		return err
	}
	places, err := s.seedPlaces(5)
	if err != nil {
		return err
	}
	listings, err := s.seedListings(users, 5)
	if err != nil {
		return err
	}
	return s.seedEvents(users, places, listings, 20)
}

// Clean removes all seeded rows. Destructive; development only.
func (s *Seeder) Clean() error {
	for _, model := range []interface{}{
		&models.UserEvent{},
		&models.Review{},
		&models.Listing{},
		&models.Place{},
		&models.IdempotencyKey{},
		&models.User{},
	} {
		if err := s.db.Unscoped().Where("1 = 1").Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		users = append(users, models.User{
			ID:          uuid.New().String(),
			Email:       fmt.Sprintf("%d.%s", i, gofakeit.Email()),
			DisplayName: gofakeit.Name(),
			AvatarURL:   gofakeit.URL(),
		})
	}
	if err := s.db.CreateInBatches(&users, 100).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Seeder) seedPlaces(count int) ([]models.Place, error) {
	places := make([]models.Place, 0, count)
	for i := 0; i < count; i++ {
		places = append(places, models.Place{
			ID:       uuid.New().String(),
			Name:     gofakeit.Company(),
			Category: placeCategories[rand.Intn(len(placeCategories))],
			Address:  gofakeit.Street() + ", Suez",
			Phone:    gofakeit.Phone(),
			Summary:  gofakeit.Sentence(12),
		})
	}
	if err := s.db.CreateInBatches(&places, 100).Error; err != nil {
		return nil, err
	}
	return places, nil
}

func (s *Seeder) seedListings(users []models.User, count int) ([]models.Listing, error) {
	listings := make([]models.Listing, 0, count)
	for i := 0; i < count; i++ {
		seller := users[rand.Intn(len(users))]
		listings = append(listings, models.Listing{
			ID:       uuid.New().String(),
			SellerID: seller.ID,
			Title:    gofakeit.ProductName(),
			Category: listingCategories[rand.Intn(len(listingCategories))],
			Price:    gofakeit.Price(50, 20000),
			Body:     gofakeit.Paragraph(1, 3, 10, " "),
		})
	}
	if err := s.db.CreateInBatches(&listings, 100).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (s *Seeder) seedReviews(users []models.User, places []models.Place, count int) error {
	reviews := make([]models.Review, 0, count)
	for i := 0; i < count; i++ {
		reviews = append(reviews, models.Review{
			ID:      uuid.New().String(),
			PlaceID: places[rand.Intn(len(places))].ID,
			UserID:  users[rand.Intn(len(users))].ID,
			Rating:  rand.Intn(5) + 1,
			Comment: gofakeit.Sentence(8),
		})
	}
	if err := s.db.CreateInBatches(&reviews, 100).Error; err != nil {
		return err
	}

	// Rebuild the denormalized place aggregates after the bulk insert
	return s.db.Exec(`
		UPDATE places SET
			review_count = (SELECT COUNT(*) FROM reviews WHERE reviews.place_id = places.id),
			avg_rating = COALESCE((SELECT AVG(rating) FROM reviews WHERE reviews.place_id = places.id), 0)
	`).Error
}

func (s *Seeder) seedEvents(users []models.User, places []models.Place, listings []models.Listing, count int) error {
	eventTypes := []models.EventType{
		models.EventViewItem,
		models.EventViewCategory,
		models.EventSearch,
		models.EventContactSeller,
		models.EventFavorite,
	}

	events := make([]models.UserEvent, 0, count)
	for i := 0; i < count; i++ {
		user := users[rand.Intn(len(users))]
		et := eventTypes[rand.Intn(len(eventTypes))]

		event := models.UserEvent{
			ID:        uuid.New().String(),
			UserID:    user.ID,
			EventType: et,
			CreatedAt: gofakeit.DateRange(time.Now().Add(-30*24*time.Hour), time.Now()),
		}

		// Split signal between the two content domains
		if rand.Intn(2) == 0 {
			place := places[rand.Intn(len(places))]
			category := "places_" + place.Category
			event.EntityID = &place.ID
			event.CategoryID = &category
		} else {
			listing := listings[rand.Intn(len(listings))]
			category := "market_" + listing.Category
			event.EntityID = &listing.ID
			event.CategoryID = &category
		}

		events = append(events, event)
	}
	return s.db.CreateInBatches(&events, 200).Error
}
