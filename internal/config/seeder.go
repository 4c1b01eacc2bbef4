package config

import (
	"log"

	"unilib-circ/internal/adapters/persistence/models"
	"unilib-circ/internal/core/domain"
	"unilib-circ/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	cfg *Config
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, cfg *Config) *Seeder {
	return &Seeder{db: db, cfg: cfg}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}

	if s.cfg.IsDev() {
		if err := s.seedSampleBooks(); err != nil {
			log.Printf("⚠️ Book seeder skipped: %v", err)
		}
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser seeds the initial admin account from configuration.
// In production the seeded password must be rotated immediately.
func (s *Seeder) seedAdminUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", string(domain.RoleAdmin)).Count(&count)
	if count > 0 {
		return nil // Admin already exists
	}

	hashedPassword, err := password.Hash(s.cfg.Seed.AdminPassword)
	if err != nil {
		return err
	}

	admin := &models.User{
		Username: s.cfg.Seed.AdminUsername,
		Email:    s.cfg.Seed.AdminEmail,
		Password: hashedPassword,
		Role:     string(domain.RoleAdmin),
		IsActive: true,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.Username)
	return nil
}

// seedSampleBooks seeds a small catalog for development
func (s *Seeder) seedSampleBooks() error {
	var count int64
	s.db.Model(&models.Book{}).Count(&count)
	if count > 0 {
		return nil // Catalog already seeded
	}

	books := []models.Book{
		{Title: "The Go Programming Language", Author: "Donovan & Kernighan", Tag: string(domain.TagWhite), TotalCopies: 3, AvailableCopies: 3},
		{Title: "Designing Data-Intensive Applications", Author: "Martin Kleppmann", Tag: string(domain.TagWhite), TotalCopies: 2, AvailableCopies: 2},
		{Title: "Introduction to Algorithms", Author: "Cormen et al.", Tag: string(domain.TagYellow), TotalCopies: 2, AvailableCopies: 2},
		{Title: "Rare Manuscripts of the University", Author: "University Archive", Tag: string(domain.TagRed), TotalCopies: 1, AvailableCopies: 1},
	}

	if err := s.db.Create(&books).Error; err != nil {
		return err
	}

	log.Printf("✅ Seeded %d sample books", len(books))
	return nil
}
