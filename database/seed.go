package database

import (
	"fmt"
	"os"
	"time"

	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/auth"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Seeder populates an empty database with an admin account and a starter catalog
type Seeder struct {
	db *gorm.DB
}

func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs every seed step in foreign-key order
func (s *Seeder) SeedAll() error {
	if err := s.SeedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := s.SeedCourses(); err != nil {
		return fmt.Errorf("failed to seed courses: %w", err)
	}

	if err := s.SeedExpenses(); err != nil {
		return fmt.Errorf("failed to seed expenses: %w", err)
	}

	logger.Logger.Info().Msg("database seeding completed")
	return nil
}

// SeedAdminUser creates the admin account from ADMIN_EMAIL / ADMIN_PASSWORD
func (s *Seeder) SeedAdminUser() error {
	var count int64
	if err := s.db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Logger.Info().Msg("admin user already exists, skipping")
		return nil
	}

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		logger.Logger.Warn().Msg("ADMIN_EMAIL and ADMIN_PASSWORD not set, skipping admin user creation")
		return nil
	}

	passwordHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &model.User{
		Username:      "admin",
		Email:         adminEmail,
		PasswordHash:  passwordHash,
		FirstName:     "System",
		LastName:      "Administrator",
		Role:          model.RoleAdmin,
		Status:        model.UserStatusActive,
		EmailVerified: true,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	logger.Logger.Info().Str("email", admin.Email).Msg("created admin user")
	return nil
}

// SeedCourses creates a small published catalog
func (s *Seeder) SeedCourses() error {
	var count int64
	if err := s.db.Model(&model.Course{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Logger.Info().Msg("courses already exist, skipping")
		return nil
	}

	courses := []model.Course{
		{
			Title:            "Go Backend Fundamentals",
			ShortDescription: "Build HTTP services with Go, Fiber and GORM",
			Description:      "Routing, middleware, persistence and testing for production Go services.",
			Price:            decimal.NewFromInt(599000),
			DiscountPrice:    decimal.NewNullDecimal(decimal.NewFromInt(499000)),
			Category:         "Programming",
			Level:            model.LevelBeginner,
			DurationHours:    24,
			Status:           model.CourseStatusPublished,
			Featured:         true,
		},
		{
			Title:            "PostgreSQL for Application Developers",
			ShortDescription: "Schema design, indexing and transactions",
			Price:            decimal.NewFromInt(799000),
			Category:         "Databases",
			Level:            model.LevelIntermediate,
			DurationHours:    18,
			Status:           model.CourseStatusPublished,
		},
		{
			Title:            "Intro to Product Analytics",
			ShortDescription: "A free primer on funnels and cohorts",
			Price:            decimal.Zero,
			Category:         "Business",
			Level:            model.LevelBeginner,
			DurationHours:    4,
			Status:           model.CourseStatusPublished,
		},
		{
			Title:            "Distributed Systems Patterns",
			ShortDescription: "Consensus, queues and idempotency",
			Price:            decimal.NewFromInt(1299000),
			Category:         "Programming",
			Level:            model.LevelAdvanced,
			DurationHours:    30,
			Status:           model.CourseStatusDraft,
		},
	}

	if err := s.db.Create(&courses).Error; err != nil {
		return err
	}

	logger.Logger.Info().Int("count", len(courses)).Msg("created courses")
	return nil
}

// SeedExpenses records the opening month's running costs
func (s *Seeder) SeedExpenses() error {
	var count int64
	if err := s.db.Model(&model.Expense{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	expenses := []model.Expense{
		{Description: "Cloud hosting", Amount: decimal.NewFromInt(1500000), Category: "Infrastructure", ExpenseDate: now},
		{Description: "Instructor honorarium", Amount: decimal.NewFromInt(5000000), Category: "Content", ExpenseDate: now},
		{Description: "Social ads", Amount: decimal.NewFromInt(2000000), Category: "Marketing", ExpenseDate: now},
	}

	return s.db.Create(&expenses).Error
}
