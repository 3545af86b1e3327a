package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "DRAFT"
	CourseStatusPublished CourseStatus = "PUBLISHED"
	CourseStatusArchived  CourseStatus = "ARCHIVED"
)

type CourseLevel string

const (
	LevelBeginner     CourseLevel = "BEGINNER"
	LevelIntermediate CourseLevel = "INTERMEDIATE"
	LevelAdvanced     CourseLevel = "ADVANCED"
)

// Course is a catalog entry that can be purchased
type Course struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	DeletedAt        gorm.DeletedAt      `gorm:"index" json:"-"`
	Title            string              `gorm:"type:varchar(255);not null" json:"title"`
	Description      string              `gorm:"type:text" json:"description"`
	ShortDescription string              `gorm:"type:varchar(500)" json:"short_description"`
	ImageURL         string              `gorm:"type:varchar(500)" json:"image_url"`
	Price            decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"price"`
	DiscountPrice    decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"discount_price"`
	Category         string              `gorm:"type:varchar(100);index" json:"category"`
	Level            CourseLevel         `gorm:"type:varchar(20);default:'BEGINNER'" json:"level"`
	DurationHours    int                 `gorm:"default:0" json:"duration_hours"`
	Requirements     string              `gorm:"type:text" json:"requirements"`
	WhatYoullLearn   string              `gorm:"type:text" json:"what_youll_learn"`
	Status           CourseStatus        `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	Featured         bool                `gorm:"default:false;index" json:"featured"`
	InstructorID     *uint               `gorm:"index" json:"instructor_id"`

	// Derived on read
	EnrollmentCount int64   `gorm:"-" json:"enrollment_count"`
	AverageRating   float64 `gorm:"-" json:"average_rating"`

	Instructor  *User          `gorm:"foreignKey:InstructorID;constraint:OnDelete:SET NULL" json:"instructor,omitempty"`
	Enrollments []Enrollment   `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Reviews     []CourseReview `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsPurchasable reports whether the course can be bought right now
func (c *Course) IsPurchasable() bool {
	return c.Status == CourseStatusPublished
}

// EffectivePrice is the discount price when it is set and lower than Price
func (c *Course) EffectivePrice() decimal.Decimal {
	if c.DiscountPrice.Valid && c.DiscountPrice.Decimal.LessThan(c.Price) && !c.DiscountPrice.Decimal.IsNegative() {
		return c.DiscountPrice.Decimal
	}
	return c.Price
}

// IsFree reports whether the course costs nothing after discounts
func (c *Course) IsFree() bool {
	return c.EffectivePrice().IsZero()
}

// CourseReview is a single user's rating of a course
type CourseReview struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_review_user_course" json:"user_id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_review_user_course;index" json:"course_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

type EnrollmentSource string

const (
	EnrollmentSourcePayment EnrollmentSource = "PAYMENT"
	EnrollmentSourceAdmin   EnrollmentSource = "ADMIN"
	EnrollmentSourceFree    EnrollmentSource = "FREE"
)

// Enrollment grants a user access to a course. At most one row exists per (user, course).
type Enrollment struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	UserID     uint             `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"user_id"`
	CourseID   uint             `gorm:"not null;uniqueIndex:idx_enrollment_user_course;index" json:"course_id"`
	InvoiceID  *uint            `gorm:"index" json:"invoice_id,omitempty"`
	Source     EnrollmentSource `gorm:"type:varchar(20);not null" json:"source"`
	EnrolledAt time.Time        `gorm:"not null" json:"enrolled_at"`

	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}
