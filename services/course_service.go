package services

import (
	"context"
	"strings"

	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/apperror"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CourseInput struct {
	Title            string             `json:"title" validate:"required,min=3,max=255"`
	Description      string             `json:"description"`
	ShortDescription string             `json:"short_description" validate:"max=500"`
	ImageURL         string             `json:"image_url" validate:"omitempty,url,max=500"`
	Price            decimal.Decimal    `json:"price"`
	DiscountPrice    *decimal.Decimal   `json:"discount_price"`
	Category         string             `json:"category" validate:"required,max=100"`
	Level            model.CourseLevel  `json:"level" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	DurationHours    int                `json:"duration_hours" validate:"gte=0"`
	Requirements     string             `json:"requirements"`
	WhatYoullLearn   string             `json:"what_youll_learn"`
	Featured         bool               `json:"featured"`
	InstructorID     *uint              `json:"instructor_id"`
	Status           model.CourseStatus `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
}

type CourseFilter struct {
	Page     int
	Limit    int
	Category string
	Level    string
	Search   string
	Featured *bool
	Status   string

	// Admin listings see every status; everyone else only PUBLISHED
	IncludeUnpublished bool
}

type ReviewInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type CourseService struct {
	db  *gorm.DB
	now Clock
}

func NewCourseService(db *gorm.DB) *CourseService {
	return &CourseService{db: db, now: utcNow}
}

func (s *CourseService) List(ctx context.Context, f CourseFilter) ([]model.Course, int64, error) {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
	query := s.db.WithContext(ctx).Model(&model.Course{})

	if !f.IncludeUnpublished {
		query = query.Where("status = ?", model.CourseStatusPublished)
	} else if f.Status != "" {
		query = query.Where("status = ?", strings.ToUpper(f.Status))
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Level != "" {
		query = query.Where("level = ?", strings.ToUpper(f.Level))
	}
	if f.Featured != nil {
		query = query.Where("featured = ?", *f.Featured)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []model.Course
	if err := query.Order("created_at DESC").Offset(offset(f.Page, f.Limit)).Limit(f.Limit).Find(&courses).Error; err != nil {
		return nil, 0, err
	}

	if err := s.fillStats(ctx, courses); err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

// Get hides unpublished courses unless includeUnpublished is set
func (s *CourseService) Get(ctx context.Context, id uint, includeUnpublished bool) (*model.Course, error) {
	var course model.Course
	if err := s.db.WithContext(ctx).Preload("Instructor").First(&course, id).Error; err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("Course not found")
		}
		return nil, err
	}
	if !includeUnpublished && course.Status != model.CourseStatusPublished {
		return nil, apperror.NotFound("Course not found")
	}

	courses := []model.Course{course}
	if err := s.fillStats(ctx, courses); err != nil {
		return nil, err
	}
	return &courses[0], nil
}

func validateCoursePrice(in *CourseInput) error {
	if in.Price.IsNegative() {
		return apperror.BadRequest("Price must not be negative")
	}
	if in.DiscountPrice != nil {
		if in.DiscountPrice.IsNegative() {
			return apperror.BadRequest("Discount price must not be negative")
		}
		if in.DiscountPrice.GreaterThan(in.Price) {
			return apperror.BadRequest("Discount price must not exceed price")
		}
	}
	return nil
}

func applyCourseInput(c *model.Course, in *CourseInput) {
	c.Title = strings.TrimSpace(in.Title)
	c.Description = in.Description
	c.ShortDescription = in.ShortDescription
	c.ImageURL = in.ImageURL
	c.Price = in.Price
	c.DiscountPrice = decimal.NullDecimal{}
	if in.DiscountPrice != nil {
		c.DiscountPrice = decimal.NewNullDecimal(*in.DiscountPrice)
	}
	c.Category = strings.TrimSpace(in.Category)
	c.Level = in.Level
	if c.Level == "" {
		c.Level = model.LevelBeginner
	}
	c.DurationHours = in.DurationHours
	c.Requirements = in.Requirements
	c.WhatYoullLearn = in.WhatYoullLearn
	c.Featured = in.Featured
	c.InstructorID = in.InstructorID
	if in.Status != "" {
		c.Status = in.Status
	}
}

func (s *CourseService) Create(ctx context.Context, in CourseInput) (*model.Course, error) {
	if err := validateCoursePrice(&in); err != nil {
		return nil, err
	}

	course := model.Course{Status: model.CourseStatusDraft}
	applyCourseInput(&course, &in)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&course).Error
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (s *CourseService) Update(ctx context.Context, id uint, in CourseInput) (*model.Course, error) {
	if err := validateCoursePrice(&in); err != nil {
		return nil, err
	}

	var course model.Course
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&course, id).Error; err != nil {
			if isNotFound(err) {
				return apperror.NotFound("Course not found")
			}
			return err
		}
		applyCourseInput(&course, &in)
		return tx.Save(&course).Error
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (s *CourseService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&model.Course{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperror.NotFound("Course not found")
		}
		return nil
	})
}

func (s *CourseService) Publish(ctx context.Context, id uint) (*model.Course, error) {
	return s.setStatus(ctx, id, model.CourseStatusPublished)
}

func (s *CourseService) Archive(ctx context.Context, id uint) (*model.Course, error) {
	return s.setStatus(ctx, id, model.CourseStatusArchived)
}

func (s *CourseService) setStatus(ctx context.Context, id uint, status model.CourseStatus) (*model.Course, error) {
	var course model.Course
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&course, id).Error; err != nil {
			if isNotFound(err) {
				return apperror.NotFound("Course not found")
			}
			return err
		}
		if course.Status == status {
			return apperror.BadRequest("Course is already %s", strings.ToLower(string(status)))
		}
		course.Status = status
		return tx.Model(&course).Update("status", status).Error
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (s *CourseService) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := s.db.WithContext(ctx).Model(&model.Course{}).
		Where("status = ? AND category <> ''", model.CourseStatusPublished).
		Distinct("category").
		Order("category").
		Pluck("category", &categories).Error
	return categories, err
}

func (s *CourseService) Featured(ctx context.Context, limit int) ([]model.Course, error) {
	_, limit = normalizePage(1, limit)

	var courses []model.Course
	err := s.db.WithContext(ctx).
		Where("status = ? AND featured = ?", model.CourseStatusPublished, true).
		Order("created_at DESC").
		Limit(limit).
		Find(&courses).Error
	if err != nil {
		return nil, err
	}
	return courses, s.fillStats(ctx, courses)
}

// Popular orders published courses by enrollment count
func (s *CourseService) Popular(ctx context.Context, limit int) ([]model.Course, error) {
	_, limit = normalizePage(1, limit)

	var ids []uint
	err := s.db.WithContext(ctx).
		Table("courses").
		Select("courses.id").
		Joins("LEFT JOIN enrollments ON enrollments.course_id = courses.id").
		Where("courses.status = ? AND courses.deleted_at IS NULL", model.CourseStatusPublished).
		Group("courses.id").
		Order("COUNT(enrollments.id) DESC, courses.id ASC").
		Limit(limit).
		Pluck("courses.id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Course{}, nil
	}

	var found []model.Course
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]model.Course, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	courses := make([]model.Course, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			courses = append(courses, c)
		}
	}
	return courses, s.fillStats(ctx, courses)
}

func (s *CourseService) MyCourses(ctx context.Context, userID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := s.db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error
	return enrollments, err
}

// Enroll self-enrolls a user. Priced courses are only reachable through a paid invoice.
func (s *CourseService) Enroll(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var course model.Course
		if err := tx.First(&course, courseID).Error; err != nil {
			if isNotFound(err) {
				return apperror.NotFound("Course not found")
			}
			return err
		}
		if !course.IsPurchasable() {
			return apperror.BadRequest("Course is not available for enrollment")
		}

		if err := ensureNotEnrolled(tx, userID, courseID); err != nil {
			return err
		}

		source := model.EnrollmentSourceFree
		var invoiceID *uint
		if !course.IsFree() {
			var paid model.Invoice
			err := tx.Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, model.InvoiceStatusPaid).
				First(&paid).Error
			if isNotFound(err) {
				return apperror.BadRequest("Payment required")
			}
			if err != nil {
				return err
			}
			source = model.EnrollmentSourcePayment
			invoiceID = &paid.ID
		}

		enrollment = model.Enrollment{
			UserID:     userID,
			CourseID:   courseID,
			InvoiceID:  invoiceID,
			Source:     source,
			EnrolledAt: s.now(),
		}
		return tx.Create(&enrollment).Error
	})
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// AdminEnroll grants access without payment
func (s *CourseService) AdminEnroll(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperror.NotFound("User not found")
		}
		if err := tx.Model(&model.Course{}).Where("id = ?", courseID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperror.NotFound("Course not found")
		}

		if err := ensureNotEnrolled(tx, userID, courseID); err != nil {
			return err
		}

		enrollment = model.Enrollment{
			UserID:     userID,
			CourseID:   courseID,
			Source:     model.EnrollmentSourceAdmin,
			EnrolledAt: s.now(),
		}
		return tx.Create(&enrollment).Error
	})
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (s *CourseService) AddReview(ctx context.Context, userID, courseID uint, in ReviewInput) (*model.CourseReview, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperror.BadRequest("Rating must be between 1 and 5")
	}

	var review model.CourseReview
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Enrollment{}).Where("user_id = ? AND course_id = ?", userID, courseID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperror.BadRequest("Only enrolled users can review this course")
		}

		if err := tx.Model(&model.CourseReview{}).Where("user_id = ? AND course_id = ?", userID, courseID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperror.BadRequest("You have already reviewed this course")
		}

		review = model.CourseReview{
			UserID:   userID,
			CourseID: courseID,
			Rating:   in.Rating,
			Comment:  strings.TrimSpace(in.Comment),
		}
		return tx.Create(&review).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func ensureNotEnrolled(tx *gorm.DB, userID, courseID uint) error {
	var count int64
	if err := tx.Model(&model.Enrollment{}).Where("user_id = ? AND course_id = ?", userID, courseID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperror.BadRequest("User is already enrolled in this course")
	}
	return nil
}

// fillStats sets the derived enrollment count and average rating
func (s *CourseService) fillStats(ctx context.Context, courses []model.Course) error {
	if len(courses) == 0 {
		return nil
	}

	ids := make([]uint, len(courses))
	for i := range courses {
		ids[i] = courses[i].ID
	}

	type enrollmentRow struct {
		CourseID uint
		Total    int64
	}
	var enrollmentRows []enrollmentRow
	if err := s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Select("course_id, COUNT(*) AS total").
		Where("course_id IN ?", ids).
		Group("course_id").
		Scan(&enrollmentRows).Error; err != nil {
		return err
	}

	type ratingRow struct {
		CourseID uint
		Average  float64
	}
	var ratingRows []ratingRow
	if err := s.db.WithContext(ctx).Model(&model.CourseReview{}).
		Select("course_id, AVG(rating) AS average").
		Where("course_id IN ?", ids).
		Group("course_id").
		Scan(&ratingRows).Error; err != nil {
		return err
	}

	counts := make(map[uint]int64, len(enrollmentRows))
	for _, r := range enrollmentRows {
		counts[r.CourseID] = r.Total
	}
	ratings := make(map[uint]float64, len(ratingRows))
	for _, r := range ratingRows {
		ratings[r.CourseID] = r.Average
	}

	for i := range courses {
		courses[i].EnrollmentCount = counts[courses[i].ID]
		courses[i].AverageRating = ratings[courses[i].ID]
	}
	return nil
}
