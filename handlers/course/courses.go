package course

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/handlers"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/services"
	"github.com/sahilchouksey/lessionprm-api/utils/middleware"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
	"github.com/sahilchouksey/lessionprm-api/utils/validation"
)

// CourseHandler handles course-related requests
type CourseHandler struct {
	service   *services.CourseService
	validator *validation.Validator
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(service *services.CourseService) *CourseHandler {
	return &CourseHandler{
		service:   service,
		validator: validation.NewValidator(),
	}
}

// EnrollUserRequest is the admin body for granting a course
type EnrollUserRequest struct {
	UserID uint `json:"user_id" validate:"required,gt=0"`
}

// ListCourses handles GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	page, limit := response.NormalizePage(handlers.ParsePage(c))
	filter := services.CourseFilter{
		Page:     page,
		Limit:    limit,
		Category: c.Query("category"),
		Level:    c.Query("level"),
		Search:   validation.SanitizeString(c.Query("search")),
	}
	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return response.BadRequest(c, "Invalid featured flag")
		}
		filter.Featured = &featured
	}

	// Admins browse drafts and archived courses too
	if middleware.IsAdmin(c) {
		filter.IncludeUnpublished = true
		filter.Status = c.Query("status")
	}

	courses, total, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, courses, response.CalculatePagination(page, limit, total))
}

// GetCategories handles GET /api/v1/courses/categories
func (h *CourseHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.service.Categories(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, categories)
}

// GetFeatured handles GET /api/v1/courses/featured
func (h *CourseHandler) GetFeatured(c *fiber.Ctx) error {
	courses, err := h.service.Featured(c.UserContext(), c.QueryInt("limit", 6))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, courses)
}

// GetPopular handles GET /api/v1/courses/popular
func (h *CourseHandler) GetPopular(c *fiber.Ctx) error {
	courses, err := h.service.Popular(c.UserContext(), c.QueryInt("limit", 6))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, courses)
}

// GetCourse handles GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	course, err := h.service.Get(c.UserContext(), id, middleware.IsAdmin(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, course)
}

// CreateCourse handles POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	req, err := h.parseCourseInput(c)
	if err != nil {
		return err
	}
	if req == nil {
		return nil
	}

	course, err := h.service.Create(c.UserContext(), *req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, course)
}

// UpdateCourse handles PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	req, err := h.parseCourseInput(c)
	if err != nil {
		return err
	}
	if req == nil {
		return nil
	}

	course, err := h.service.Update(c.UserContext(), id, *req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course updated successfully", course)
}

// parseCourseInput writes the error response itself and returns a nil input when it did
func (h *CourseHandler) parseCourseInput(c *fiber.Ctx) (*services.CourseInput, error) {
	var req services.CourseInput
	if err := c.BodyParser(&req); err != nil {
		return nil, response.BadRequest(c, "Invalid request body")
	}

	req.Title = validation.SanitizeString(req.Title)
	req.Category = validation.SanitizeString(req.Category)
	req.Level = model.CourseLevel(strings.ToUpper(string(req.Level)))
	req.Status = model.CourseStatus(strings.ToUpper(string(req.Status)))

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return nil, response.ValidationError(c, errs)
	}
	return &req, nil
}

// DeleteCourse handles DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course deleted successfully", nil)
}

// PublishCourse handles POST /api/v1/courses/:id/publish
func (h *CourseHandler) PublishCourse(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	course, err := h.service.Publish(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course published", course)
}

// ArchiveCourse handles POST /api/v1/courses/:id/archive
func (h *CourseHandler) ArchiveCourse(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	course, err := h.service.Archive(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course archived", course)
}

// MyCourses handles GET /api/v1/courses/my-courses
func (h *CourseHandler) MyCourses(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	enrollments, err := h.service.MyCourses(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, enrollments)
}

// Enroll handles POST /api/v1/courses/:id/enroll
func (h *CourseHandler) Enroll(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	enrollment, err := h.service.Enroll(c.UserContext(), userID, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, enrollment)
}

// EnrollUser handles POST /api/v1/courses/:id/enrollments
func (h *CourseHandler) EnrollUser(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req EnrollUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	enrollment, err := h.service.AdminEnroll(c.UserContext(), req.UserID, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, enrollment)
}

// AddReview handles POST /api/v1/courses/:id/reviews
func (h *CourseHandler) AddReview(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req services.ReviewInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	review, err := h.service.AddReview(c.UserContext(), userID, id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, review)
}
