package admin

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/database"
	"github.com/sahilchouksey/lessionprm-api/handlers"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
	"gorm.io/gorm"
)

// ListAuditLogs retrieves admin audit logs with pagination
// GET /api/v1/admin/audit-logs
func ListAuditLogs(c *fiber.Ctx, store database.Storage) error {
	page, limit := response.NormalizePage(handlers.ParsePage(c))

	query := store.DB().WithContext(c.UserContext()).Model(&model.AdminAuditLog{})

	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if resource := c.Query("resource"); resource != "" {
		query = query.Where("resource = ?", resource)
	}
	if adminID, err := strconv.ParseUint(c.Query("admin_id"), 10, 64); err == nil {
		query = query.Where("admin_id = ?", adminID)
	}

	r, err := handlers.ParseDateRange(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	if !r.From.IsZero() {
		query = query.Where("created_at >= ?", r.From)
	}
	if !r.To.IsZero() {
		query = query.Where("created_at < ?", r.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count audit logs")
	}

	var logs []model.AdminAuditLog
	if err := query.Offset((page - 1) * limit).Limit(limit).Order("created_at DESC").Find(&logs).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch audit logs")
	}

	return response.Paginated(c, logs, response.CalculatePagination(page, limit, total))
}

// GetAuditLog retrieves a specific audit log entry
// GET /api/v1/admin/audit-logs/:id
func GetAuditLog(c *fiber.Ctx, store database.Storage) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid log ID")
	}

	var entry model.AdminAuditLog
	if err := store.DB().WithContext(c.UserContext()).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Audit log not found")
		}
		return response.InternalServerError(c, "Failed to fetch audit log")
	}

	return response.Success(c, entry)
}
