package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/database"
	"github.com/sahilchouksey/lessionprm-api/handlers"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
)

// ListCronLogs lists scheduled job runs, newest first
// GET /api/v1/admin/cron-logs
func ListCronLogs(c *fiber.Ctx, store database.Storage) error {
	page, limit := response.NormalizePage(handlers.ParsePage(c))

	query := store.DB().WithContext(c.UserContext()).Model(&model.CronJobLog{})
	if job := c.Query("job"); job != "" {
		query = query.Where("job_name = ?", job)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count cron logs")
	}

	var logs []model.CronJobLog
	if err := query.Offset((page - 1) * limit).Limit(limit).Order("started_at DESC").Find(&logs).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch cron logs")
	}

	return response.Paginated(c, logs, response.CalculatePagination(page, limit, total))
}
