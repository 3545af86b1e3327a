package middleware

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records admin mutations in admin_audit_logs once the handler has run.
// Only JSON bodies are captured; anything else is stored as null.
func AuditLog(db *gorm.DB, action, resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminID, ok := GetUserID(c)
		if !ok {
			return c.Next()
		}

		var resourceID uint
		for _, name := range []string{"id", "invoiceId"} {
			if raw := c.Params(name); raw != "" {
				if parsed, err := strconv.ParseUint(raw, 10, 32); err == nil {
					resourceID = uint(parsed)
					break
				}
			}
		}

		var payload datatypes.JSON
		if body := c.Body(); len(body) > 0 && json.Valid(body) {
			payload = datatypes.JSON(append([]byte(nil), body...))
		}

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		entry := model.AdminAuditLog{
			AdminID:     adminID,
			Action:      action,
			Resource:    resource,
			ResourceID:  resourceID,
			Payload:     payload,
			StatusCode:  status,
			IPAddress:   c.IP(),
			UserAgent:   c.Get("User-Agent"),
			Description: c.Method() + " " + c.Path(),
		}
		if dbErr := db.WithContext(c.UserContext()).Create(&entry).Error; dbErr != nil {
			logger.FromFiber(c).Warn().Err(dbErr).Str("action", action).Msg("failed to write audit log")
		}

		return err
	}
}
