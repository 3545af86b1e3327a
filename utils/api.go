package utils

import (
	fiber "github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/database"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
)

// StoreHandler is a handler that reads straight from the store
type StoreHandler func(c *fiber.Ctx, store database.Storage) error

// MakeHTTPHandleFunc binds store to handler. Errors that escape the handler
// are rendered through the standard envelope.
func MakeHTTPHandleFunc(handler StoreHandler, store database.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := handler(c, store); err != nil {
			return response.FromError(c, err)
		}
		return nil
	}
}
