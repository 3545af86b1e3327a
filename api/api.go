package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
}

func NewAPIServer(listenAddress string) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:      "LessionPRM API",
			BodyLimit:    12 * 1024 * 1024,
			ErrorHandler: errorHandler,
		}),
		listenAddress: listenAddress,
	}
}

// errorHandler renders errors that escaped the handlers in the standard envelope
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code == fiber.StatusNotFound {
			return response.NotFound(c, "Route not found")
		}
		return response.Error(c, fe.Code, fe.Message, "HTTP_ERROR")
	}

	logger.FromFiber(c).Error().Err(err).Msg("unhandled error")
	return response.InternalServerError(c, "")
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	logger.Logger.Info().Str("address", s.listenAddress).Msg("starting API server")
	return s.app.Listen(s.listenAddress)
}

func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}
