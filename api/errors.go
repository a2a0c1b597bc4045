package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Josn-deng/lux-xiaokai/pkg/aiclient"
	"github.com/Josn-deng/lux-xiaokai/pkg/llm"
)

// StatusClientClosedRequest is reported when the caller went away before the
// upstream answered.
const StatusClientClosedRequest = 499

// errorKind returns the classified kind of err, looking through the stream
// setup wrapper to the failure underneath.
func errorKind(err error) aiclient.Kind {
	kind := aiclient.KindOf(err)
	if kind == aiclient.KindStream {
		if inner := aiclient.KindOf(errors.Unwrap(err)); inner != "" {
			return inner
		}
	}
	return kind
}

// statusFor maps a task failure to the HTTP status returned to the caller.
func statusFor(err error) int {
	switch errorKind(err) {
	case aiclient.KindAuthentication:
		return fiber.StatusUnauthorized
	case aiclient.KindModelNotFound:
		return fiber.StatusNotFound
	case aiclient.KindRateLimit:
		return fiber.StatusTooManyRequests
	case aiclient.KindServer, aiclient.KindNetwork, aiclient.KindInvalidResponse, aiclient.KindStream:
		return fiber.StatusBadGateway
	case aiclient.KindClient:
		return fiber.StatusBadRequest
	case aiclient.KindCancelled:
		return StatusClientClosedRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) writeTaskError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	kind := errorKind(err)

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("task failed", "path", c.Path(), "kind", kind, "error", err)
	} else {
		s.logger.Warn("task failed", "path", c.Path(), "kind", kind, "error", err)
	}

	return c.Status(status).JSON(llm.ErrorResponse{
		Error: err.Error(),
		Kind:  string(kind),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: msg})
}
