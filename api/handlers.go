package api

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Josn-deng/lux-xiaokai/pkg/assistant"
	"github.com/Josn-deng/lux-xiaokai/pkg/history"
	"github.com/Josn-deng/lux-xiaokai/pkg/llm"
)

// TaskRequest is the body of the task endpoints. Texts selects batch mode
// and is accepted by translate and polish only.
type TaskRequest struct {
	Text  string   `json:"text"`
	Texts []string `json:"texts,omitempty"`
}

// TaskResponse is the body returned by the task endpoints.
type TaskResponse struct {
	Result  string   `json:"result"`
	Results []string `json:"results,omitempty"`
}

// HistoryListResponse is the body of GET /v1/history.
type HistoryListResponse struct {
	Count        int                    `json:"count"`
	Interactions []*history.Interaction `json:"interactions"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleTask returns the handler of a blocking task endpoint.
func (s *Server) handleTask(task assistant.Task) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req TaskRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}

		svc := s.Service()
		ctx := c.UserContext()

		if len(req.Texts) > 0 {
			var (
				results []string
				err     error
			)
			switch task {
			case assistant.TaskTranslate:
				results, err = svc.BatchTranslate(ctx, req.Texts)
			case assistant.TaskPolish:
				results, err = svc.BatchPolish(ctx, req.Texts)
			default:
				return badRequest(c, "batch input is only supported for translate and polish")
			}
			if err != nil {
				return s.writeTaskError(c, err)
			}
			return c.JSON(TaskResponse{Results: results})
		}

		if requiresText(task) && strings.TrimSpace(req.Text) == "" {
			return badRequest(c, "text is required")
		}

		var (
			result string
			err    error
		)
		switch task {
		case assistant.TaskTranslate:
			result, err = svc.Translate(ctx, req.Text)
		case assistant.TaskPolish:
			result, err = svc.Polish(ctx, req.Text)
		case assistant.TaskAsk:
			result, err = svc.Ask(ctx, req.Text)
			result = assistant.RefineAnswer(result)
		case assistant.TaskSpeechTranslate:
			result, err = svc.SpeechTranslate(ctx, req.Text)
		}
		if err != nil {
			return s.writeTaskError(c, err)
		}

		return c.JSON(TaskResponse{Result: result})
	}
}

// requiresText reports whether blank input is rejected. Translation tasks
// answer blank input with an empty result instead.
func requiresText(task assistant.Task) bool {
	return task == assistant.TaskPolish || task == assistant.TaskAsk
}

// handleListHistory returns the most recent interactions.
// Query parameters:
//   - limit (optional): number of interactions, defaults to the configured limit
func (s *Server) handleListHistory(c *fiber.Ctx) error {
	limit := s.config.HistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = parsed
	}

	interactions, err := s.history.List(c.UserContext(), limit)
	if err != nil {
		s.logger.Error("failed to list history", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list history"})
	}
	if interactions == nil {
		interactions = []*history.Interaction{}
	}

	return c.JSON(HistoryListResponse{
		Count:        len(interactions),
		Interactions: interactions,
	})
}

// handleGetHistory returns a single interaction by its ID.
func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "id parameter required")
	}

	interaction, err := s.history.Get(c.UserContext(), id)
	if history.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "interaction not found"})
	}
	if err != nil {
		s.logger.Error("failed to load interaction", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to load interaction"})
	}

	return c.JSON(interaction)
}
