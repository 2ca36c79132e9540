package admin

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redteam-academy/api/model"
	"github.com/redteam-academy/api/services/genai"
	"github.com/redteam-academy/api/utils/response"
	"gorm.io/gorm"
)

const (
	defaultJobLogLimit = 50
	maxJobLogLimit     = 200
	generatorCheckTimeout = 15 * time.Second
)

// SystemHandler exposes operational diagnostics to admin users
type SystemHandler struct {
	db        *gorm.DB
	generator *genai.Client
}

// NewSystemHandler creates a new admin system handler
func NewSystemHandler(db *gorm.DB, generator *genai.Client) *SystemHandler {
	return &SystemHandler{db: db, generator: generator}
}

// ListJobRuns returns recent scheduled-job executions, newest first
func (h *SystemHandler) ListJobRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultJobLogLimit)
	if limit < 1 || limit > maxJobLogLimit {
		limit = defaultJobLogLimit
	}

	var logs []model.CronJobLog
	if err := h.db.Order("started_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return response.InternalServerError(c, "Failed to load job runs")
	}

	return response.Success(c, fiber.Map{
		"jobs":  logs,
		"count": len(logs),
	})
}

// CheckGenerator sends a minimal request to the generation provider and
// reports its token cost
func (h *SystemHandler) CheckGenerator(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), generatorCheckTimeout)
	defer cancel()

	check, err := h.generator.HealthCheck(ctx)
	if err != nil {
		return response.ErrorWithDetails(c, fiber.StatusBadGateway,
			"Generation provider unreachable", "UPSTREAM_ERROR", err.Error())
	}

	prompt, candidates, total := check.GetUsage()
	return response.Success(c, fiber.Map{
		"generator": "ok",
		"usage": fiber.Map{
			"prompt_tokens":    prompt,
			"candidate_tokens": candidates,
			"total_tokens":     total,
		},
	})
}
