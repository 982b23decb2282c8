package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk-service/internal/persistence"
)

const readinessTimeout = 2 * time.Second

// depCheck pings one backing service. A nil ping marks the dependency as
// not configured and reports the fallback label instead.
type depCheck struct {
	name     string
	fallback string
	ping     func(context.Context) error
}

// HealthHandler serves liveness and readiness.
type HealthHandler struct {
	service string
	version string
	checks  []depCheck
}

// NewHealthHandler wires the readiness checks. A disabled Postgres means
// tickets live in the in-memory store; a nil Redis means no ingest lock
// and no fan-out.
func NewHealthHandler(service, version string, pg *persistence.Postgres, rdb *persistence.Redis) *HealthHandler {
	h := &HealthHandler{service: service, version: version}

	pgCheck := depCheck{name: "postgres", fallback: "memory"}
	if pg.Enabled() {
		pgCheck.ping = pg.Ping
	}
	redisCheck := depCheck{name: "redis", fallback: "disabled"}
	if rdb != nil {
		redisCheck.ping = rdb.Ping
	}
	h.checks = []depCheck{pgCheck, redisCheck}
	return h
}

// Live always answers while the process is serving.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.service,
		"version": h.version,
	})
}

// Ready pings every configured dependency and answers 503 if any fails.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	report := make(fiber.Map, len(h.checks))
	healthy := true
	for _, p := range h.checks {
		if p.ping == nil {
			report[p.name] = p.fallback
			continue
		}
		if err := p.ping(ctx); err != nil {
			report[p.name] = err.Error()
			healthy = false
			continue
		}
		report[p.name] = "ok"
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": report,
			},
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "dependencies": report})
}
