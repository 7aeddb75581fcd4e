package server

import (
	"context"
	"time"

	"inkwell/internal/database"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 5 * time.Second

// Dependency states reported by the readiness probe.
const (
	depHealthy   = "healthy"
	depUnhealthy = "unhealthy"
	depDisabled  = "disabled"
)

func probe(err error) string {
	if err != nil {
		return depUnhealthy
	}
	return depHealthy
}

// LivenessCheck answers as long as the process is serving.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "up", "time": time.Now()})
}

// ReadinessCheck reports the database and Redis. Redis is optional: a
// deployment without it is ready, a configured Redis that stops answering is
// not.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	checks := fiber.Map{
		"database": probe(database.Ping(ctx, s.db)),
		"redis":    depDisabled,
	}
	if s.redis != nil {
		checks["redis"] = probe(s.redis.Ping(ctx).Err())
	}

	status, overall := fiber.StatusOK, depHealthy
	for _, v := range checks {
		if v == depUnhealthy {
			status, overall = fiber.StatusServiceUnavailable, depUnhealthy
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"service": serviceName,
		"status":  overall,
		"checks":  checks,
		"time":    time.Now(),
	})
}
