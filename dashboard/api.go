// Package dashboard serves the read-only statistics and health endpoints.
package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/awakeconnect/awake/apperr"
	"github.com/awakeconnect/awake/cache"
	"github.com/awakeconnect/awake/store"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// StatsCacheKey holds the cached public statistics.
const StatsCacheKey = "stats:counts"

const healthTimeout = 2 * time.Second

// DataStore is the part of store.Store the dashboard reads.
type DataStore interface {
	Count(ctx context.Context, c store.Collection) (int64, error)
	Stats(ctx context.Context) (store.Stats, error)
	Ping(ctx context.Context) error
}

type Service struct {
	Store     DataStore
	Cache     *cache.Cache
	Logger    *logrus.Logger
	StatsTTL  time.Duration
	StartedAt time.Time
}

func (s *Service) logger() *logrus.Logger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

// Statistics godoc
// @Summary Public record counts, cached for StatsTTL
// @Router /api/statistics [get]
func (s *Service) Statistics(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var stats store.Stats
	found, err := s.Cache.Get(ctx, StatsCacheKey, &stats)
	if err != nil {
		s.logger().WithError(err).Warn("discarding unreadable cached statistics")
		s.Cache.Del(ctx, StatsCacheKey)
	}
	if !found || err != nil {
		stats, err = s.Store.Stats(ctx)
		if err != nil {
			s.logger().WithError(err).Error("failed to fetch statistics")
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "Failed to fetch statistics",
			})
		}
		if err := s.Cache.Set(ctx, StatsCacheKey, stats, s.StatsTTL); err != nil {
			s.logger().WithError(err).Warn("failed to cache statistics")
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"cached":  found,
		"data":    stats,
	})
}

// AdminCounts godoc
// @Summary Live users and applications counts
// @Router /api/admin/counts [get]
func (s *Service) AdminCounts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	users, err := s.Store.Count(ctx, store.Users)
	if err != nil {
		s.logger().WithError(err).Error("count users")
		jsonResponse(c, 0, err)
		return nil
	}
	applications, err := s.Store.Count(ctx, store.Applications)
	if err != nil {
		s.logger().WithError(err).Error("count applications")
		jsonResponse(c, 0, err)
		return nil
	}
	jsonResponse(c, http.StatusOK, fiber.Map{
		"success": true,
		"data": fiber.Map{
			"users":        users,
			"applications": applications,
		},
	})
	return nil
}

// Health reports database reachability and cache state. A down database is a 503.
func (s *Service) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	start := time.Now()
	database := fiber.Map{"status": "healthy", "message": "Database connection successful"}
	status := "healthy"
	code := http.StatusOK
	if err := s.Store.Ping(ctx); err != nil {
		database = fiber.Map{
			"status":  "unhealthy",
			"message": "Database connection failed",
			"error":   apperr.Message(err),
		}
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	database["response_ms"] = time.Since(start).Milliseconds()

	body := fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": fiber.Map{
			"database": database,
			"cache":    fiber.Map{"status": s.Cache.Status(ctx)},
		},
	}
	if !s.StartedAt.IsZero() {
		body["uptime_seconds"] = int64(time.Since(s.StartedAt).Seconds())
	}
	return c.Status(code).JSON(body)
}
