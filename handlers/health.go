package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/brokerage_backend/config"
)

const healthTimeout = 2 * time.Second

type healthReport struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	Time     string `json:"time"`
}

// Health reports database and redis reachability. Redis is optional, so only
// a database failure makes the service unhealthy.
func Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	report := healthReport{Status: "ok", Database: "ok", Redis: "disabled", Time: time.Now().UTC().Format(time.RFC3339)}
	logger := config.GetLogger()

	if err := pingDatabase(ctx); err != nil {
		config.LogWarn(logger, "handlers", "Health", "pinging database", nil, err)
		report.Status = "unavailable"
		report.Database = "unreachable"
	}
	if rdb := config.GetRedisDB(); rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			config.LogWarn(logger, "handlers", "Health", "pinging redis", nil, err)
			report.Redis = "unreachable"
			if report.Status == "ok" {
				report.Status = "degraded"
			}
		} else {
			report.Redis = "ok"
		}
	}

	status := http.StatusOK
	if report.Database != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, Envelope{Success: status == http.StatusOK, Data: report})
}

func pingDatabase(ctx context.Context) error {
	db := config.GetDB()
	if db == nil {
		return errDatabaseNotReady
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
