package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/brokerage_backend/config"
)

var errDatabaseNotReady = errors.New("database not ready")

// RegisterRoutes mounts the escrow API and the health check on r.
func RegisterRoutes(r *gin.Engine) {
	r.GET("/health", Health)

	api := r.Group("/api/v1", requireDatabase)
	escrows := api.Group("/escrows")
	escrows.GET("", ListEscrows)
	escrows.POST("", CreateEscrow)
	escrows.GET("/export", ExportEscrows)
	escrows.GET("/:id", GetEscrow)
	escrows.GET("/:id/checklist", GetChecklist)
	escrows.PATCH("/:id/checklist", UpdateChecklist)
	escrows.POST("/:id/people", AddEscrowPerson)

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, CodeNotFound, "Route not found", nil)
	})
}

// requireDatabase answers 503 until the database connection is up; the
// listener starts before dependencies connect.
func requireDatabase(c *gin.Context) {
	if config.GetDB() == nil {
		respondError(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service is starting", errDatabaseNotReady.Error())
		return
	}
	c.Next()
}
