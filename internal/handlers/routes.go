package handlers

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the page and health checks on e and the JSON API on api
func RegisterRoutes(e *echo.Echo, api *echo.Group, dashboard *DashboardHandlers, jobs *JobHandlers, health *HealthHandlers) {
	e.GET("/", dashboard.Page)

	e.GET("/health", health.HealthCheck)
	e.GET("/health/ready", health.ReadinessCheck)
	e.GET("/health/live", health.LivenessCheck)

	api.GET("/dashboard", dashboard.GetDashboard)
	api.GET("/inventory", dashboard.GetInventory)
	api.POST("/alerts/:key/order", jobs.DraftOrder)
	api.POST("/cache/refresh", jobs.RefreshCache)
	api.DELETE("/cache", jobs.InvalidateCache)
	api.GET("/jobs", jobs.ListJobs)
	api.POST("/jobs/:name/run", jobs.RunJob)
}
