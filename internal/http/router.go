// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatchdesk/internal/http/handlers"
	"dispatchdesk/internal/http/middleware"
	"dispatchdesk/internal/infra"
)

type RouterDeps struct {
	Verifier infra.TokenVerifier
	Dispatch handlers.DispatchService
	Orders   handlers.OrderService
	Drivers  handlers.DriverService
	Nearby   handlers.NearbyFinder
	Location handlers.LocationService
	Revenue  handlers.RevenueService
}

const roleAdmin = "admin"

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	// Driver app.
	locationHandler := handlers.NewLocationHandler(deps.Location)
	api.PUT("/drivers/:id/location", locationHandler.Update)

	// Dashboard.
	admin := api.Group("", middleware.RequireRole(roleAdmin))

	dispatchHandler := handlers.NewDispatchHandler(deps.Dispatch)
	admin.GET("/dispatch/orders", dispatchHandler.ListOrders)
	admin.GET("/dispatch/orders/:id/candidates", dispatchHandler.Candidates)
	admin.POST("/dispatch/assign", dispatchHandler.Assign)
	admin.GET("/dispatch/autopilot", dispatchHandler.GetAutoPilot)
	admin.PUT("/dispatch/autopilot", dispatchHandler.SetAutoPilot)
	admin.GET("/dispatch/status", dispatchHandler.Status)
	admin.GET("/dispatch/assignments", dispatchHandler.RecentAssignments)

	orderHandler := handlers.NewOrderHandler(deps.Orders)
	admin.GET("/orders/:id", orderHandler.Get)
	admin.POST("/orders/:id/cancel", orderHandler.Cancel)
	admin.POST("/orders/:id/advance", orderHandler.Advance)

	driverHandler := handlers.NewDriverHandler(deps.Drivers, deps.Nearby)
	admin.GET("/drivers", driverHandler.ListOnline)
	admin.GET("/drivers/nearby", driverHandler.Nearby)

	revenueHandler := handlers.NewRevenueHandler(deps.Revenue)
	admin.GET("/revenue/daily", revenueHandler.Daily)

	return r
}
