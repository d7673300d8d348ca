package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts every API route plus the Prometheus scrape endpoint.
func NewRouter(alerts *AlertHandler, prices *PriceHandler, users *UserHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a := router.Group("/alerts")
	{
		a.POST("", alerts.CreateAlert)
		a.GET("/:id", alerts.GetAlert)
		a.PUT("/:id", alerts.UpdateAlert)
		a.DELETE("/:id", alerts.DeleteAlert)
	}

	router.GET("/prices/snapshot", prices.Snapshot)
	router.GET("/price/:market/:symbol", prices.Price)

	router.GET("/users/:id/alerts", alerts.ListAlerts)
	router.PUT("/users/:id/token", users.RegisterToken)
	return router
}
