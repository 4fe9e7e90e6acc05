package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"comphub/server/config"
)

func SetupRoutes(router *gin.Engine, cfg *config.Config, logger *logrus.Logger) {
	handler := NewHandler(cfg, logger)

	router.Use(TraceID(handler.logger))

	api := router.Group("/api")
	{
		api.POST("/comps", handler.GetComps)
		api.POST("/comps/search", handler.SearchComps)
		api.POST("/comps/nearby", handler.NearbyComps)

		api.GET("/north-carolina", handler.NorthCarolinaListings)
		api.POST("/north-carolina", handler.NorthCarolinaListings)
		api.GET("/north-carolina.csv", handler.NorthCarolinaCSV)
		api.GET("/north-carolina.xml", handler.NorthCarolinaXML)

		api.POST("/map/static", handler.GetStaticMap)
		api.POST("/map/street-view", handler.GetStreetView)
		api.GET("/map/street-view/proxy", handler.ProxyStreetView)
	}
}
