package main

import (
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"comphub/server/config"
	"comphub/server/internal/api"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Load .env when present; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded configuration from .env")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.Replication.BaseURL == "" || cfg.Replication.AccessToken == "" {
		logger.Fatal("REPLICATION_BASE and SPARK_ACCESS_TOKEN must be set")
	}
	if cfg.GoogleMapsKey == "" {
		logger.Warn("GOOGLE_MAPS_KEY not set; geocoding and map endpoints will fail")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.HandleMethodNotAllowed = true
	router.Use(cors.Default())

	api.SetupRoutes(router, cfg, logger)

	logger.Infof("Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
