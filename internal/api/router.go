package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jstittsworth/gridline/internal/api/handlers"
	"github.com/jstittsworth/gridline/internal/services"
)

// SetupRoutes configures the read API. The engine's writes all happen through the
// scheduler; this surface only exposes predictions, ratings, and accuracy.
func SetupRoutes(group *gin.RouterGroup, engines map[string]*services.SportEngine, cache *services.CacheService, scheduler *services.SchedulerService) {
	predictionHandler := handlers.NewPredictionHandler(engines, cache)
	ratingHandler := handlers.NewRatingHandler(engines, cache)
	healthHandler := handlers.NewHealthHandler(scheduler)

	// Prediction endpoints
	group.GET("/predictions/:sport", predictionHandler.ListPredictions)
	group.GET("/predictions/:sport/accuracy", predictionHandler.GetAccuracy)
	group.GET("/games/:gameId/prediction", predictionHandler.GetPrediction)

	// Rating endpoints
	group.GET("/ratings/:sport", ratingHandler.ListRatings)
	group.GET("/ratings/:sport/teams/:teamId/history", ratingHandler.GetRatingHistory)

	// Operational endpoints
	group.GET("/scheduler/status", healthHandler.GetSchedulerStatus)
}
