package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jstittsworth/gridline/internal/models"
	"github.com/jstittsworth/gridline/internal/services"
	"github.com/jstittsworth/gridline/pkg/utils"
)

type PredictionHandler struct {
	engines map[string]*services.SportEngine
	cache   *services.CacheService
}

func NewPredictionHandler(engines map[string]*services.SportEngine, cache *services.CacheService) *PredictionHandler {
	return &PredictionHandler{
		engines: engines,
		cache:   cache,
	}
}

// GetPrediction returns the forecast for one game, live fields included when the
// game is in progress.
func (h *PredictionHandler) GetPrediction(c *gin.Context) {
	gameID, err := strconv.ParseUint(c.Param("gameId"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid game ID", err.Error())
		return
	}

	cacheKey := services.PredictionCacheKey(uint(gameID))
	var cached models.Prediction
	if err := h.cache.Get(context.Background(), cacheKey, &cached); err == nil {
		utils.SendSuccess(c, cached)
		return
	}

	engine := h.engineFor(c.Query("sport"))
	if engine == nil {
		utils.SendValidationError(c, "Unknown or missing sport", "pass ?sport= with an enabled sport")
		return
	}

	prediction, err := engine.Predictions.GetByGameID(uint(gameID))
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch prediction")
		return
	}
	if prediction == nil {
		utils.SendNotFound(c, "Prediction not found")
		return
	}

	utils.SendSuccess(c, prediction)
}

// ListPredictions returns a sport's most recent forecasts.
func (h *PredictionHandler) ListPredictions(c *gin.Context) {
	sport := c.Param("sport")
	engine := h.engineFor(sport)
	if engine == nil {
		utils.SendNotFound(c, "Unknown sport")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	predictions, err := engine.Predictions.ListRecent(sport, limit)
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch predictions")
		return
	}

	utils.SendSuccess(c, predictions)
}

// GetAccuracy returns aggregate grading stats for a sport's season.
func (h *PredictionHandler) GetAccuracy(c *gin.Context) {
	sport := c.Param("sport")
	engine := h.engineFor(sport)
	if engine == nil {
		utils.SendNotFound(c, "Unknown sport")
		return
	}

	season := c.Query("season")
	cacheKey := services.AccuracyCacheKey(sport, season)
	ctx := context.Background()

	var cached map[string]interface{}
	if err := h.cache.Get(ctx, cacheKey, &cached); err == nil {
		utils.SendSuccess(c, cached)
		return
	}

	summary, err := engine.Grader.Accuracy(sport, season)
	if err != nil {
		utils.SendInternalError(c, "Failed to compute accuracy")
		return
	}

	h.cache.SetSimple(cacheKey, summary, 0)
	utils.SendSuccess(c, summary)
}

func (h *PredictionHandler) engineFor(sport string) *services.SportEngine {
	if sport == "" {
		return nil
	}
	return h.engines[sport]
}
