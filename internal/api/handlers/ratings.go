package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jstittsworth/gridline/internal/models"
	"github.com/jstittsworth/gridline/internal/services"
	"github.com/jstittsworth/gridline/pkg/utils"
)

type RatingHandler struct {
	engines map[string]*services.SportEngine
	cache   *services.CacheService
}

func NewRatingHandler(engines map[string]*services.SportEngine, cache *services.CacheService) *RatingHandler {
	return &RatingHandler{
		engines: engines,
		cache:   cache,
	}
}

// ListRatings returns a sport's current ratings, strongest first.
func (h *RatingHandler) ListRatings(c *gin.Context) {
	sport := c.Param("sport")
	engine, ok := h.engines[sport]
	if !ok {
		utils.SendNotFound(c, "Unknown sport")
		return
	}

	cacheKey := services.RatingsCacheKey(sport)
	var cached []models.TeamRating
	if err := h.cache.Get(context.Background(), cacheKey, &cached); err == nil {
		utils.SendSuccess(c, cached)
		return
	}

	ratings, err := engine.Ratings.ListSportRatings(sport)
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch ratings")
		return
	}

	h.cache.SetSimple(cacheKey, ratings, 0)
	utils.SendSuccess(c, ratings)
}

// GetRatingHistory returns a team's rating trail, newest first.
func (h *RatingHandler) GetRatingHistory(c *gin.Context) {
	sport := c.Param("sport")
	engine, ok := h.engines[sport]
	if !ok {
		utils.SendNotFound(c, "Unknown sport")
		return
	}

	teamID, err := strconv.ParseUint(c.Param("teamId"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid team ID", err.Error())
		return
	}

	season := c.Query("season")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := engine.Ratings.ListHistory(uint(teamID), season, limit)
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch rating history")
		return
	}

	utils.SendSuccess(c, entries)
}
