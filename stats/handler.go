package stats

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type statsHandler struct {
	service *Service
}

func NewStatsHandler(service *Service) *statsHandler {
	return &statsHandler{service: service}
}

func (sh *statsHandler) MyStatsHandler(ctx *gin.Context) {
	id := ctx.GetString("id")
	if id == "" {
		ctx.String(http.StatusUnauthorized, "unauthenticated")
		return
	}

	stats, err := sh.service.GetUserStats(ctx.Request.Context(), id)
	if err != nil {
		ctx.String(http.StatusInternalServerError, "unknown-error")
		return
	}

	ctx.JSON(http.StatusOK, stats)
}

func (sh *statsHandler) MyAchievementsHandler(ctx *gin.Context) {
	id := ctx.GetString("id")
	if id == "" {
		ctx.String(http.StatusUnauthorized, "unauthenticated")
		return
	}

	achievements, err := sh.service.GetAchievements(ctx.Request.Context(), id)
	if err != nil {
		ctx.String(http.StatusInternalServerError, "unknown-error")
		return
	}

	ctx.JSON(http.StatusOK, achievements)
}

func (sh *statsHandler) LeaderboardHandler(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	if err != nil {
		ctx.String(http.StatusBadRequest, "invalid-limit")
		return
	}

	entries, err := sh.service.Leaderboard(ctx.Request.Context(), limit)
	if err != nil {
		ctx.String(http.StatusInternalServerError, "unknown-error")
		return
	}

	ctx.JSON(http.StatusOK, entries)
}
