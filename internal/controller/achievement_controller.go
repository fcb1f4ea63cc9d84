package controller

import (
	"learnsphere_backend/internal/service"
	"learnsphere_backend/internal/util"
	"time"

	"github.com/gin-gonic/gin"
)

type AchievementController struct {
	AchievementService *service.AchievementService
	PointsService      *service.PointsService
	BadgeService       *service.BadgeService
	StreakService      *service.StreakService
}

func NewAchievementController(
	achievementService *service.AchievementService,
	pointsService *service.PointsService,
	badgeService *service.BadgeService,
	streakService *service.StreakService,
) *AchievementController {
	return &AchievementController{
		AchievementService: achievementService,
		PointsService:      pointsService,
		BadgeService:       badgeService,
		StreakService:      streakService,
	}
}

// @Summary 成就总览
// @Description 积分、徽章、成就、证书和连续学习天数
// @Tags 成就系统
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.Dashboard}
// @Router /api/learner/achievements [get]
func (c *AchievementController) Dashboard(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	dashboard, err := c.AchievementService.GetDashboard(ctx.Request.Context(), actor.UserID, time.Now())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, dashboard)
}

// @Summary 连续学习天数
// @Tags 成就系统
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.Streak}
// @Router /api/learner/streak [get]
func (c *AchievementController) Streak(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	streak, err := c.StreakService.ComputeStreak(ctx.Request.Context(), actor.UserID, time.Now())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, streak)
}

// @Summary 积分与等级
// @Tags 成就系统
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.PointsSummary}
// @Router /api/learner/points [get]
func (c *AchievementController) Points(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	summary, err := c.PointsService.Summary(ctx.Request.Context(), actor.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// @Summary 积分流水
// @Tags 成就系统
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/learner/points/history [get]
func (c *AchievementController) PointsHistory(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	page, limit := pageParams(ctx)
	entries, total, err := c.PointsService.History(ctx.Request.Context(), actor.UserID, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: entries, Total: total, Page: page, Limit: limit})
}

// @Summary 积分排行榜
// @Tags 成就系统
// @Produce json
// @Security BearerAuth
// @Param limit query int false "返回数量" default(10)
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Router /api/learner/leaderboard [get]
func (c *AchievementController) Leaderboard(ctx *gin.Context) {
	limit := util.QueryInt(ctx, "limit", 10)
	if limit < 1 || limit > util.MaxPageLimit {
		limit = 10
	}
	board, err := c.PointsService.Leaderboard(ctx.Request.Context(), limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, board)
}

// @Summary 未查看的新徽章
// @Tags 成就系统
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.UserBadge}
// @Router /api/learner/badges/new [get]
func (c *AchievementController) NewBadges(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	badges, err := c.BadgeService.NewBadges(ctx.Request.Context(), actor.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}

// @Summary 标记徽章已查看
// @Tags 成就系统
// @Produce json
// @Security BearerAuth
// @Param id path int true "徽章ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "未获得该徽章"
// @Router /api/learner/badges/{id}/viewed [put]
func (c *AchievementController) MarkBadgeViewed(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.BadgeService.MarkViewed(ctx.Request.Context(), actor.UserID, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Badge marked as viewed", nil)
}

// @Summary 徽章目录
// @Tags 成就系统
// @Produce json
// @Success 200 {object} util.Response{data=[]model.Badge}
// @Router /api/badges [get]
func (c *AchievementController) BadgeCatalog(ctx *gin.Context) {
	badges, err := c.BadgeService.Catalog(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}
