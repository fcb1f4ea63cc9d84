package controller

import (
	"learnsphere_backend/internal/service"
	"learnsphere_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// LearningController 学员选课与课时进度
type LearningController struct {
	ProgressService *service.ProgressService
}

func NewLearningController(progressService *service.ProgressService) *LearningController {
	return &LearningController{ProgressService: progressService}
}

// PositionRequest 视频播放位置（秒）
type PositionRequest struct {
	Position *float64 `json:"position" binding:"required"`
}

// Enroll godoc
// @Summary 选课
// @Description 重复选课返回已有记录
// @Tags 学习
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 201 {object} util.Response{data=model.Enrollment} "选课成功"
// @Success 200 {object} util.Response{data=model.Enrollment} "已选过该课程"
// @Failure 403 {object} util.Response "课程未发布"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/learner/courses/{id}/enroll [post]
func (c *LearningController) Enroll(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	enrollment, created, err := c.ProgressService.Enroll(ctx.Request.Context(), actor.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if !created {
		util.SuccessWithMessage(ctx, "Already enrolled", enrollment)
		return
	}
	util.Created(ctx, enrollment)
}

// MyCourses godoc
// @Summary 我的课程
// @Tags 学习
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Enrollment}
// @Router /api/learner/my-courses [get]
func (c *LearningController) MyCourses(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	enrollments, err := c.ProgressService.MyCourses(ctx.Request.Context(), actor.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, enrollments)
}

// CourseProgress godoc
// @Summary 课程学习进度
// @Description 返回选课记录及每个课时的完成情况
// @Tags 学习
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseProgressView}
// @Failure 403 {object} util.Response "未选课"
// @Router /api/learner/courses/{id}/progress [get]
func (c *LearningController) CourseProgress(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	view, err := c.ProgressService.CourseProgress(ctx.Request.Context(), actor.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// CompleteCourse godoc
// @Summary 直接完成课程
// @Description 将全部课时标记完成、选课置为 100% 并签发证书，证书只签发一次
// @Tags 学习
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseCompletion}
// @Failure 400 {object} util.Response "课程没有课时"
// @Failure 403 {object} util.Response "未选课"
// @Router /api/learner/courses/{id}/complete [post]
func (c *LearningController) CompleteCourse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	result, err := c.ProgressService.ForceComplete(ctx.Request.Context(), actor.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// StartLesson godoc
// @Summary 开始学习课时
// @Tags 学习
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=model.LessonProgress}
// @Failure 404 {object} util.Response "课时不存在"
// @Router /api/learner/lessons/{id}/start [post]
func (c *LearningController) StartLesson(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	progress, err := c.ProgressService.StartLesson(ctx.Request.Context(), actor.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// CompleteLesson godoc
// @Summary 完成课时
// @Description 首次完成奖励积分，重算课程进度，达到 100% 时签发证书
// @Tags 学习
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=service.LessonCompletion}
// @Failure 404 {object} util.Response "课时不存在"
// @Router /api/learner/lessons/{id}/complete [post]
func (c *LearningController) CompleteLesson(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	result, err := c.ProgressService.CompleteLesson(ctx.Request.Context(), actor.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// SavePosition godoc
// @Summary 保存播放位置
// @Description 只更新已开始的课时
// @Tags 学习
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时ID"
// @Param   body body PositionRequest true "播放位置"
// @Success 200 {object} util.Response
// @Router /api/learner/lessons/{id}/position [put]
func (c *LearningController) SavePosition(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req PositionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.ProgressService.SavePosition(ctx.Request.Context(), actor.UserID, id, *req.Position); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Position saved", nil)
}

// CourseAccess godoc
// @Summary 课程访问权限
// @Description 免费课程直接开放，付费课程需讲师确认付款
// @Tags 学习
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.AccessCheck}
// @Failure 403 {object} util.Response "课程未发布"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/learner/courses/{id}/access [get]
func (c *LearningController) CourseAccess(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	access, err := c.ProgressService.CheckAccess(ctx.Request.Context(), actor.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, access)
}
