package controller

import (
	"learnsphere_backend/internal/service"
	"learnsphere_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// SubmitQuizRequest answers[i] 为第 i 题所选选项下标
type SubmitQuizRequest struct {
	Answers []int `json:"answers" binding:"required"`
}

// GetQuiz godoc
// @Summary 获取测验
// @Description 不包含正确答案
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/learner/quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	view, err := c.QuizService.Get(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// SubmitQuiz godoc
// @Summary 提交测验
// @Description 按尝试次数递减奖励积分，绑定课时的测验同时完成该课时
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Param   body body SubmitQuizRequest true "答案"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 400 {object} util.Response "答案格式错误"
// @Failure 404 {object} util.Response "测验不存在"
// @Failure 409 {object} util.Response "并发提交冲突"
// @Router /api/learner/quizzes/{id}/submit [post]
func (c *QuizController) SubmitQuiz(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	result, err := c.QuizService.Submit(ctx.Request.Context(), actor.UserID, id, req.Answers)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Attempts godoc
// @Summary 我的测验记录
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=[]model.QuizAttempt}
// @Router /api/learner/quizzes/{id}/attempts [get]
func (c *QuizController) Attempts(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	attempts, err := c.QuizService.Attempts(ctx.Request.Context(), actor.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}
