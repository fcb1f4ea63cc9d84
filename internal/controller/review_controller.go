package controller

import (
	"learnsphere_backend/internal/service"
	"learnsphere_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReviewController struct {
	ReviewService *service.ReviewService
}

func NewReviewController(reviewService *service.ReviewService) *ReviewController {
	return &ReviewController{ReviewService: reviewService}
}

// ListReviews godoc
// @Summary 课程评价列表
// @Tags 课程
// @Produce  json
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.CourseReview}
// @Router /api/courses/{id}/reviews [get]
func (c *ReviewController) ListReviews(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	reviews, err := c.ReviewService.List(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, reviews)
}

// SubmitReview godoc
// @Summary 提交或修改课程评价
// @Description 每个用户每门课一条评价，评分 1-5
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Param   body body service.ReviewRequest true "评价内容"
// @Success 201 {object} util.Response{data=model.CourseReview} "新建"
// @Success 200 {object} util.Response{data=model.CourseReview} "已更新"
// @Failure 400 {object} util.Response "评分无效"
// @Router /api/courses/{id}/reviews [post]
func (c *ReviewController) SubmitReview(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	review, created, err := c.ReviewService.Upsert(ctx.Request.Context(), actor.UserID, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if created {
		util.Created(ctx, review)
		return
	}
	util.SuccessWithMessage(ctx, "Review updated", review)
}

// DeleteReview godoc
// @Summary 删除自己的评价
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Param   reviewId path int true "评价ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "不是自己的评价"
// @Failure 404 {object} util.Response "评价不存在"
// @Router /api/courses/{id}/reviews/{reviewId} [delete]
func (c *ReviewController) DeleteReview(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	reviewID, ok := pathID(ctx, "reviewId")
	if !ok {
		return
	}
	if err := c.ReviewService.Delete(ctx.Request.Context(), actor.UserID, courseID, reviewID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Review deleted", nil)
}
