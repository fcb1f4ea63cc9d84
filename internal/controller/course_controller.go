package controller

import (
	"learnsphere_backend/internal/service"
	"learnsphere_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// CourseController 公开的课程浏览与讲师的课程管理
type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// ListCourses godoc
// @Summary 已发布课程列表
// @Tags 课程
// @Produce  json
// @Param   keyword query string false "标题关键词"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	page, limit := pageParams(ctx)
	courses, total, err := c.CourseService.ListPublished(ctx.Request.Context(), ctx.Query("keyword"), page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: courses, Total: total, Page: page, Limit: limit})
}

// GetCourse godoc
// @Summary 课程详情
// @Description 包含按顺序排列的课时，未发布课程返回 404
// @Tags 课程
// @Produce  json
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	course, err := c.CourseService.Detail(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 讲师
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course}
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/instructor/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.CourseService.Create(ctx.Request.Context(), actor, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// ListMyCourses godoc
// @Summary 讲师自己的课程
// @Tags 讲师
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Course}
// @Router /api/instructor/courses [get]
func (c *CourseController) ListMyCourses(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courses, err := c.CourseService.ListMine(ctx.Request.Context(), actor)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// UpdateCourse godoc
// @Summary 修改课程
// @Tags 讲师
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Param   body body service.CourseRequest true "课程信息"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 403 {object} util.Response "不是课程讲师"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/instructor/courses/{id} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.CourseService.Update(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// DeleteCourse godoc
// @Summary 删除课程
// @Tags 讲师
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "不是课程讲师"
// @Router /api/instructor/courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.CourseService.Delete(ctx.Request.Context(), actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Course deleted", nil)
}

// AddLesson godoc
// @Summary 添加课时
// @Description orderIndex 为空时追加到末尾
// @Tags 讲师
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Param   body body service.LessonRequest true "课时信息"
// @Success 201 {object} util.Response{data=model.Lesson}
// @Router /api/instructor/courses/{id}/lessons [post]
func (c *CourseController) AddLesson(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	lesson, err := c.CourseService.AddLesson(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// UpdateLesson godoc
// @Summary 修改课时
// @Tags 讲师
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时ID"
// @Param   body body service.LessonRequest true "课时信息"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Router /api/instructor/lessons/{id} [put]
func (c *CourseController) UpdateLesson(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	lesson, err := c.CourseService.UpdateLesson(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// DeleteLesson godoc
// @Summary 删除课时
// @Tags 讲师
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response
// @Router /api/instructor/lessons/{id} [delete]
func (c *CourseController) DeleteLesson(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.CourseService.DeleteLesson(ctx.Request.Context(), actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Lesson deleted", nil)
}

// CreateQuiz godoc
// @Summary 为课时创建测验
// @Description 每个课时最多一个测验
// @Tags 讲师
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时ID"
// @Param   body body service.QuizRequest true "测验内容"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Failure 409 {object} util.Response "课时已有测验"
// @Router /api/instructor/lessons/{id}/quiz [post]
func (c *CourseController) CreateQuiz(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.QuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	quiz, err := c.CourseService.CreateQuiz(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// Students godoc
// @Summary 课程学员及进度
// @Tags 讲师
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Enrollment}
// @Router /api/instructor/courses/{id}/students [get]
func (c *CourseController) Students(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	students, err := c.CourseService.Students(ctx.Request.Context(), actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, students)
}

// ConfirmPayment godoc
// @Summary 确认学员付款
// @Tags 讲师
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Param   userId path int true "学员ID"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Failure 403 {object} util.Response "学员未选课或不是课程讲师"
// @Router /api/instructor/courses/{id}/students/{userId}/paid [put]
func (c *CourseController) ConfirmPayment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	learnerID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}
	enrollment, err := c.CourseService.ConfirmPayment(ctx.Request.Context(), actor, id, learnerID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, enrollment)
}
