package controller

import (
	"learnsphere_backend/internal/service"
	"learnsphere_backend/internal/util"
	"strings"

	"github.com/gin-gonic/gin"
)

// AttachmentController 课时附件
type AttachmentController struct {
	AttachmentService *service.AttachmentService
}

func NewAttachmentController(attachmentService *service.AttachmentService) *AttachmentController {
	return &AttachmentController{AttachmentService: attachmentService}
}

// ListAttachments godoc
// @Summary 课时附件列表
// @Tags 课程
// @Produce  json
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=[]model.LessonAttachment}
// @Failure 404 {object} util.Response "课时不存在"
// @Router /api/lessons/{id}/attachments [get]
func (c *AttachmentController) ListAttachments(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	list, err := c.AttachmentService.List(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// AddAttachment godoc
// @Summary 添加课时附件
// @Description multipart 上传文件（字段 file），或以 JSON 提交外部链接
// @Tags 讲师
// @Accept  multipart/form-data
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时ID"
// @Param   file formData file false "附件文件"
// @Param   body body service.AttachmentLinkRequest false "外部链接"
// @Success 201 {object} util.Response{data=model.LessonAttachment}
// @Failure 400 {object} util.Response "文件类型或大小不合法"
// @Failure 403 {object} util.Response "不是课程讲师"
// @Router /api/instructor/lessons/{id}/attachments [post]
func (c *AttachmentController) AddAttachment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if !strings.HasPrefix(ctx.ContentType(), "multipart/") {
		var req service.AttachmentLinkRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
		attachment, err := c.AttachmentService.AddLink(ctx.Request.Context(), actor, id, req)
		if err != nil {
			util.HandleError(ctx, err)
			return
		}
		util.Created(ctx, attachment)
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "Please select a file to upload")
		return
	}
	file, err := header.Open()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	defer file.Close()

	attachment, err := c.AttachmentService.Upload(ctx.Request.Context(), actor, id, service.AttachmentUpload{
		FileName: header.Filename,
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, attachment)
}

// DeleteAttachment godoc
// @Summary 删除课时附件
// @Tags 讲师
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时ID"
// @Param   attachmentId path int true "附件ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "附件不存在"
// @Router /api/instructor/lessons/{id}/attachments/{attachmentId} [delete]
func (c *AttachmentController) DeleteAttachment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	attachmentID, ok := pathID(ctx, "attachmentId")
	if !ok {
		return
	}
	if err := c.AttachmentService.Delete(ctx.Request.Context(), actor, id, attachmentID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Attachment deleted", nil)
}
