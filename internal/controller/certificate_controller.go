package controller

import (
	"learnsphere_backend/internal/service"
	"learnsphere_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	CertificateService *service.CertificateService
}

func NewCertificateController(certificateService *service.CertificateService) *CertificateController {
	return &CertificateController{CertificateService: certificateService}
}

// ListCertificates godoc
// @Summary 我的证书
// @Tags 证书
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Certificate}
// @Router /api/learner/certificates [get]
func (c *CertificateController) ListCertificates(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	certs, err := c.CertificateService.List(ctx.Request.Context(), actor.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, certs)
}

// GetCertificate godoc
// @Summary 证书详情
// @Tags 证书
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "证书ID"
// @Success 200 {object} util.Response{data=model.Certificate}
// @Failure 404 {object} util.Response "证书不存在"
// @Router /api/learner/certificates/{id} [get]
func (c *CertificateController) GetCertificate(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	cert, err := c.CertificateService.Get(ctx.Request.Context(), actor.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, cert)
}

// DownloadCertificate godoc
// @Summary 下载证书
// @Description 标记为已下载并返回证书文档地址
// @Tags 证书
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "证书ID"
// @Success 200 {object} util.Response{data=service.CertificateDownload}
// @Failure 404 {object} util.Response "证书不存在"
// @Router /api/learner/certificates/{id}/download [put]
func (c *CertificateController) DownloadCertificate(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	result, err := c.CertificateService.MarkDownloaded(ctx.Request.Context(), actor.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
