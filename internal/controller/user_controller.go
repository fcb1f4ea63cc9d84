package controller

import (
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/service"
	"learnsphere_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// UserController 管理员的用户管理接口
type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// UpdateRoleRequest 修改用户角色
type UpdateRoleRequest struct {
	Role model.UserRole `json:"role" binding:"required"`
}

// GetUsers godoc
// @Summary 获取用户列表
// @Description 分页获取用户，可按角色筛选
// @Tags 用户管理
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Param   role query string false "角色筛选"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Failure 403 {object} util.Response "无权限"
// @Router /api/admin/users [get]
func (c *UserController) GetUsers(ctx *gin.Context) {
	page, limit := pageParams(ctx)
	users, total, err := c.UserService.List(ctx.Request.Context(), model.UserRole(ctx.Query("role")), page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: users, Total: total, Page: page, Limit: limit})
}

// UpdateRole godoc
// @Summary 修改用户角色
// @Tags 用户管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "用户ID"
// @Param   body body UpdateRoleRequest true "新角色"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 400 {object} util.Response "角色无效"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id}/role [put]
func (c *UserController) UpdateRole(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.UpdateRole(ctx.Request.Context(), id, req.Role)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, user)
}
