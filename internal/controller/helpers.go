package controller

import (
	"learnsphere_backend/internal/service"
	"learnsphere_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// currentActor 从 JWT 中取出当前用户，未登录时直接写出 401
func currentActor(ctx *gin.Context) (service.Actor, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return service.Actor{}, false
	}
	return service.Actor{UserID: user.UserID, Role: user.Role}, true
}

// pageParams 分页参数，limit 限制在 [1, MaxPageLimit]
func pageParams(ctx *gin.Context) (page, limit int) {
	page = util.QueryInt(ctx, "page", 1)
	if page < 1 {
		page = 1
	}
	limit = util.QueryInt(ctx, "limit", util.DefaultPageLimit)
	if limit < 1 {
		limit = util.DefaultPageLimit
	}
	if limit > util.MaxPageLimit {
		limit = util.MaxPageLimit
	}
	return page, limit
}

// pathID 解析路径中的 ID，非法时写出 400
func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := util.ParamID(ctx, name)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return 0, false
	}
	return id, true
}
