package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParamID 读取路径参数中的正整数 ID
func ParamID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, InvalidInputf("invalid %s", name)
	}
	return uint(id), nil
}

// QueryInt 读取整数查询参数，缺失或非法时返回默认值
func QueryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
