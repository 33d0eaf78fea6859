// Package handler 实现 HTTP API 处理器
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ashwinyue/mnemosyne/internal/apperr"
	"github.com/ashwinyue/mnemosyne/internal/service/search"
	"github.com/gin-gonic/gin"
)

// Response 统一响应
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// success 成功响应
func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// created 创建成功响应
func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "created", Data: data})
}

// badRequest 参数错误响应
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Code: -1, Message: message})
}

// unauthorized 未认证响应
func unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Response{Code: -1, Message: message})
}

// errorResponse 按服务层错误类型映射状态码
// 校验与已结束会话 400，未知资源 404，占用 409，推理失败 502，检索未配置 503
func errorResponse(c *gin.Context, err error) {
	if err == nil {
		return
	}

	if ie, ok := apperr.AsInference(err); ok {
		c.JSON(http.StatusBadGateway, Response{
			Code:    -1,
			Message: ie.Error(),
			Data:    gin.H{"reason": ie.Reason},
		})
		return
	}

	switch {
	case apperr.IsValidation(err) || errors.Is(err, apperr.ErrSessionEnded):
		badRequest(c, err.Error())
	case apperr.IsNotFound(err):
		c.JSON(http.StatusNotFound, Response{Code: -1, Message: err.Error()})
	case errors.Is(err, apperr.ErrSessionBusy):
		c.JSON(http.StatusConflict, Response{Code: -1, Message: err.Error()})
	case errors.Is(err, search.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, Response{Code: -1, Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, Response{Code: -1, Message: err.Error()})
	}
}

// getPagination 获取分页参数
func getPagination(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("size", "20"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return
}
