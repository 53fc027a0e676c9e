package util

import (
	"english_virtual_lab/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构。data 中可能带有 notifications（提示消息列表）
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

// ErrorWithData 错误响应同时携带数据（如需要展示给用户的通知）
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func Unauthorized(c *gin.Context) {
	ErrorWithData(c, http.StatusUnauthorized, "Unauthorized", nil)
}

func BadRequest(c *gin.Context, message string) {
	ErrorWithData(c, http.StatusBadRequest, message, nil)
}

func ServiceUnavailable(c *gin.Context, message string) {
	ErrorWithData(c, http.StatusServiceUnavailable, message, nil)
}

func InternalServerError(c *gin.Context) {
	ErrorWithData(c, http.StatusInternalServerError, "Internal server error", nil)
}

// LogInternalError 记录真实错误，对外只返回通用信息
func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	InternalServerError(c)
}
