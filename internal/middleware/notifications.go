package middleware

import (
	"english_virtual_lab/internal/service"

	"github.com/gin-gonic/gin"
)

// Notifications 为每个请求创建通知收集器，控制器从中取出通知随响应返回
func Notifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		collector := service.NewNotificationCollector()
		c.Request = c.Request.WithContext(service.WithCollector(c.Request.Context(), collector))
		c.Next()
	}
}
