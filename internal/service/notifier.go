package service

import (
	"context"
	"english_virtual_lab/pkg/logger"
	"sync"

	"go.uber.org/zap"
)

type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notification 面向用户的提示消息（toast）
type Notification struct {
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
}

// Notifier 通知出口，调用方不关心返回值
type Notifier interface {
	Notify(ctx context.Context, severity Severity, title, description string)
}

// NotificationCollector 收集单个请求内产生的通知，随响应返回
type NotificationCollector struct {
	mu    sync.Mutex
	items []Notification
}

func NewNotificationCollector() *NotificationCollector {
	return &NotificationCollector{}
}

func (c *NotificationCollector) Notify(_ context.Context, severity Severity, title, description string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, Notification{Severity: severity, Title: title, Description: description})
}

func (c *NotificationCollector) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.items...)
}

type collectorKey struct{}

func WithCollector(ctx context.Context, c *NotificationCollector) context.Context {
	return context.WithValue(ctx, collectorKey{}, c)
}

func CollectorFrom(ctx context.Context) *NotificationCollector {
	c, _ := ctx.Value(collectorKey{}).(*NotificationCollector)
	return c
}

// RequestNotifier 将通知写入请求上下文中的收集器，并记录日志
type RequestNotifier struct{}

func (RequestNotifier) Notify(ctx context.Context, severity Severity, title, description string) {
	fields := []zap.Field{
		zap.String("severity", string(severity)),
		zap.String("title", title),
		zap.String("description", description),
	}
	if severity == SeverityError {
		logger.Log.Warn("user notification", fields...)
	} else {
		logger.Log.Debug("user notification", fields...)
	}

	if c := CollectorFrom(ctx); c != nil {
		c.Notify(ctx, severity, title, description)
	}
}
