package controller

import (
	"english_virtual_lab/internal/model"
	"english_virtual_lab/internal/service"
	"english_virtual_lab/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// notificationsOf 取出本次请求产生的通知
func notificationsOf(ctx *gin.Context) []service.Notification {
	if c := service.CollectorFrom(ctx.Request.Context()); c != nil {
		if items := c.Notifications(); items != nil {
			return items
		}
	}
	return []service.Notification{}
}

func respondOK(ctx *gin.Context, data gin.H) {
	data["notifications"] = notificationsOf(ctx)
	util.Success(ctx, data)
}

// respondError 将业务错误映射为状态码，返回给用户的信息不包含底层错误细节
func respondError(ctx *gin.Context, err error, data gin.H) {
	status, message := statusOf(err)
	if status == http.StatusInternalServerError {
		util.LogInternalError(ctx, err)
		return
	}
	if data == nil {
		data = gin.H{}
	}
	data["notifications"] = notificationsOf(ctx)
	util.ErrorWithData(ctx, status, message, data)
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, util.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, util.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, util.ErrContentNotFound),
		errors.Is(err, util.ErrNoActiveAttempt):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, util.ErrEmailRegistered),
		errors.Is(err, util.ErrInvalidTransition):
		return http.StatusConflict, err.Error()
	case errors.Is(err, util.ErrQuizIncomplete):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, util.ErrPasswordTooShort),
		errors.Is(err, util.ErrPasswordMismatch),
		errors.Is(err, util.ErrQuestionOutOfRange),
		errors.Is(err, util.ErrOptionOutOfRange),
		errors.Is(err, model.ErrInvalidRecord):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrQuizSessionLost):
		return http.StatusServiceUnavailable, service.ErrQuizSessionLost.Error()
	case errors.Is(err, util.ErrProgressNotSaved):
		return http.StatusServiceUnavailable, util.ErrProgressNotSaved.Error()
	case errors.Is(err, util.ErrQuizNotSubmitted):
		return http.StatusServiceUnavailable, util.ErrQuizNotSubmitted.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}
