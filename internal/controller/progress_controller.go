package controller

import (
	"english_virtual_lab/internal/model"
	"english_virtual_lab/internal/service"
	"english_virtual_lab/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// List godoc
// @Summary 已完成内容
// @Description 打开内容页：重建该类型的进度会话并返回已完成的内容ID，读取失败时返回空列表和通知
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Param type path string true "article 或 video"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response
// @Router /api/progress/{type} [get]
func (c *ProgressController) List(ctx *gin.Context) {
	ct, err := model.ParseContentType(ctx.Param("type"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	ids := c.ProgressService.Mount(ctx.Request.Context(), util.ViewerFromContext(ctx), ct)
	respondOK(ctx, gin.H{"contentType": ct, "completed": ids})
}

// Complete godoc
// @Summary 标记完成
// @Description 匿名用户不记录进度；保存失败时回滚并返回 503
// @Tags 进度
// @Produce json
// @Param type path string true "article 或 video"
// @Param contentId path string true "内容ID"
// @Success 200 {object} util.Response{data=object}
// @Failure 401 {object} util.Response "令牌无效或已过期"
// @Failure 404 {object} util.Response "内容不存在"
// @Failure 503 {object} util.Response "保存失败"
// @Router /api/progress/{type}/{contentId}/complete [post]
func (c *ProgressController) Complete(ctx *gin.Context) {
	ct, err := model.ParseContentType(ctx.Param("type"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	ids, err := c.ProgressService.MarkCompleted(ctx.Request.Context(), util.ViewerFromContext(ctx), ct, ctx.Param("contentId"))
	if err != nil {
		respondError(ctx, err, gin.H{"contentType": ct, "completed": ids})
		return
	}
	respondOK(ctx, gin.H{"contentType": ct, "completed": ids})
}
