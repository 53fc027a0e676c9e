package controller

import (
	"english_virtual_lab/internal/service"
	"english_virtual_lab/internal/util"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	DashboardService *service.DashboardService
}

func NewDashboardController(dashboardService *service.DashboardService) *DashboardController {
	return &DashboardController{DashboardService: dashboardService}
}

// GetDashboard godoc
// @Summary 获取学习仪表盘
// @Description 测验次数、平均得分、已完成的文章和视频数量
// @Tags 仪表盘
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Failure 401 {object} util.Response
// @Router /api/dashboard [get]
func (c *DashboardController) GetDashboard(ctx *gin.Context) {
	d, err := c.DashboardService.GetUserDashboard(ctx.Request.Context(), util.ViewerFromContext(ctx))
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	respondOK(ctx, gin.H{"dashboard": d})
}
