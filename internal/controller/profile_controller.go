package controller

import (
	"english_virtual_lab/internal/service"
	"english_virtual_lab/internal/util"

	"github.com/gin-gonic/gin"
)

type ProfileController struct {
	ProfileService *service.ProfileService
}

func NewProfileController(profileService *service.ProfileService) *ProfileController {
	return &ProfileController{ProfileService: profileService}
}

// UpdateProfileRequest swagger:model UpdateProfileRequest
type UpdateProfileRequest struct {
	FullName string `json:"fullName" binding:"max=255"`
}

// ChangePasswordRequest 长度和一致性在服务层校验，以便返回用户提示
// swagger:model ChangePasswordRequest
type ChangePasswordRequest struct {
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Get godoc
// @Summary 个人资料
// @Description 包含最近5次测验结果；读取失败时返回默认资料和通知
// @Tags 用户
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/profile [get]
func (c *ProfileController) Get(ctx *gin.Context) {
	view, err := c.ProfileService.Get(ctx.Request.Context(), util.ViewerFromContext(ctx))
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	respondOK(ctx, gin.H{"profile": view})
}

// Update godoc
// @Summary 更新资料
// @Tags 用户
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body UpdateProfileRequest true "姓名"
// @Success 200 {object} util.Response{data=object}
// @Router /api/profile [put]
func (c *ProfileController) Update(ctx *gin.Context) {
	var req UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.ProfileService.UpdateFullName(ctx.Request.Context(), util.ViewerFromContext(ctx), req.FullName); err != nil {
		respondError(ctx, err, nil)
		return
	}
	respondOK(ctx, gin.H{})
}

// ChangePassword godoc
// @Summary 修改密码
// @Tags 用户
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body ChangePasswordRequest true "新密码"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "密码太短或不一致"
// @Router /api/profile/password [put]
func (c *ProfileController) ChangePassword(ctx *gin.Context) {
	var req ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	err := c.ProfileService.ChangePassword(ctx.Request.Context(), util.ViewerFromContext(ctx), req.NewPassword, req.ConfirmPassword)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	respondOK(ctx, gin.H{})
}
