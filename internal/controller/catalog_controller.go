package controller

import (
	"english_virtual_lab/internal/catalog"
	"english_virtual_lab/internal/model"
	"english_virtual_lab/internal/util"

	"github.com/gin-gonic/gin"
)

type CatalogController struct {
	Catalog *catalog.Catalog
}

func NewCatalogController(c *catalog.Catalog) *CatalogController {
	return &CatalogController{Catalog: c}
}

// List godoc
// @Summary 内容列表
// @Description 按分类过滤文章或视频，category 为空或 All 时返回全部
// @Tags 内容
// @Produce json
// @Param type path string true "article 或 video"
// @Param category query string false "分类"
// @Success 200 {object} util.Response{data=[]catalog.Item}
// @Failure 400 {object} util.Response
// @Router /api/catalog/{type} [get]
func (c *CatalogController) List(ctx *gin.Context) {
	ct, err := model.ParseContentType(ctx.Param("type"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	items := c.Catalog.List(ct, ctx.Query("category"))
	if items == nil {
		items = []catalog.Item{}
	}
	util.Success(ctx, items)
}

// Categories godoc
// @Summary 内容分类
// @Tags 内容
// @Produce json
// @Param type path string true "article 或 video"
// @Success 200 {object} util.Response{data=[]string}
// @Router /api/catalog/{type}/categories [get]
func (c *CatalogController) Categories(ctx *gin.Context) {
	ct, err := model.ParseContentType(ctx.Param("type"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, c.Catalog.Categories(ct))
}
