// Package catalog holds the static article and video catalogs shown to
// learners. Content ids are stable and are what progress records point at.
package catalog

import (
	_ "embed"
	"english_virtual_lab/internal/model"
	"fmt"

	"gopkg.in/yaml.v3"
)

// AllCategories 不过滤分类
const AllCategories = "All"

//go:embed catalog.yaml
var embedded []byte

type Item struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Level       string `yaml:"level" json:"level"`
	Duration    string `yaml:"duration" json:"duration"`
	Category    string `yaml:"category" json:"category"`
	URL         string `yaml:"url" json:"url,omitempty"`
	EmbedID     string `yaml:"embed_id" json:"embedId,omitempty"`
	Thumbnail   string `yaml:"-" json:"thumbnail,omitempty"`
}

type section struct {
	Categories []string `yaml:"categories"`
	Items      []Item   `yaml:"items"`
}

type Catalog struct {
	sections map[model.ContentType]*section
	index    map[model.ContentType]map[string]*Item
}

// Load 解析内嵌的目录文件
func Load() (*Catalog, error) {
	return Parse(embedded)
}

func Parse(data []byte) (*Catalog, error) {
	var raw struct {
		Articles section `yaml:"articles"`
		Videos   section `yaml:"videos"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		sections: map[model.ContentType]*section{
			model.ContentArticle: &raw.Articles,
			model.ContentVideo:   &raw.Videos,
		},
		index: make(map[model.ContentType]map[string]*Item),
	}
	for ct, sec := range c.sections {
		idx := make(map[string]*Item, len(sec.Items))
		for i := range sec.Items {
			item := &sec.Items[i]
			if item.ID == "" {
				return nil, fmt.Errorf("catalog %s: item %d has no id", ct, i)
			}
			if _, dup := idx[item.ID]; dup {
				return nil, fmt.Errorf("catalog %s: duplicate id %q", ct, item.ID)
			}
			if item.EmbedID != "" {
				item.Thumbnail = "https://img.youtube.com/vi/" + item.EmbedID + "/0.jpg"
			}
			idx[item.ID] = item
		}
		c.index[ct] = idx
	}
	return c, nil
}

// List 返回某类内容，category 为空或 "All" 时不过滤
func (c *Catalog) List(ct model.ContentType, category string) []Item {
	sec, ok := c.sections[ct]
	if !ok {
		return nil
	}
	if category == "" || category == AllCategories {
		return append([]Item(nil), sec.Items...)
	}
	var out []Item
	for _, item := range sec.Items {
		if item.Category == category {
			out = append(out, item)
		}
	}
	return out
}

// Categories 返回带 "All" 前缀的分类列表
func (c *Catalog) Categories(ct model.ContentType) []string {
	sec, ok := c.sections[ct]
	if !ok {
		return nil
	}
	return append([]string{AllCategories}, sec.Categories...)
}

func (c *Catalog) Get(ct model.ContentType, id string) (*Item, bool) {
	item, ok := c.index[ct][id]
	return item, ok
}

func (c *Catalog) Has(ct model.ContentType, id string) bool {
	_, ok := c.Get(ct, id)
	return ok
}

// Count 某类内容总数
func (c *Catalog) Count(ct model.ContentType) int {
	return len(c.index[ct])
}
