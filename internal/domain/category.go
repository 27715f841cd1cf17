package domain

// AllCategoryID 是“全部”伪分类，永远匹配所有仓库
const AllCategoryID = "all"

// Category 是仓库分类；内置分类是只读模板
type Category struct {
	ID       string   `json:"id" gorm:"primaryKey"`
	Name     string   `json:"name"`
	Keywords []string `json:"keywords" gorm:"serializer:json"`
	IsCustom bool     `json:"isCustom"`

	// HiddenBuiltinID 记录被这个自定义分类“改名替换”掉的内置分类
	HiddenBuiltinID string `json:"hiddenBuiltinId,omitempty"`
}

// IsAll 是否为“全部”伪分类
func (c *Category) IsAll() bool {
	return c.ID == AllCategoryID
}

// AssetFilter 是针对 Release 附件文件名的关键字规则
type AssetFilter struct {
	ID       string   `json:"id" gorm:"primaryKey"`
	Name     string   `json:"name"`
	Keywords []string `json:"keywords" gorm:"serializer:json"`
}
