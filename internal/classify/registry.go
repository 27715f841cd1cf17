package classify

import (
	"fmt"
	"strings"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"

	"github.com/google/uuid"
)

// DefaultCategories 内置分类模板，运行期间从不修改
var DefaultCategories = []domain.Category{
	{ID: domain.AllCategoryID, Name: "全部分类"},
	{ID: "web", Name: "Web应用", Keywords: []string{"web", "frontend", "react", "vue", "angular", "website", "browser"}},
	{ID: "mobile", Name: "移动应用", Keywords: []string{"mobile", "android", "ios", "flutter", "react-native", "swift", "kotlin"}},
	{ID: "desktop", Name: "桌面应用", Keywords: []string{"desktop", "electron", "gui", "tauri", "qt", "gtk"}},
	{ID: "database", Name: "数据库", Keywords: []string{"database", "sql", "nosql", "mongodb", "postgres", "redis", "storage"}},
	{ID: "ai", Name: "AI/机器学习", Keywords: []string{"ai", "machine learning", "deep learning", "llm", "neural", "nlp", "gpt"}},
	{ID: "devtools", Name: "开发工具", Keywords: []string{"tool", "cli", "devtools", "ide", "editor", "debug", "build"}},
	{ID: "security", Name: "安全工具", Keywords: []string{"security", "pentest", "vulnerability", "encryption", "auth"}},
	{ID: "game", Name: "游戏", Keywords: []string{"game", "gaming", "engine", "unity", "godot"}},
	{ID: "design", Name: "设计工具", Keywords: []string{"design", "ui", "icon", "figma", "color"}},
	{ID: "productivity", Name: "效率工具", Keywords: []string{"productivity", "note", "todo", "markdown", "automation"}},
	{ID: "education", Name: "教育学习", Keywords: []string{"tutorial", "learning", "course", "awesome", "interview", "book"}},
	{ID: "network", Name: "网络工具", Keywords: []string{"proxy", "network", "vpn", "http", "dns", "download"}},
}

// Registry 把内置分类与用户自定义分类叠加起来；内置表本身不可变
type Registry struct {
	builtins []domain.Category
	customs  []domain.Category
	newID    func() string
}

// NewRegistry 用内置模板和已持久化的自定义分类创建注册表
func NewRegistry(builtins, customs []domain.Category) *Registry {
	r := &Registry{
		builtins: cloneCategories(builtins),
		customs:  cloneCategories(customs),
		newID:    func() string { return "custom-" + uuid.NewString() },
	}
	return r
}

// Resolve 返回读取时的分类视图：被改名的内置分类由对应的自定义分类原位替换
func (r *Registry) Resolve() []domain.Category {
	replaced := make(map[string]domain.Category)
	var extra []domain.Category
	for _, c := range r.customs {
		if c.HiddenBuiltinID != "" {
			replaced[c.HiddenBuiltinID] = c
			continue
		}
		extra = append(extra, c)
	}

	out := make([]domain.Category, 0, len(r.builtins)+len(extra))
	for _, b := range r.builtins {
		if c, ok := replaced[b.ID]; ok {
			out = append(out, cloneCategory(c))
			continue
		}
		out = append(out, cloneCategory(b))
	}
	for _, c := range extra {
		out = append(out, cloneCategory(c))
	}
	return out
}

// Customs 返回需要持久化的自定义层
func (r *Registry) Customs() []domain.Category {
	return cloneCategories(r.customs)
}

// Find 在解析后的视图中按 ID 查找
func (r *Registry) Find(id string) (domain.Category, bool) {
	for _, c := range r.Resolve() {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Category{}, false
}

// Add 新建自定义分类
func (r *Registry) Add(name string, keywords []string) (domain.Category, error) {
	if err := ValidateCategory(name); err != nil {
		return domain.Category{}, err
	}
	c := domain.Category{
		ID:       r.newID(),
		Name:     strings.TrimSpace(name),
		Keywords: cleanKeywords(keywords),
		IsCustom: true,
	}
	r.customs = append(r.customs, c)
	return cloneCategory(c), nil
}

// Update 修改分类名称和关键字。对内置分类执行写时复制：
// 生成一个新 ID 的自定义分类，内置模板保持不变
func (r *Registry) Update(id, name string, keywords []string) (domain.Category, error) {
	if err := ValidateCategory(name); err != nil {
		return domain.Category{}, err
	}
	if id == domain.AllCategoryID {
		return domain.Category{}, common.NewError(common.ErrCodeInvalidInput, "“全部分类”不能修改")
	}
	name = strings.TrimSpace(name)

	idx := r.customIndex(id)
	if idx < 0 {
		// 已经改过名的内置分类，继续修改它的副本
		for i := range r.customs {
			if r.customs[i].HiddenBuiltinID == id {
				idx = i
				break
			}
		}
	}
	if idx >= 0 {
		r.customs[idx].Name = name
		if keywords != nil {
			r.customs[idx].Keywords = cleanKeywords(keywords)
		}
		return cloneCategory(r.customs[idx]), nil
	}

	for _, b := range r.builtins {
		if b.ID != id {
			continue
		}
		kws := b.Keywords
		if keywords != nil {
			kws = keywords
		}
		c := domain.Category{
			ID:              r.newID(),
			Name:            name,
			Keywords:        cleanKeywords(kws),
			IsCustom:        true,
			HiddenBuiltinID: b.ID,
		}
		r.customs = append(r.customs, c)
		return cloneCategory(c), nil
	}

	return domain.Category{}, common.WrapError(common.ErrCodeNotFound, "分类不存在", fmt.Errorf("id=%s", id))
}

// Delete 删除自定义分类；只要还有仓库归属于它就拒绝删除。
// 删除一个改名副本会让原内置分类重新出现
func (r *Registry) Delete(id string, repos []domain.Repository) error {
	if id == domain.AllCategoryID {
		return common.NewError(common.ErrCodeInvalidInput, "“全部分类”不能删除")
	}
	idx := r.customIndex(id)
	if idx < 0 {
		for _, b := range r.builtins {
			if b.ID == id {
				return common.NewError(common.ErrCodeInvalidInput, "内置分类不能删除")
			}
		}
		return common.WrapError(common.ErrCodeNotFound, "分类不存在", fmt.Errorf("id=%s", id))
	}

	cat := r.customs[idx]
	n := 0
	for i := range repos {
		if Matches(&repos[i], &cat) {
			n++
		}
	}
	if n > 0 {
		return common.WrapError(common.ErrCodeCategoryInUse,
			fmt.Sprintf("分类“%s”下还有 %d 个仓库", cat.Name, n), nil)
	}

	r.customs = append(r.customs[:idx], r.customs[idx+1:]...)
	return nil
}

func (r *Registry) customIndex(id string) int {
	for i := range r.customs {
		if r.customs[i].ID == id {
			return i
		}
	}
	return -1
}

// ValidateCategory 分类名不能为空
func ValidateCategory(name string) error {
	v := &common.ValidationError{}
	if strings.TrimSpace(name) == "" {
		v.Add("name", "分类名称不能为空")
	}
	return v.OrNil()
}

// NewAssetFilter 校验并创建附件过滤器
func NewAssetFilter(name string, keywords []string) (domain.AssetFilter, error) {
	f := domain.AssetFilter{
		ID:       "filter-" + uuid.NewString(),
		Name:     strings.TrimSpace(name),
		Keywords: cleanKeywords(keywords),
	}
	if err := ValidateAssetFilter(f); err != nil {
		return domain.AssetFilter{}, err
	}
	return f, nil
}

// ValidateAssetFilter 名称和关键字列表都不能为空
func ValidateAssetFilter(f domain.AssetFilter) error {
	v := &common.ValidationError{}
	if strings.TrimSpace(f.Name) == "" {
		v.Add("name", "过滤器名称不能为空")
	}
	if len(cleanKeywords(f.Keywords)) == 0 {
		v.Add("keywords", "至少需要一个关键字")
	}
	return v.OrNil()
}

func cleanKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
	}
	return out
}

func cloneCategory(c domain.Category) domain.Category {
	c.Keywords = append([]string(nil), c.Keywords...)
	return c
}

func cloneCategories(cats []domain.Category) []domain.Category {
	out := make([]domain.Category, 0, len(cats))
	for _, c := range cats {
		out = append(out, cloneCategory(c))
	}
	return out
}
