package classify

import (
	"fmt"
	"testing"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(customs []domain.Category) *Registry {
	r := NewRegistry(DefaultCategories, customs)
	n := 0
	r.newID = func() string {
		n++
		return fmt.Sprintf("custom-%d", n)
	}
	return r
}

func TestRegistry_RenameBuiltinIsCopyOnWrite(t *testing.T) {
	r := newTestRegistry(nil)

	renamed, err := r.Update("web", "前端", nil)
	require.NoError(t, err)
	assert.Equal(t, "custom-1", renamed.ID)
	assert.True(t, renamed.IsCustom)
	assert.Equal(t, "web", renamed.HiddenBuiltinID)
	assert.Contains(t, renamed.Keywords, "react")

	// 内置模板未被修改
	assert.Equal(t, "Web应用", DefaultCategories[1].Name)

	resolved := r.Resolve()
	assert.Equal(t, "custom-1", resolved[1].ID)
	assert.Equal(t, "前端", resolved[1].Name)
	_, found := r.Find("web")
	assert.False(t, found)

	// 再次修改内置 ID 时更新已有副本而不是再复制一份
	again, err := r.Update("web", "前端开发", []string{"vue"})
	require.NoError(t, err)
	assert.Equal(t, "custom-1", again.ID)
	assert.Len(t, r.Customs(), 1)

	// 删除副本后内置分类恢复
	require.NoError(t, r.Delete("custom-1", nil))
	restored, found := r.Find("web")
	assert.True(t, found)
	assert.Equal(t, "Web应用", restored.Name)
}

func TestRegistry_AddUpdateDelete(t *testing.T) {
	r := newTestRegistry(nil)

	_, err := r.Add("  ", nil)
	var verr *common.ValidationError
	assert.ErrorAs(t, err, &verr)

	cat, err := r.Add("命令行", []string{"cli", "CLI", " "})
	require.NoError(t, err)
	assert.Equal(t, []string{"cli"}, cat.Keywords)

	updated, err := r.Update(cat.ID, "终端", nil)
	require.NoError(t, err)
	assert.Equal(t, "终端", updated.Name)
	assert.Equal(t, []string{"cli"}, updated.Keywords)

	repos := []domain.Repository{{ID: 1, Name: "fancy-cli"}}
	err = r.Delete(cat.ID, repos)
	assert.ErrorIs(t, err, common.ErrCategoryInUse)

	assert.NoError(t, r.Delete(cat.ID, []domain.Repository{{ID: 2, Name: "other"}}))
	assert.Empty(t, r.Customs())
}

func TestRegistry_Guards(t *testing.T) {
	r := newTestRegistry(nil)

	assert.Error(t, r.Delete(domain.AllCategoryID, nil))
	assert.Error(t, r.Delete("web", nil))
	assert.ErrorIs(t, r.Delete("missing", nil), common.ErrNotFound)

	_, err := r.Update(domain.AllCategoryID, "x", nil)
	assert.Error(t, err)
	_, err = r.Update("missing", "x", nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestNewAssetFilter(t *testing.T) {
	_, err := NewAssetFilter("", nil)
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)

	f, err := NewAssetFilter("Linux", []string{"linux", "AppImage"})
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, []string{"linux", "AppImage"}, f.Keywords)
}
