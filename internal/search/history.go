package search

import (
	"strings"
	"sync"
)

// MaxHistory 搜索历史最多保留条数
const MaxHistory = 10

// History 是最近使用的查询，最新的在前，不重复
type History struct {
	mu    sync.Mutex
	items []string
}

func NewHistory(items []string) *History {
	h := &History{}
	for i := len(items) - 1; i >= 0; i-- {
		h.Add(items[i])
	}
	return h
}

// Add 把查询移到最前面；空白查询忽略
func (h *History) Add(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	items := make([]string, 0, MaxHistory)
	items = append(items, query)
	for _, q := range h.items {
		if q != query && len(items) < MaxHistory {
			items = append(items, q)
		}
	}
	h.items = items
}

func (h *History) Remove(query string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := h.items[:0]
	for _, q := range h.items {
		if q != query {
			out = append(out, q)
		}
	}
	h.items = out
}

// Items 返回副本
func (h *History) Items() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, len(h.items))
	copy(out, h.items)
	return out
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = nil
}
