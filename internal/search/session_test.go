package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 20 * time.Millisecond

func newTestSession() (*Session, chan string) {
	fired := make(chan string, 10)
	return NewSession(testDebounce, nil, func(q string) { fired <- q }), fired
}

func expectNone(t *testing.T, fired chan string) {
	t.Helper()
	select {
	case q := <-fired:
		t.Fatalf("不应触发实时匹配, got %q", q)
	case <-time.After(5 * testDebounce):
	}
}

func expectFired(t *testing.T, fired chan string) string {
	t.Helper()
	select {
	case q := <-fired:
		return q
	case <-time.After(time.Second):
		t.Fatal("等待实时匹配超时")
		return ""
	}
}

func TestSession_Debounce(t *testing.T) {
	s, fired := newTestSession()

	s.Input("v")
	s.Input("vs")
	s.Input("vsc")
	assert.Equal(t, StateRealtime, s.State())

	assert.Equal(t, "vsc", expectFired(t, fired))
	expectNone(t, fired)
}

func TestSession_Composition(t *testing.T) {
	s, fired := newTestSession()

	s.CompositionStart()
	s.Input("bian")
	s.Input("bianji")
	assert.Equal(t, StateComposing, s.State())
	expectNone(t, fired)

	s.CompositionEnd("编辑")
	assert.Equal(t, StateRealtime, s.State())
	assert.Equal(t, "编辑", expectFired(t, fired))
}

func TestSession_CompositionCancelsPending(t *testing.T) {
	s, fired := newTestSession()

	s.Input("a")
	s.CompositionStart()
	expectNone(t, fired)
}

func TestSession_Submit(t *testing.T) {
	s, fired := newTestSession()

	s.Input("machine learning")
	q, ok := s.Submit()
	require.True(t, ok)
	assert.Equal(t, "machine learning", q)
	assert.Equal(t, StateDeep, s.State())
	assert.Equal(t, []string{"machine learning"}, s.History().Items())

	// 提交会取消尚未触发的实时匹配
	expectNone(t, fired)
}

func TestSession_ClearAndEmpty(t *testing.T) {
	s, fired := newTestSession()

	s.Input("abc")
	s.Input("")
	assert.Equal(t, StateIdle, s.State())
	expectNone(t, fired)

	s.Input("abc")
	s.Clear()
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, "", s.Query())

	_, ok := s.Submit()
	assert.False(t, ok)
	assert.Equal(t, StateIdle, s.State())
}

func TestHistory(t *testing.T) {
	h := NewHistory([]string{"b", "a"})
	assert.Equal(t, []string{"b", "a"}, h.Items())

	h.Add("a")
	assert.Equal(t, []string{"a", "b"}, h.Items())

	h.Add("  ")
	assert.Len(t, h.Items(), 2)

	for i := 0; i < 15; i++ {
		h.Add(string(rune('c' + i)))
	}
	items := h.Items()
	assert.Len(t, items, MaxHistory)
	assert.Equal(t, "q", items[0])

	h.Remove("q")
	assert.Equal(t, "p", h.Items()[0])

	h.Clear()
	assert.Empty(t, h.Items())
}
