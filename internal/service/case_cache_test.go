package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elevtinget/backend/internal/dto"
	"elevtinget/backend/internal/model"
)

func TestCaseListCache_Disabled(t *testing.T) {
	c := newCaseListCache(nil, 0, newTestLogger(t))
	ctx := context.Background()

	_, key, ok := c.get(ctx, model.FilterAll)
	assert.False(t, ok)
	assert.Empty(t, key)
	c.put(ctx, key, []model.Case{{CaseID: "a"}})
	c.invalidate(ctx)
}

func TestCaseListCache_SkipsTimeDependentFilters(t *testing.T) {
	store := newMemoryStore()
	c := &caseListCache{store: store, ttl: 1, logger: newTestLogger(t)}
	ctx := context.Background()

	_, key, ok := c.get(ctx, model.FilterActive)
	assert.False(t, ok)
	assert.Empty(t, key, "时间相关的过滤不应生成缓存 key")
	c.put(ctx, key, []model.Case{{CaseID: "a"}})
	assert.Equal(t, 0, store.sets)
}

func TestCaseListCache_InvalidateBumpsGeneration(t *testing.T) {
	store := newMemoryStore()
	c := &caseListCache{store: store, ttl: 1, logger: newTestLogger(t)}
	ctx := context.Background()

	_, key, ok := c.get(ctx, model.FilterPending)
	require.False(t, ok)
	c.put(ctx, key, []model.Case{{CaseID: "a"}})
	cached, _, ok := c.get(ctx, model.FilterPending)
	require.True(t, ok)
	assert.Equal(t, "a", cached[0].CaseID)

	c.invalidate(ctx)
	_, _, ok = c.get(ctx, model.FilterPending)
	assert.False(t, ok, "代数递增后旧缓存失效")
}

func TestCaseListCache_InvalidateDuringQuery(t *testing.T) {
	store := newMemoryStore()
	c := &caseListCache{store: store, ttl: 1, logger: newTestLogger(t)}
	ctx := context.Background()

	// 读者未命中后查库，期间写操作提交并使缓存失效
	_, key, ok := c.get(ctx, model.FilterPending)
	require.False(t, ok)
	c.invalidate(ctx)
	c.put(ctx, key, []model.Case{{CaseID: "old"}})

	_, _, ok = c.get(ctx, model.FilterPending)
	assert.False(t, ok, "失效前读到的旧结果不应在新代数下命中")
}

func TestCaseService_ListUsesCache(t *testing.T) {
	f := setupTestCaseService(t)
	f.svc.cache = &caseListCache{store: newMemoryStore(), ttl: 1, logger: newTestLogger(t)}
	ctx := context.Background()

	f.createCase(t, nil)
	for i := 0; i < 2; i++ {
		list, err := f.svc.List(ctx, "pending", testCaller)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	}
	assert.Equal(t, 1, f.m.cases.listCalls, "第二次查询应命中缓存")

	// 写操作使缓存失效
	f.createCase(t, func(r *dto.CreateCaseRequest) { r.Name = "Per" })
	list, err := f.svc.List(ctx, "pending", testCaller)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, f.m.cases.listCalls)
}
