package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"elevtinget/backend/internal/model"
	"elevtinget/backend/pkg/redis"
)

const (
	caseListGenKey    = "cases:list:gen"
	caseListKeyPrefix = "cases:list:"
)

// listCacheStore 列表缓存所需的 Redis 操作，*redis.Client 实现该接口
type listCacheStore interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Generation(ctx context.Context, key string) (int64, error)
	BumpGeneration(ctx context.Context, key string) error
}

// caseListCache 案件列表缓存
// 只缓存与当前时间无关的过滤结果；任一写操作递增代数使全部旧缓存失效。
// store 为 nil 时所有操作为空操作。
type caseListCache struct {
	store  listCacheStore
	ttl    time.Duration
	logger *zap.Logger
}

func newCaseListCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *caseListCache {
	c := &caseListCache{ttl: ttl, logger: logger}
	if rdb != nil && ttl > 0 {
		c.store = rdb
	}
	return c
}

func (c *caseListCache) key(ctx context.Context, filter model.CaseFilter) (string, error) {
	gen, err := c.store.Generation(ctx, caseListGenKey)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d:%s", caseListKeyPrefix, gen, filter), nil
}

// get 命中返回 true；缓存故障按未命中处理。
// 未命中时返回本次读取代数下的 key，调用方查库后必须用该 key 回填，
// 查询期间发生的失效会使这次回填落在旧代数下而不再被读取。
func (c *caseListCache) get(ctx context.Context, filter model.CaseFilter) ([]model.Case, string, bool) {
	if c.store == nil || filter.TimeDependent() {
		return nil, "", false
	}
	key, err := c.key(ctx, filter)
	if err != nil {
		c.logger.Warn("读取列表缓存代数失败", zap.Error(err))
		return nil, "", false
	}
	b, err := c.store.GetBytes(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			c.logger.Warn("读取列表缓存失败", zap.String("key", key), zap.Error(err))
		}
		return nil, key, false
	}
	var cases []model.Case
	if err := json.Unmarshal(b, &cases); err != nil {
		c.logger.Warn("列表缓存内容损坏", zap.String("key", key), zap.Error(err))
		return nil, key, false
	}
	return cases, key, true
}

// put 按 get 返回的 key 回填；key 为空表示不可缓存
func (c *caseListCache) put(ctx context.Context, key string, cases []model.Case) {
	if c.store == nil || key == "" {
		return
	}
	b, err := json.Marshal(cases)
	if err != nil {
		return
	}
	if err := c.store.SetBytes(ctx, key, b, c.ttl); err != nil {
		c.logger.Warn("写入列表缓存失败", zap.String("key", key), zap.Error(err))
	}
}

// invalidate 使全部列表缓存失效
func (c *caseListCache) invalidate(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.BumpGeneration(ctx, caseListGenKey); err != nil {
		c.logger.Warn("列表缓存失效失败", zap.Error(err))
	}
}
