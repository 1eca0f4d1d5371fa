package cache

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const categoriesKey = "products:categories"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// カテゴリ一覧をRedisに置く。Redisが落ちていても呼び出し側は動く。
type RedisCategoryCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisCategoryCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisCategoryCache {
	return &RedisCategoryCache{client: client, ttl: ttl, log: log}
}

// Get はキャッシュがあれば (値, true)
func (c *RedisCategoryCache) Get(ctx context.Context) ([]string, bool) {
	val, err := c.client.Get(ctx, categoriesKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("categories cache get failed", zap.Error(err))
		}
		return nil, false
	}

	var categories []string
	if err := json.Unmarshal(val, &categories); err != nil {
		c.log.Warn("categories cache decode failed", zap.Error(err))
		return nil, false
	}
	return categories, true
}

func (c *RedisCategoryCache) Set(ctx context.Context, categories []string) {
	data, err := json.Marshal(categories)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, categoriesKey, data, c.ttl).Err(); err != nil {
		c.log.Warn("categories cache set failed", zap.Error(err))
	}
}

// 商品の作成・更新・削除で呼ぶ
func (c *RedisCategoryCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, categoriesKey).Err(); err != nil {
		c.log.Warn("categories cache invalidate failed", zap.Error(err))
	}
}

// Redis未設定のとき
type NopCategoryCache struct{}

func (NopCategoryCache) Get(context.Context) ([]string, bool) { return nil, false }
func (NopCategoryCache) Set(context.Context, []string)       {}
func (NopCategoryCache) Invalidate(context.Context)          {}
