package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache 读穿缓存；nil *Cache 直接回源，便于未启用 redis 时复用同一调用路径
type Cache struct {
	RDB    *redis.Client
	Prefix string
	sf     singleflight.Group
}

func New(addr, pass string, db int) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}))
}

func NewWithClient(rdb *redis.Client) *Cache {
	return &Cache{RDB: rdb, Prefix: "library:"}
}

func (c *Cache) key(k string) string { return c.Prefix + k }

// genKey 每次 Invalidate 自增；回源期间被失效过的结果不写回
func (c *Cache) genKey(k string) string { return k + ":gen" }

// genTTL 需长于一次回源耗时
const genTTL = time.Hour

var errStale = errors.New("cache: key invalidated during load")

func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if c == nil {
		return load(ctx)
	}
	k := c.key(key)
	// 先读缓存；redis 异常按未命中处理
	if b, err := c.RDB.Get(ctx, k).Bytes(); err == nil {
		return b, nil
	}
	// single flight 合并回源
	v, err, _ := c.sf.Do(k, func() (any, error) {
		gen, genErr := c.generation(ctx, k)
		b, e := load(ctx)
		if e != nil {
			return nil, e
		}
		if genErr == nil {
			_ = c.setIfGen(ctx, k, gen, b, ttl)
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cache) generation(ctx context.Context, k string) (int64, error) {
	n, err := c.RDB.Get(ctx, c.genKey(k)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// setIfGen WATCH 代数 key，期间有 Invalidate 则 EXEC 失败或直接放弃
func (c *Cache) setIfGen(ctx context.Context, k string, gen int64, b []byte, ttl time.Duration) error {
	gk := c.genKey(k)
	return c.RDB.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, k, b, ttl)
			return nil
		})
		return err
	}, gk)
}

// Invalidate 删除多个 key 并推进代数，失败忽略（TTL 兜底）
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	_, _ = c.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			full := c.key(k)
			p.Del(ctx, full)
			p.Incr(ctx, c.genKey(full))
			p.Expire(ctx, c.genKey(full), genTTL)
		}
		return nil
	})
}

func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.RDB.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.RDB.Close()
}
