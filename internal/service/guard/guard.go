// Package guard 提供会话级提交互斥
// 同一会话同一时刻只处理一条参与者消息，后到的提交直接拒绝
package guard

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ashwinyue/mnemosyne/internal/apperr"
	"github.com/redis/go-redis/v9"
)

// Redis key 前缀
const lockKeyPrefix = "turn_lock:"

// Guard 会话提交守卫
// 进程内用内存表互斥；配置了 Redis 时再加一层 SETNX 锁，
// 使多实例部署下的互斥仍然成立。Redis 不可用时退化为进程内互斥
type Guard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
	redis    *redis.Client
	ttl      time.Duration
}

// NewGuard 创建提交守卫
// ttl 限制锁的最长持有时间，进程崩溃后锁随之过期
func NewGuard(redisClient *redis.Client, ttl time.Duration) *Guard {
	return &Guard{
		inflight: make(map[string]struct{}),
		redis:    redisClient,
		ttl:      ttl,
	}
}

// Acquire 获取会话的提交权
// 成功时返回释放函数；会话已有在途消息时返回 apperr.ErrSessionBusy
func (g *Guard) Acquire(ctx context.Context, sessionID string) (func(), error) {
	g.mu.Lock()
	if _, busy := g.inflight[sessionID]; busy {
		g.mu.Unlock()
		return nil, apperr.ErrSessionBusy
	}
	g.inflight[sessionID] = struct{}{}
	g.mu.Unlock()

	if g.redis != nil {
		key := lockKeyPrefix + sessionID
		ok, err := g.redis.SetNX(ctx, key, "1", g.ttl).Result()
		if err != nil {
			// Redis 故障不阻塞提交，进程内互斥仍然有效
			log.Printf("Warning: failed to acquire redis lock for session %s: %v", sessionID, err)
		} else if !ok {
			g.release(ctx, sessionID, false)
			return nil, apperr.ErrSessionBusy
		}
	}

	return func() { g.release(ctx, sessionID, true) }, nil
}

// release 释放会话的提交权
func (g *Guard) release(ctx context.Context, sessionID string, unlockRedis bool) {
	g.mu.Lock()
	delete(g.inflight, sessionID)
	g.mu.Unlock()

	if unlockRedis && g.redis != nil {
		key := lockKeyPrefix + sessionID
		if err := g.redis.Del(ctx, key).Err(); err != nil {
			log.Printf("Warning: failed to release redis lock for session %s: %v", sessionID, err)
		}
	}
}
