package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceKeyPrefix = "mes:online:user:"

// PresenceService 用户在线状态，redis键带TTL，过期即离线
type PresenceService struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPresenceService 创建在线状态服务
func NewPresenceService(rdb *redis.Client, ttl time.Duration) *PresenceService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PresenceService{rdb: rdb, ttl: ttl}
}

func presenceKey(userID uint) string {
	return fmt.Sprintf("%s%d", presenceKeyPrefix, userID)
}

// Touch 刷新在线标记，失败不影响主流程
func (s *PresenceService) Touch(ctx context.Context, userID uint) {
	if s.rdb == nil {
		return
	}
	s.rdb.Set(ctx, presenceKey(userID), time.Now().Unix(), s.ttl)
}

// IsOnline 查询是否在线
func (s *PresenceService) IsOnline(ctx context.Context, userID uint) bool {
	if s.rdb == nil {
		return false
	}
	n, err := s.rdb.Exists(ctx, presenceKey(userID)).Result()
	return err == nil && n > 0
}

// OnlineSet 批量查询在线用户
func (s *PresenceService) OnlineSet(ctx context.Context, userIDs []uint) map[uint]bool {
	result := make(map[uint]bool, len(userIDs))
	if s.rdb == nil || len(userIDs) == 0 {
		return result
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, presenceKey(id))
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return result
	}
	for i, v := range values {
		result[userIDs[i]] = v != nil
	}
	return result
}

// Clear 清除在线标记
func (s *PresenceService) Clear(ctx context.Context, userID uint) {
	if s.rdb == nil {
		return
	}
	s.rdb.Del(ctx, presenceKey(userID))
}
