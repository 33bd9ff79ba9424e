// Package archive webhook 原始报文归档
//
// 对账只依赖数据库里的支付记录，归档不在热路径上：
// 保留最近若干条原始报文到 Redis，用于事后回放和审计。
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"confreg/pkg/config"
	"confreg/pkg/logger"
	"confreg/pkg/redis"
)

// Entry 一条归档报文
type Entry struct {
	EventID    string    `json:"event_id"`
	Payload    string    `json:"payload"`
	ReceivedAt time.Time `json:"received_at"`
}

// Service Redis 归档服务
type Service struct {
	client     *redis.RedisClient
	prefix     string
	maxEntries int64
}

// NewService 创建归档服务
func NewService() *Service {
	return &Service{
		client:     redis.GetRedis(redis.ArchiveDB),
		prefix:     config.GetString("redis.archive_prefix", "confreg:webhook"),
		maxEntries: int64(config.GetInt("redis.archive_max_entries", 10000)),
	}
}

// NewServiceWithClient 基于指定客户端创建归档服务，测试使用
func NewServiceWithClient(client *redis.RedisClient, prefix string, maxEntries int64) *Service {
	return &Service{
		client:     client,
		prefix:     prefix,
		maxEntries: maxEntries,
	}
}

// Store 归档一条原始报文
//
// 归档失败只记日志，绝不影响 webhook 的处理与应答。
func (s *Service) Store(ctx context.Context, eventID string, payload []byte) {
	entry := Entry{
		EventID:    eventID,
		Payload:    string(payload),
		ReceivedAt: time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		logger.ErrorString("归档", "序列化", err.Error())
		return
	}

	key := fmt.Sprintf("%s:events", s.prefix)
	pipe := s.client.Client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, s.maxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.ErrorString("归档", "写入", err.Error())
	}
}

// Recent 取最近 n 条归档报文
func (s *Service) Recent(ctx context.Context, n int64) ([]Entry, error) {
	key := fmt.Sprintf("%s:events", s.prefix)
	raws, err := s.client.Client.LRange(ctx, key, 0, n-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			logger.WarnString("归档", "反序列化", err.Error())
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
