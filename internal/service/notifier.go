package service

import (
	"context"
	"encoding/json"
	"fmt"
	"learnsphere_backend/pkg/logger"
	"learnsphere_backend/pkg/monitoring"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	NotifyCertificateIssued = "certificate_issued"
	NotifyBadgeEarned       = "badge_earned"
	NotifyLevelUp           = "level_up"
)

type Notification struct {
	Type      string      `json:"type"`
	UserID    uint        `json:"userId"`
	Payload   interface{} `json:"payload,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Notifier 通知只做尽力投递，失败不影响主流程
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, n Notification) error { return nil }

// RedisNotifier 通过 Redis pub/sub 推送，并保留每个用户最近的通知
type RedisNotifier struct {
	Client  *redis.Client
	Keep    int64
	Timeout time.Duration
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{Client: client, Keep: 50, Timeout: 2 * time.Second}
}

func NotificationChannel(userID uint) string {
	return fmt.Sprintf("learnsphere:notifications:%d", userID)
}

func (r *RedisNotifier) Notify(ctx context.Context, n Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	channel := NotificationChannel(n.UserID)
	pipe := r.Client.TxPipeline()
	pipe.Publish(ctx, channel, body)
	pipe.LPush(ctx, channel+":recent", body)
	pipe.LTrim(ctx, channel+":recent", 0, r.Keep-1)
	_, err = pipe.Exec(ctx)
	return err
}

// notify 投递失败只记录日志
func notify(ctx context.Context, n Notifier, msg Notification) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, msg); err != nil {
		monitoring.NotificationFailures.Inc()
		logger.Log.Warn("Failed to deliver notification",
			zap.String("type", msg.Type),
			zap.Uint("user_id", msg.UserID),
			zap.Error(err),
		)
	}
}
