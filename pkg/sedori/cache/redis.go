// Package cache provides a Redis backed report cache and event publisher.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nemonet1337/sedoriKeeper/pkg/sedori"
)

const (
	defaultPrefix  = "sedori"
	defaultTTL     = 10 * time.Minute
	lockTTL        = 30 * time.Second
	scanBatchCount = 100
)

// RedisReportCache caches tax reports in Redis and invalidates them on ledger events
// Redisに確定申告レポートをキャッシュし、帳簿イベントで無効化する
type RedisReportCache struct {
	client *redis.Client
	locker *redislock.Client
	logger *zap.Logger
	prefix string
	ttl    time.Duration
}

var (
	_ sedori.ReportCache    = (*RedisReportCache)(nil)
	_ sedori.ReportLocker   = (*RedisReportCache)(nil)
	_ sedori.EventPublisher = (*RedisReportCache)(nil)
)

// NewRedisReportCache creates a cache on top of an existing client
// 既存のRedisクライアントからキャッシュを作成
func NewRedisReportCache(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisReportCache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisReportCache{
		client: client,
		locker: redislock.New(client),
		logger: logger,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *RedisReportCache) reportKey(year int) string {
	return fmt.Sprintf("%s:report:tax:%d", c.prefix, year)
}

func (c *RedisReportCache) lockKey(year int) string {
	return fmt.Sprintf("%s:lock:report:tax:%d", c.prefix, year)
}

// EventChannel returns the pub/sub channel ledger events are published to
// 帳簿イベントの配信チャンネル名
func (c *RedisReportCache) EventChannel() string {
	return c.prefix + ":events"
}

// GetTaxReport キャッシュ済みレポートを取得
func (c *RedisReportCache) GetTaxReport(ctx context.Context, year int) (*sedori.TaxReport, bool, error) {
	data, err := c.client.Get(ctx, c.reportKey(year)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("レポートキャッシュ取得に失敗しました: %w", err)
	}

	var report sedori.TaxReport
	if err := json.Unmarshal(data, &report); err != nil {
		// 壊れたエントリは削除してミス扱い
		c.client.Del(ctx, c.reportKey(year))
		return nil, false, fmt.Errorf("レポートキャッシュのデコードに失敗しました: %w", err)
	}
	return &report, true, nil
}

// SetTaxReport レポートをTTL付きで保存
func (c *RedisReportCache) SetTaxReport(ctx context.Context, report *sedori.TaxReport) error {
	if report == nil {
		return errors.New("レポートがnilです")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("レポートのエンコードに失敗しました: %w", err)
	}
	if err := c.client.Set(ctx, c.reportKey(report.Year), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("レポートキャッシュ保存に失敗しました: %w", err)
	}
	return nil
}

// LockTaxReport obtains a short-lived lock for building one year's report
// 年次レポート作成用の短期ロックを取得
func (c *RedisReportCache) LockTaxReport(ctx context.Context, year int) (func(), error) {
	lock, err := c.locker.Obtain(ctx, c.lockKey(year), lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 20),
	})
	if err != nil {
		return nil, err
	}
	return func() {
		// ロック解放はリクエストのキャンセルに影響されないようにする
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			c.logger.Warn("レポートロックの解放に失敗しました", zap.Int("year", year), zap.Error(err))
		}
	}, nil
}

// InvalidateYear 指定年のレポートキャッシュを削除
func (c *RedisReportCache) InvalidateYear(ctx context.Context, year int) error {
	if err := c.client.Del(ctx, c.reportKey(year)).Err(); err != nil {
		return fmt.Errorf("レポートキャッシュ削除に失敗しました: %w", err)
	}
	return nil
}

// InvalidateAll すべての年のレポートキャッシュを削除
func (c *RedisReportCache) InvalidateAll(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, c.prefix+":report:tax:*", scanBatchCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("レポートキャッシュ検索に失敗しました: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("レポートキャッシュ削除に失敗しました: %w", err)
	}
	c.logger.Debug("レポートキャッシュを全削除しました", zap.Int("keys", len(keys)))
	return nil
}

// envelope 配信メッセージの形式
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (c *RedisReportCache) publish(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(envelope{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("イベントのエンコードに失敗しました: %w", err)
	}
	if err := c.client.Publish(ctx, c.EventChannel(), data).Err(); err != nil {
		return fmt.Errorf("イベント配信に失敗しました: %w", err)
	}
	return nil
}

// PublishSaleRecorded invalidates the sale year's report and broadcasts the event
// 販売年のレポートを無効化してイベントを配信
func (c *RedisReportCache) PublishSaleRecorded(ctx context.Context, event sedori.SaleRecordedEvent) error {
	if err := c.InvalidateYear(ctx, event.SaleDate.Year()); err != nil {
		return err
	}
	return c.publish(ctx, "sale_recorded", event)
}

// PublishSaleCancelled 販売取消時に販売年のレポートを無効化
func (c *RedisReportCache) PublishSaleCancelled(ctx context.Context, event sedori.SaleCancelledEvent) error {
	if err := c.InvalidateYear(ctx, event.SaleDate.Year()); err != nil {
		return err
	}
	return c.publish(ctx, "sale_cancelled", event)
}

// PublishLedgerChanged invalidates affected reports.
// Transaction changes touch every year that holds one of its sales, so all years are dropped.
// 帳簿変更で影響するレポートを無効化
func (c *RedisReportCache) PublishLedgerChanged(ctx context.Context, event sedori.LedgerChangedEvent) error {
	var err error
	if event.Kind == "transaction" || event.Date.IsZero() {
		err = c.InvalidateAll(ctx)
	} else {
		err = c.InvalidateYear(ctx, event.Date.Year())
	}
	if err != nil {
		return err
	}
	return c.publish(ctx, "ledger_changed", event)
}

// Ping Redis接続を確認
func (c *RedisReportCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close Redis接続を閉じる
func (c *RedisReportCache) Close() error {
	return c.client.Close()
}
