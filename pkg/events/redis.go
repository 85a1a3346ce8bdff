package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medipoint/loyalty-wallet/pkg/config"
	"github.com/medipoint/loyalty-wallet/pkg/logger"
)

const (
	PostingQueue = "gl_posting_jobs"
	FailedQueue  = "failed_gl_posting_jobs"
)

type RedisClient struct {
	Client *redis.Client
}

// PostingJob asks the posting worker to turn one committed wallet
// transaction into its general-ledger entries.
type PostingJob struct {
	WalletTransactionID string    `json:"wallet_transaction_id"`
	TransactionType     string    `json:"transaction_type"`
	HospitalID          string    `json:"hospital_id"`
	Actor               string    `json:"actor"`
	EnqueuedAt          time.Time `json:"enqueued_at"`
}

func NewRedisClient(cfg config.Config) *RedisClient {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("Failed to parse Redis url", logger.Fields{"error": err.Error(), "url": cfg.RedisURL})
		opt = &redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       0,
		}
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Error("Failed to connect to Redis", logger.Fields{"error": err.Error(), "url": cfg.RedisURL})

	} else {
		logger.Info("Connected to Redis", logger.Fields{"url": cfg.RedisURL})
	}

	return &RedisClient{Client: rdb}
}

func (r *RedisClient) PublishPostingJob(ctx context.Context, job PostingJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal posting job: %v", err)
	}

	if err := r.Client.RPush(ctx, PostingQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to push posting job to redis: %v", err)
	}

	return nil
}

func (r *RedisClient) PushToDLQ(ctx context.Context, data []byte) error {
	if err := r.Client.RPush(ctx, FailedQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to push posting job to DLQ: %v", err)
	}
	return nil
}
