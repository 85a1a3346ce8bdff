package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/medipoint/loyalty-wallet/pkg/events"
	"github.com/medipoint/loyalty-wallet/pkg/id"
	"github.com/medipoint/loyalty-wallet/pkg/logger"
)

// PostingWorker drains the deferred posting queue. Wallet operations
// commit first and enqueue a job; this worker makes the GL side catch up,
// retrying transient failures and parking bad jobs on the DLQ. Because
// posting is idempotent per wallet transaction, reprocessing a job that
// already succeeded is harmless.
type PostingWorker struct {
	Posting     *PostingService
	RedisClient *events.RedisClient
}

func NewPostingWorker(posting *PostingService, redisClient *events.RedisClient) *PostingWorker {
	return &PostingWorker{Posting: posting, RedisClient: redisClient}
}

func (w *PostingWorker) Start() {
	logger.Info("Starting GL posting worker...")
	go w.processJobs()
}

func (w *PostingWorker) processJobs() {
	for {

		result, err := w.RedisClient.Client.BLPop(context.Background(), 5*time.Second, events.PostingQueue).Result()
		if err != nil {

			continue
		}

		jobData := []byte(result[1])
		var job events.PostingJob
		if err := json.Unmarshal(jobData, &job); err != nil {
			logger.Error("PostingWorker: Failed to unmarshal job", logger.Fields{"error": err.Error(), "data": string(jobData)})
			w.moveToDLQ(jobData)
			continue
		}

		w.handleJob(job, jobData)
	}
}

func (w *PostingWorker) handleJob(job events.PostingJob, rawData []byte) {
	txID, err := id.IsValidUUID(job.WalletTransactionID)
	if err != nil {
		logger.Error("PostingWorker: Invalid wallet transaction id", logger.Fields{"id": job.WalletTransactionID})
		w.moveToDLQ(rawData)
		return
	}

	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		result, err := w.Posting.PostWalletTransaction(context.Background(), txID, job.Actor)
		if err == nil {
			if result.Success {
				logger.Info("PostingWorker: Posted wallet transaction", logger.Fields{
					"wallet_transaction_id": job.WalletTransactionID,
					"type":                  job.TransactionType,
				})
				return
			}

			// account configuration problems won't heal on retry
			logger.Error("PostingWorker: Posting rejected, moving to DLQ", logger.Fields{
				"wallet_transaction_id": job.WalletTransactionID,
				"message":               result.Message,
			})
			w.moveToDLQ(rawData)
			return
		}

		logger.Warn("PostingWorker: Posting failed, retrying", logger.Fields{
			"wallet_transaction_id": job.WalletTransactionID,
			"attempt":               i + 1,
			"error":                 err.Error(),
		})
		time.Sleep(time.Duration(i+1) * time.Second)
	}

	logger.Error("PostingWorker: Max retries exhausted, moving to DLQ", logger.Fields{"wallet_transaction_id": job.WalletTransactionID})
	w.moveToDLQ(rawData)
}

func (w *PostingWorker) moveToDLQ(data []byte) {
	if err := w.RedisClient.PushToDLQ(context.Background(), data); err != nil {
		logger.Error("PostingWorker: Failed to push to DLQ", logger.Fields{"error": err.Error()})
	}
}
