package deliveryqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/onchainpaykit/paykit/app/models"
	"github.com/onchainpaykit/paykit/app/repository"
	"github.com/onchainpaykit/paykit/internal/pkg/webhook"
)

const (
	// Redis keys
	JobKeyPrefix = "webhook_job:"
	JobQueueKey  = "webhook_queue"

	// Job settings
	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour
)

// Job is one queued webhook notification.
type Job struct {
	ID         string    `json:"id"`
	MerchantID string    `json:"merchant_id"`
	EventType  string    `json:"event_type"`
	Payload    string    `json:"payload"`
	Retries    int       `json:"retries"`
	CreatedAt  time.Time `json:"created_at"`
}

// Queue delivers webhook events asynchronously through Redis-backed
// workers, so a slow merchant endpoint never blocks the request path.
type Queue struct {
	client    *redis.Client
	deliverer *webhook.Deliverer
	repo      repository.WebhookRepository
	workers   int
	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

// NewQueue creates a delivery queue with the given worker count.
func NewQueue(client *redis.Client, deliverer *webhook.Deliverer, repo repository.WebhookRepository, workers int) *Queue {
	if workers <= 0 {
		workers = 3
	}
	return &Queue{
		client:    client,
		deliverer: deliverer,
		repo:      repo,
		workers:   workers,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the delivery workers.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}
	q.running = true
	log.Infof("[DeliveryQueue] Starting %d workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop stops the workers and waits for in-flight deliveries.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
	log.Info("[DeliveryQueue] All workers stopped")
}

// Enqueue queues one webhook notification for a merchant.
func (q *Queue) Enqueue(merchantID, eventType string, payload []byte) (string, error) {
	job := &Job{
		ID:         uuid.NewString(),
		MerchantID: merchantID,
		EventType:  eventType,
		Payload:    string(payload),
		CreatedAt:  time.Now(),
	}
	return job.ID, q.push(job)
}

func (q *Queue) push(job *Job) error {
	ctx := context.Background()
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err(); err != nil {
		return err
	}
	return q.client.LPush(ctx, JobQueueKey, job.ID).Err()
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		default:
		}

		res, err := q.client.BRPop(ctx, 2*time.Second, JobQueueKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			log.Errorf("[DeliveryQueue] Worker %d: pop error: %v", id, err)
			time.Sleep(time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}

		jobID := res[1]
		job, err := q.loadJob(ctx, jobID)
		if err != nil {
			log.Errorf("[DeliveryQueue] Worker %d: %v", id, err)
			continue
		}
		q.process(job)
	}
}

func (q *Queue) loadJob(ctx context.Context, jobID string) (*Job, error) {
	data, err := q.client.Get(ctx, JobKeyPrefix+jobID).Result()
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return &job, nil
}

func (q *Queue) process(job *Job) {
	config, err := q.repo.GetConfig(job.MerchantID)
	if err != nil {
		log.Warnf("[DeliveryQueue] No webhook config for merchant %s, dropping job %s", job.MerchantID, job.ID)
		return
	}
	if !config.IsSubscribed(job.EventType) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	event := q.deliverer.Deliver(ctx, config, job.EventType, []byte(job.Payload))
	if event.Outcome == models.DeliveryOutcomeDelivered {
		return
	}

	if job.Retries >= DefaultMaxRetries {
		log.Warnf("[DeliveryQueue] Job %s exhausted %d retries (outcome=%s)", job.ID, job.Retries, event.Outcome)
		return
	}
	job.Retries++
	if err := q.push(job); err != nil {
		log.Errorf("[DeliveryQueue] Failed to requeue job %s: %v", job.ID, err)
	}
}
