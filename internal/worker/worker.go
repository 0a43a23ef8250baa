// Package worker runs background jobs off redis lists. The daily digest
// enqueues one email job per recipient so a failing mailbox never blocks the
// rest of the batch; failed jobs retry with backoff and end up on a dead
// queue after exhausting their attempts.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type JobType string

const (
	JobTypeDigestEmail JobType = "digest_email"
	JobTypeCleanup     JobType = "cleanup"
)

const (
	DefaultQueue = "default"
	RetryQueue   = "retry_queue"
	DeadQueue    = "dead_queue"
)

type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	MaxTries  int             `json:"max_tries"`
	CreatedAt time.Time       `json:"created_at"`
	ProcessAt time.Time       `json:"process_at"`
}

type Handler func(ctx context.Context, job *Job) error

type Worker struct {
	client   *redis.Client
	handlers map[JobType]Handler
	queues   []string
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type Config struct {
	RedisClient  *redis.Client
	Queues       []string
	PollInterval time.Duration
}

func New(cfg Config) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	queues := cfg.Queues
	if len(queues) == 0 {
		queues = []string{DefaultQueue, RetryQueue}
	}
	return &Worker{
		client:   cfg.RedisClient,
		handlers: make(map[JobType]Handler),
		queues:   queues,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (w *Worker) RegisterHandler(jobType JobType, handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

func (w *Worker) Start(concurrency int) {
	log.Printf("starting worker with %d goroutines", concurrency)
	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.loop()
	}
}

func (w *Worker) Stop() {
	log.Println("stopping worker...")
	w.cancel()
	w.wg.Wait()
	log.Println("worker stopped")
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			if err := w.ProcessNext(); err != nil {
				log.Printf("error processing job: %v", err)
				time.Sleep(time.Second)
			}
		}
	}
}

// ProcessNext pops and executes one job; it returns nil on an empty poll.
func (w *Worker) ProcessNext() error {
	result, err := w.client.BLPop(w.ctx, 5*time.Second, w.queues...).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("failed to pop job: %w", err)
	}
	if len(result) < 2 {
		return fmt.Errorf("invalid job result")
	}

	queue, data := result[0], result[1]
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	if time.Now().Before(job.ProcessAt) {
		return w.push(queue, &job)
	}
	return w.execute(&job)
}

func (w *Worker) execute(job *Job) error {
	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()
	if !exists {
		return fmt.Errorf("no handler registered for job type: %s", job.Type)
	}

	ctx, cancel := context.WithTimeout(w.ctx, 30*time.Second)
	defer cancel()

	if err := handler(ctx, job); err != nil {
		job.Attempts++
		if job.Attempts < job.MaxTries {
			log.Printf("job %s failed (attempt %d/%d), retrying: %v",
				job.ID, job.Attempts, job.MaxTries, err)
			delay := time.Duration(1<<job.Attempts) * time.Minute
			job.ProcessAt = time.Now().Add(delay)
			return w.push(RetryQueue, job)
		}
		log.Printf("job %s failed permanently after %d attempts: %v",
			job.ID, job.Attempts, err)
		return w.moveToDeadQueue(job, err)
	}
	return nil
}

func (w *Worker) push(queue string, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return w.client.RPush(w.ctx, queue, data).Err()
}

func (w *Worker) moveToDeadQueue(job *Job, jobErr error) error {
	dead := struct {
		Job      *Job      `json:"original_job"`
		Error    string    `json:"error"`
		FailedAt time.Time `json:"failed_at"`
	}{job, jobErr.Error(), time.Now()}

	data, err := json.Marshal(dead)
	if err != nil {
		return fmt.Errorf("failed to marshal dead job: %w", err)
	}
	return w.client.RPush(w.ctx, DeadQueue, data).Err()
}

type Queue struct {
	client *redis.Client
}

func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

func (q *Queue) Enqueue(ctx context.Context, jobType JobType, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	job := Job{
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		Type:      jobType,
		Payload:   data,
		MaxTries:  3,
		CreatedAt: time.Now(),
		ProcessAt: time.Now(),
	}
	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return q.client.RPush(ctx, DefaultQueue, jobData).Err()
}

func (q *Queue) Size(ctx context.Context, queue string) (int64, error) {
	return q.client.LLen(ctx, queue).Result()
}
