package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kikiluvv/shotlist/internal/config"
	"github.com/kikiluvv/shotlist/internal/pipeline"
	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Dequeue when no job arrived before the timeout
var ErrEmpty = errors.New("queue empty")

// Job is one queued analysis request. Credentials are not queued; workers
// use their own configuration.
type Job struct {
	ID               string           `json:"id"`
	VideoPath        string           `json:"video_path"`
	CSVPath          string           `json:"csv_path,omitempty"`
	TranscriptPath   string           `json:"transcript_path,omitempty"`
	SRTPath          string           `json:"srt_path,omitempty"`
	JSONPath         string           `json:"json_path,omitempty"`
	MinSceneDuration float64          `json:"min_scene_duration_seconds,omitempty"`
	MaxDuration      float64          `json:"max_duration_seconds,omitempty"`
	Debug            bool             `json:"debug,omitempty"`
	Source           *pipeline.Source `json:"source,omitempty"`
	EnqueuedAt       time.Time        `json:"enqueued_at"`
}

// Request converts the job into a pipeline request
func (j Job) Request() pipeline.Request {
	return pipeline.Request{
		RunID:            j.ID,
		VideoPath:        j.VideoPath,
		CSVPath:          j.CSVPath,
		TranscriptPath:   j.TranscriptPath,
		SRTPath:          j.SRTPath,
		JSONPath:         j.JSONPath,
		MinSceneDuration: j.MinSceneDuration,
		MaxDuration:      j.MaxDuration,
		Debug:            j.Debug,
		Source:           j.Source,
	}
}

// Outcome is published on the results list when a job finishes
type Outcome struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	CSVPath        string    `json:"csv_path,omitempty"`
	TranscriptPath string    `json:"transcript_path,omitempty"`
	Error          string    `json:"error,omitempty"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Queue wraps a Redis list of jobs and a list of outcomes
type Queue struct {
	client  *redis.Client
	name    string
	results string
}

// Connect opens the Redis connection and checks it with a ping
func Connect(ctx context.Context, cfg config.QueueConfig) (*Queue, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Queue{
		client:  client,
		name:    cfg.Name,
		results: cfg.ResultsName,
	}, nil
}

// Enqueue appends a job, assigning an id when missing
func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	if job.VideoPath == "" {
		return fmt.Errorf("job has no video path")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job to JSON: %w", err)
	}
	if err := q.client.RPush(ctx, q.name, string(data)).Err(); err != nil {
		return fmt.Errorf("error adding to queue: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next job
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.client.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("error reading from queue: %w", err)
	}

	// BLPOP replies with [key, value]
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}

// Publish appends a job outcome to the results list
func (q *Queue) Publish(ctx context.Context, out Outcome) error {
	if out.FinishedAt.IsZero() {
		out.FinishedAt = time.Now().UTC()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome to JSON: %w", err)
	}
	if err := q.client.RPush(ctx, q.results, string(data)).Err(); err != nil {
		return fmt.Errorf("error adding to results: %w", err)
	}
	return nil
}

// Len returns the current length of the job queue
func (q *Queue) Len(ctx context.Context) (int64, error) {
	length, err := q.client.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("error getting queue length: %w", err)
	}
	return length, nil
}

// Close closes the Redis connection
func (q *Queue) Close() error {
	return q.client.Close()
}
