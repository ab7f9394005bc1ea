package dispatch

import (
	"fmt"
	"strings"

	"leadflow_backend/platform/config"

	"github.com/hibiken/asynq"
)

// QueueStats aggregates job counts for one dispatch domain across its
// priority queues.
type QueueStats struct {
	Domain    string `json:"domain"`
	Waiting   int    `json:"waiting"`
	Active    int    `json:"active"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
}

// Inspector provides the read-only queue introspection surface.
type Inspector struct {
	inspector *asynq.Inspector
}

// NewInspector creates an inspector from configuration.
func NewInspector(cfg config.RedisConfig) (*Inspector, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	return &Inspector{inspector: asynq.NewInspector(opt)}, nil
}

// Close releases the underlying connection.
func (i *Inspector) Close() error {
	if i == nil || i.inspector == nil {
		return nil
	}
	return i.inspector.Close()
}

// Stats returns per-domain waiting/active/completed/failed counts.
// Domains with no queues yet report zeros; terminally failed jobs stay
// visible as archived tasks, never silently dropped.
func (i *Inspector) Stats() ([]QueueStats, error) {
	existing, err := i.inspector.Queues()
	if err != nil {
		return nil, err
	}

	byDomain := make(map[Domain]*QueueStats, len(Domains()))
	stats := make([]QueueStats, 0, len(Domains()))
	for _, domain := range Domains() {
		byDomain[domain] = &QueueStats{Domain: string(domain)}
	}

	for _, queue := range existing {
		domain := Domain(queue)
		if idx := strings.LastIndex(queue, ".p"); idx > 0 {
			domain = Domain(queue[:idx])
		}
		agg, ok := byDomain[domain]
		if !ok {
			continue
		}

		info, err := i.inspector.GetQueueInfo(queue)
		if err != nil {
			return nil, fmt.Errorf("queue %s: %w", queue, err)
		}

		agg.Waiting += info.Pending + info.Scheduled + info.Retry
		agg.Active += info.Active
		agg.Completed += info.Completed
		agg.Failed += info.Archived
	}

	for _, domain := range Domains() {
		stats = append(stats, *byDomain[domain])
	}
	return stats, nil
}
