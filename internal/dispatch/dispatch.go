// Package dispatch implements the priority job dispatcher: independent
// per-domain queues with strict in-domain priority ordering, bounded-attempt
// execution, and exponential retry backoff, backed by asynq.
package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Domain is an independently scheduled, independently concurrency-limited
// lane of work grouped by business function.
type Domain string

const (
	DomainResponse     Domain = "response"
	DomainNotification Domain = "notification"
	DomainSync         Domain = "sync"
	DomainAnalytics    Domain = "analytics"
)

// Priority bounds. Lower numbers are dequeued first within a domain.
const (
	PriorityUrgent = 1
	PriorityLowest = 5
)

// Domains lists every dispatch domain in urgency order.
func Domains() []Domain {
	return []Domain{DomainResponse, DomainNotification, DomainSync, DomainAnalytics}
}

// DefaultPriority is the priority applied when an enqueue request does not
// specify one. The instant-response domain defaults to the most urgent rank.
func DefaultPriority(domain Domain) int {
	switch domain {
	case DomainResponse:
		return 1
	case DomainNotification:
		return 2
	case DomainSync:
		return 3
	default:
		return 5
	}
}

// QueueName maps a (domain, priority) pair onto the backing queue.
// Priorities outside [1,5] are clamped.
func QueueName(domain Domain, priority int) string {
	if priority < PriorityUrgent {
		priority = PriorityUrgent
	}
	if priority > PriorityLowest {
		priority = PriorityLowest
	}
	return fmt.Sprintf("%s.p%d", domain, priority)
}

// DomainQueues returns the strict-priority queue weights for one domain:
// the p1 queue always drains before p2, and so on.
func DomainQueues(domain Domain) map[string]int {
	queues := make(map[string]int, PriorityLowest)
	for p := PriorityUrgent; p <= PriorityLowest; p++ {
		queues[QueueName(domain, p)] = PriorityLowest - p + 1
	}
	return queues
}

// TaskDomain derives the owning domain from a task type. Task types are
// namespaced "<domain>.<name>".
func TaskDomain(taskType string) Domain {
	if idx := strings.IndexByte(taskType, '.'); idx > 0 {
		return Domain(taskType[:idx])
	}
	return DomainAnalytics
}

// maxRetryDelay caps the exponential curve so a long-lived retry never
// drifts beyond operational usefulness.
const maxRetryDelay = time.Hour

// RetryDelay returns the backoff function used by all domain servers:
// base × 2^attempts, capped.
func RetryDelay(base time.Duration) func(n int, err error, task *asynq.Task) time.Duration {
	if base <= 0 {
		base = 30 * time.Second
	}
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		delay := base << uint(n)
		if delay > maxRetryDelay || delay <= 0 {
			return maxRetryDelay
		}
		return delay
	}
}

// redisClientOpt parses a redis URL into asynq connection options.
func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
