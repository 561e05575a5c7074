package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"incidentLog/internal/domain"
	"incidentLog/pkg/e"

	"github.com/redis/go-redis/v9"
)

const eventQueueKey = "incidents:events"

type EventQueue struct {
	client *redis.Client
	key    string
}

func NewEventQueue(client *redis.Client) *EventQueue {
	return &EventQueue{client: client, key: eventQueueKey}
}

func (q *EventQueue) Enqueue(ctx context.Context, event domain.IncidentEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, b).Err()
}

// BRPop blocks up to timeout and returns e.ErrQueueEmpty when nothing arrived.
func (q *EventQueue) BRPop(ctx context.Context, timeout time.Duration) (domain.IncidentEvent, error) {
	var ev domain.IncidentEvent

	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ev, e.ErrQueueEmpty
		}
		return ev, err
	}
	if len(res) < 2 {
		return ev, e.ErrQueueEmpty
	}
	if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
		return ev, err
	}
	return ev, nil
}
