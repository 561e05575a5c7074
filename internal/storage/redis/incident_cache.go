package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"incidentLog/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

const (
	incidentListKey       = "incidents:all"
	incidentGenerationKey = "incidents:all:gen"
)

// setIfCurrent writes the list only while the generation still equals ARGV[1].
// KEYS[1] generation, KEYS[2] list; ARGV[2] payload, ARGV[3] ttl in ms (0 keeps no expiry).
var setIfCurrent = goredis.NewScript(`
if (redis.call('GET', KEYS[1]) or '0') ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

// IncidentCache keeps the full, already sorted incident list as one JSON value.
// Every Invalidate bumps a generation counter; a fill computed against an older
// generation is discarded.
type IncidentCache struct {
	client *goredis.Client
	key    string
	genKey string
}

func NewIncidentCache(client *goredis.Client) *IncidentCache {
	return &IncidentCache{
		client: client,
		key:    incidentListKey,
		genKey: incidentGenerationKey,
	}
}

// GetAll returns nil, nil on a miss. A cached empty list comes back as an empty slice.
func (c *IncidentCache) GetAll(ctx context.Context) ([]*domain.Incident, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	incidents := make([]*domain.Incident, 0)
	if err := json.Unmarshal(data, &incidents); err != nil {
		return nil, err
	}

	return incidents, nil
}

// Generation must be read before the store, so a concurrent Invalidate is detected by SetAll.
func (c *IncidentCache) Generation(ctx context.Context) (int64, error) {
	n, err := c.client.Get(ctx, c.genKey).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return n, err
}

// SetAll reports false when the list was invalidated after gen was read.
func (c *IncidentCache) SetAll(ctx context.Context, incidents []*domain.Incident, ttl time.Duration, gen int64) (bool, error) {
	if incidents == nil {
		incidents = []*domain.Incident{}
	}
	b, err := json.Marshal(incidents)
	if err != nil {
		return false, err
	}

	stored, err := setIfCurrent.Run(ctx, c.client, []string{c.genKey, c.key}, gen, b, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

func (c *IncidentCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey)
		pipe.Del(ctx, c.key)
		return nil
	})
	return err
}
