package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/irsalhamdi/e-learning-market/random"
	"github.com/sirupsen/logrus"
)

const retryInterval = 50 * time.Millisecond

var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis holds keys across every server instance sharing the same Redis.
// A holder that dies keeps the key at most ttl.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    logrus.FieldLogger
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration, log logrus.FieldLogger) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		log:    log,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := r.prefix + key
	token, err := random.StringSecure(24)
	if err != nil {
		return nil, fmt.Errorf("generating lock token: %w", err)
	}

	tick := time.NewTicker(retryInterval)
	defer tick.Stop()

	for {
		ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(ErrNotAcquired, ctx.Err())
			}
			return nil, fmt.Errorf("acquiring %s: %w", k, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		case <-tick.C:
		}
	}

	unlock := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := unlockScript.Run(ctx, r.client, []string{k}, token).Err(); err != nil {
			r.log.WithFields(logrus.Fields{
				"key":     k,
				"message": err,
			}).Warn("releasing lock")
		}
	}
	return unlock, nil
}
