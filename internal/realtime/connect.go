package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikbrunner/bmsync/internal/config"
	"github.com/nikbrunner/bmsync/internal/logger"
)

// backoff is the retry policy used while redis is unreachable.
type backoff struct {
	initial       time.Duration
	max           time.Duration
	ping          time.Duration
	total         time.Duration
	warnThreshold int
}

func backoffFrom(cfg config.RedisConfig) (backoff, error) {
	b := backoff{
		initial:       cfg.RetryInterval,
		max:           cfg.MaxWait,
		ping:          cfg.PingTimeout,
		total:         cfg.ConnectTimeout,
		warnThreshold: cfg.WarnThreshold,
	}
	switch {
	case b.total <= 0:
		return b, fmt.Errorf("redis connectTimeout must be > 0, got %v", b.total)
	case b.initial <= 0:
		return b, fmt.Errorf("redis retryInterval must be > 0, got %v", b.initial)
	case b.max <= 0:
		return b, fmt.Errorf("redis maxWait must be > 0, got %v", b.max)
	case b.ping <= 0:
		return b, fmt.Errorf("redis pingTimeout must be > 0, got %v", b.ping)
	case b.warnThreshold < 0:
		return b, fmt.Errorf("redis warnThreshold must be >= 0, got %d", b.warnThreshold)
	}
	return b, nil
}

// next doubles the wait up to the cap.
func (b backoff) next(wait time.Duration) time.Duration {
	wait *= 2
	if wait > b.max {
		wait = b.max
	}
	return wait
}

// Connect opens a redis client and pings it with exponential backoff until
// it answers or ConnectTimeout elapses.
func Connect(ctx context.Context, cfg config.RedisConfig, log logger.Logger) (*redis.Client, error) {
	policy, err := backoffFrom(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.User,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	if err := ping(ctx, client, cfg.Addr, policy, log); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func ping(ctx context.Context, client *redis.Client, addr string, policy backoff, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, policy.total)
	defer cancel()

	log.Info("connecting to redis",
		logger.String("addr", addr),
		logger.Duration("timeout", policy.total))

	start := time.Now()
	wait := policy.initial
	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, policy.ping)
		err := client.Ping(pingCtx).Err()
		pingCancel()

		if err == nil {
			if attempt > 1 {
				log.Warn("connected to redis after retry",
					logger.String("addr", addr),
					logger.Int("attempts", attempt),
					logger.Duration("elapsed", time.Since(start)))
			} else {
				log.Info("connected to redis", logger.String("addr", addr))
			}
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error("redis unavailable",
				logger.String("addr", addr),
				logger.Int("attempts", attempt),
				logger.Error(err))
			return fmt.Errorf("redis unavailable at %s after %d attempts: %w", addr, attempt, err)
		case <-timer.C:
		}

		if attempt <= policy.warnThreshold {
			log.Warn("redis connection failed, retrying",
				logger.String("addr", addr),
				logger.Int("attempt", attempt),
				logger.Duration("next_retry_in", wait),
				logger.Error(err))
		} else {
			log.Error("redis still unavailable",
				logger.String("addr", addr),
				logger.Int("attempt", attempt),
				logger.Duration("next_retry_in", wait),
				logger.Error(err))
		}
		wait = policy.next(wait)
	}
}
