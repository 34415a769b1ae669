package queue

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"
)

// ParseRedisURL turns a Redis connection string into asynq client options.
// Accepted forms:
//   - redis://[:password@]host:port[/db]
//   - rediss://[:password@]host:port[/db] (TLS)
//   - host:port (no password, database 0)
func ParseRedisURL(redisURL string) (asynq.RedisClientOpt, error) {
	opt := asynq.RedisClientOpt{DB: 0}

	// Bare host:port form.
	if !strings.Contains(redisURL, "://") {
		opt.Addr = redisURL
		return opt, nil
	}

	u, err := url.Parse(redisURL)
	if err != nil {
		return opt, fmt.Errorf("invalid redis URL: %w", err)
	}

	switch u.Scheme {
	case "redis":
	case "rediss":
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	default:
		return opt, fmt.Errorf("unsupported redis URL scheme: %s (expected 'redis' or 'rediss')", u.Scheme)
	}

	if u.Host == "" {
		return opt, fmt.Errorf("redis URL missing host")
	}
	opt.Addr = u.Host

	if u.User != nil {
		if password, ok := u.User.Password(); ok {
			opt.Password = password
		}
	}

	if u.Path != "" && u.Path != "/" {
		db, err := strconv.Atoi(strings.TrimPrefix(u.Path, "/"))
		if err != nil {
			return opt, fmt.Errorf("invalid database number in redis URL: %s", u.Path)
		}
		opt.DB = db
	}

	return opt, nil
}
