package config

// Redis backs the response cache of the role and permission read endpoints.
// If the server cannot be reached at startup the constructor returns nil and
// the cache middleware becomes a pass-through.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server.  REDIS_HOST and REDIS_PORT win over
// the REDIS_ADDR shorthand when both are set.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Host     string `env:"REDIS_HOST"`
	Port     string `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	TLS      bool   `env:"REDIS_TLS" envDefault:"false"`
}

// Options converts the config into client options.
func (r RedisConfig) Options() *redis.Options {
	addr := r.Addr
	if r.Host != "" && r.Port != "" {
		addr = r.Host + ":" + r.Port
	}
	var tlsConf *tls.Config
	if r.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &redis.Options{
		Addr:      addr,
		Password:  r.Password,
		DB:        r.DB,
		TLSConfig: tlsConf,
	}
}

// NewRedisClient connects with r and pings the server.  The returned client
// is nil if the server cannot be reached.
func NewRedisClient(ctx context.Context, r RedisConfig) *redis.Client {
	client := redis.NewClient(r.Options())
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
