package cache

import (
	"context"
	"fmt"
	"time"

	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// Rd is the raw redis client, used for the keys that need TTL semantics
// (presence, typing). S wraps the same client for the gocache managers.
var (
	Rd *redis.Client
	S  *redisstore.RedisStore
)

func NewCache() error {
	Rd = redis.NewClient(&redis.Options{
		Addr:     viper.GetString("cache.addr"),
		Username: viper.GetString("cache.username"),
		Password: viper.GetString("cache.password"),
		DB:       viper.GetInt("cache.database"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Rd.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("unable to connect to cache: %v", err)
	}

	S = redisstore.NewRedis(Rd)

	return nil
}
