package database

import (
	"console/utils"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

func ConnectRedis() (*redis.Client, error) {
	redisURI := os.Getenv(utils.REDIS_URI)

	opts, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, fmt.Errorf("interpretando REDIS_URI: %w", err)
	}

	return redis.NewClient(opts), nil
}
