package queue

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Alexey777abakan/bothi/internal/domain"
)

// Поддерживаемые драйверы очереди.
const (
	DriverRedis = "redis"
	DriverAMQP  = "rabbitmq"
)

// New создаёт очередь задач генерации по имени драйвера.
func New(driver, rabbitURL, key string, redisClient *redis.Client) (domain.GenerationQueue, error) {
	switch driver {
	case DriverRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("очередь redis требует подключения к Redis")
		}
		return NewRedisGenerationQueue(redisClient, key), nil
	case DriverAMQP:
		return NewAMQPGenerationQueue(rabbitURL, key)
	default:
		return nil, fmt.Errorf("неизвестный драйвер очереди: %s", driver)
	}
}
